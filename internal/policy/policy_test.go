package policy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/frauddesk/control-plane/internal/models"
)

func TestParseFullPolicy(t *testing.T) {
	raw := []byte(`
drift_policy:
  on_none:
    action: noop
  on_low:
    action: noop
  on_medium:
    action: retrain_and_evaluate
  on_high:
    action: retrain_and_evaluate
quality_gates:
  min_auc: 0.9
  min_average_precision: 0.8
release_policy:
  promote_if_quality_gates_pass: true
  promote_stage: Production
`)
	pol, err := Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if pol.QualityGates.MinAUC != 0.9 || pol.QualityGates.MinAveragePrecision != 0.8 {
		t.Fatalf("unexpected gates: %+v", pol.QualityGates)
	}
	if pol.ReleasePolicy.PromoteStage != "Production" {
		t.Fatalf("unexpected stage: %s", pol.ReleasePolicy.PromoteStage)
	}
	if pol.DriftPolicy.OnHigh.Action != models.ActionRetrainAndEvaluate {
		t.Fatalf("unexpected on_high action: %s", pol.DriftPolicy.OnHigh.Action)
	}
}

func TestParseEmptyPolicyAppliesDefaults(t *testing.T) {
	pol, err := Parse(nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if pol.DriftPolicy.OnNone.Action != models.ActionNoop {
		t.Fatalf("on_none default: %s", pol.DriftPolicy.OnNone.Action)
	}
	if pol.DriftPolicy.OnLow.Action != models.ActionNoop {
		t.Fatalf("on_low default: %s", pol.DriftPolicy.OnLow.Action)
	}
	if pol.DriftPolicy.OnMedium.Action != models.ActionRetrainAndEvaluate {
		t.Fatalf("on_medium default: %s", pol.DriftPolicy.OnMedium.Action)
	}
	if pol.DriftPolicy.OnHigh.Action != models.ActionRetrainAndEvaluate {
		t.Fatalf("on_high default: %s", pol.DriftPolicy.OnHigh.Action)
	}
	if pol.QualityGates.MinAUC != 0.0 || pol.QualityGates.MinAveragePrecision != 0.0 {
		t.Fatalf("gates should default to 0.0: %+v", pol.QualityGates)
	}
	if !pol.ReleasePolicy.PromoteIfQualityGatesPass {
		t.Fatalf("promotion should default to enabled")
	}
	if pol.ReleasePolicy.PromoteStage != "Staging" {
		t.Fatalf("stage should default to Staging, got %s", pol.ReleasePolicy.PromoteStage)
	}
}

func TestParseUnknownActionNormalizedToNoop(t *testing.T) {
	raw := []byte(`
drift_policy:
  on_high:
    action: page_the_oncall
`)
	pol, err := Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if pol.DriftPolicy.OnHigh.Action != models.ActionNoop {
		t.Fatalf("unknown action should normalize to noop, got %s", pol.DriftPolicy.OnHigh.Action)
	}
}

func TestParseExplicitFalsePromotion(t *testing.T) {
	raw := []byte(`
release_policy:
  promote_if_quality_gates_pass: false
`)
	pol, err := Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if pol.ReleasePolicy.PromoteIfQualityGatesPass {
		t.Fatalf("explicit false must not be overridden by the default")
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "promotion.yaml")
	content := []byte("quality_gates:\n  min_auc: 0.75\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write policy: %v", err)
	}
	pol, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if pol.QualityGates.MinAUC != 0.75 {
		t.Fatalf("unexpected min_auc: %f", pol.QualityGates.MinAUC)
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing policy file")
	}
}
