package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/frauddesk/control-plane/internal/events"
	"github.com/frauddesk/control-plane/internal/models"
	"github.com/frauddesk/control-plane/internal/registry"
	"github.com/frauddesk/control-plane/internal/release"
	"github.com/frauddesk/control-plane/internal/sentinel"
	"github.com/frauddesk/control-plane/internal/training"
)

type fixture struct {
	orch     *Orchestrator
	recorder *events.FileRecorder
	store    *registry.MemoryStore
	cfg      Config
}

func newFixture(t *testing.T, policyYAML string) *fixture {
	t.Helper()
	root := t.TempDir()
	cfg := Config{
		PolicyPath: filepath.Join(root, "promotion.yaml"),
		ReportDir:  filepath.Join(root, "reports"),
		DataDir:    filepath.Join(root, "data"),
	}
	for _, dir := range []string{cfg.ReportDir, cfg.DataDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}
	if err := os.WriteFile(cfg.PolicyPath, []byte(policyYAML), 0o644); err != nil {
		t.Fatalf("write policy: %v", err)
	}

	store := registry.NewMemoryStore()
	recorder := events.NewFileRecorder(filepath.Join(root, "events"))
	trainer := &training.LocalGateway{
		Store:            store,
		ExperimentName:   "fraud-demo",
		ModelName:        "fraud_detector",
		AUC:              0.95,
		AveragePrecision: 0.9,
	}
	gate := release.New(store, "fraud-demo", "fraud_detector", nil)
	return &fixture{
		orch:     New(cfg, trainer, gate, recorder, nil),
		recorder: recorder,
		store:    store,
		cfg:      cfg,
	}
}

func (f *fixture) writeSummary(t *testing.T, severity models.Severity) {
	t.Helper()
	summary := models.DriftSummary{
		SchemaVersion:        models.SchemaVersion,
		DriftRatio:           0.6,
		DriftedFeatures:      6,
		TotalFeaturesChecked: 10,
		Severity:             severity,
	}
	b, _ := json.Marshal(summary)
	if err := os.WriteFile(filepath.Join(f.cfg.ReportDir, sentinel.SummaryFileName), b, 0o644); err != nil {
		t.Fatalf("write summary: %v", err)
	}
}

func TestCycleWithoutMonitoringSummaryWritesTwoArtifacts(t *testing.T) {
	f := newFixture(t, "")
	result, err := f.orch.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if result.Report.IncidentType != models.IncidentNone {
		t.Fatalf("expected incident none, got %s", result.Report.IncidentType)
	}
	if result.Plan.Action != models.ActionNoop {
		t.Fatalf("expected noop plan, got %s", result.Plan.Action)
	}
	if result.Training != nil || result.Release != nil {
		t.Fatalf("noop cycle must not train or release")
	}

	records, err := f.recorder.ListCycleRecords(result.CycleID)
	if err != nil {
		t.Fatalf("list records: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected exactly 2 artifacts, got %d", len(records))
	}
	for _, stage := range []string{events.StageSentinelReport, events.StageExecutionPlan} {
		if _, ok := records[stage]; !ok {
			t.Fatalf("missing %s artifact", stage)
		}
	}
}

func TestCycleWithHighDriftTrainsAndPromotes(t *testing.T) {
	f := newFixture(t, "")
	f.writeSummary(t, models.SeverityHigh)

	result, err := f.orch.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if result.Plan.Action != models.ActionRetrainAndEvaluate {
		t.Fatalf("expected retrain plan, got %s", result.Plan.Action)
	}
	if result.Training == nil || result.Training.RunID == "" {
		t.Fatalf("expected a training result")
	}
	if result.Release == nil || !result.Release.Promoted {
		t.Fatalf("vacuous gates must promote, got %+v", result.Release)
	}
	if result.Release.Stage != "Staging" {
		t.Fatalf("expected default Staging stage, got %s", result.Release.Stage)
	}

	records, err := f.recorder.ListCycleRecords(result.CycleID)
	if err != nil {
		t.Fatalf("list records: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("expected 4 artifacts, got %d", len(records))
	}
	for _, stage := range []string{
		events.StageSentinelReport,
		events.StageExecutionPlan,
		events.StageTrainingResult,
		events.StageReleaseResult,
	} {
		if _, ok := records[stage]; !ok {
			t.Fatalf("missing %s artifact", stage)
		}
	}
}

func TestCycleLowSeverityTerminatesAtPlan(t *testing.T) {
	f := newFixture(t, "")
	f.writeSummary(t, models.SeverityLow)

	result, err := f.orch.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if result.Report.IncidentType != models.IncidentNone {
		t.Fatalf("low severity must not raise an incident")
	}
	if result.Plan.Action != models.ActionNoop || result.Training != nil {
		t.Fatalf("low severity must terminate at PLAN, got %+v", result)
	}
}

type failingTrainer struct{}

func (failingTrainer) Train(ctx context.Context, referenceDataset string) (models.TrainingResult, error) {
	return models.TrainingResult{}, fmt.Errorf("trainer unreachable")
}

func TestCycleTrainingFailurePreservesEarlierArtifacts(t *testing.T) {
	f := newFixture(t, "")
	f.writeSummary(t, models.SeverityHigh)

	store := registry.NewMemoryStore()
	orch := New(f.cfg, failingTrainer{}, release.New(store, "fraud-demo", "fraud_detector", nil), f.recorder, nil)

	result, err := orch.RunCycle(context.Background())
	if err == nil {
		t.Fatalf("expected training failure to abort the cycle")
	}

	records, listErr := f.recorder.ListCycleRecords(result.CycleID)
	if listErr != nil {
		t.Fatalf("list records: %v", listErr)
	}
	if len(records) != 2 {
		t.Fatalf("sentinel and plan artifacts must survive the failure, got %d records", len(records))
	}
}

func TestCycleIdempotentDecisionsAgainstUnchangedState(t *testing.T) {
	f := newFixture(t, "quality_gates:\n  min_auc: 0.9\n")
	f.writeSummary(t, models.SeverityHigh)

	first, err := f.orch.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("first cycle: %v", err)
	}
	second, err := f.orch.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("second cycle: %v", err)
	}

	if first.Plan.Action != second.Plan.Action {
		t.Fatalf("plan action differs: %s vs %s", first.Plan.Action, second.Plan.Action)
	}
	if first.Release.Promoted != second.Release.Promoted {
		t.Fatalf("promoted flag differs")
	}
	if first.Release.Details.Reason != second.Release.Details.Reason {
		t.Fatalf("reason differs: %s vs %s", first.Release.Details.Reason, second.Release.Details.Reason)
	}
}
