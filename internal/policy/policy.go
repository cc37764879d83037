// Package policy loads the declarative promotion policy. Validation happens
// once here: absent keys take their stated defaults and unknown action
// strings are normalized, so every consumer works with a fully populated
// models.Policy.
package policy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/frauddesk/control-plane/internal/models"
)

const defaultPromoteStage = "Staging"

// fileSchema mirrors the on-disk YAML. Pointer fields distinguish "absent"
// from zero values so defaults apply only where the operator said nothing.
type fileSchema struct {
	DriftPolicy struct {
		OnNone   *ruleSchema `yaml:"on_none"`
		OnLow    *ruleSchema `yaml:"on_low"`
		OnMedium *ruleSchema `yaml:"on_medium"`
		OnHigh   *ruleSchema `yaml:"on_high"`
	} `yaml:"drift_policy"`
	QualityGates struct {
		MinAUC              *float64 `yaml:"min_auc"`
		MinAveragePrecision *float64 `yaml:"min_average_precision"`
	} `yaml:"quality_gates"`
	ReleasePolicy struct {
		PromoteIfQualityGatesPass *bool   `yaml:"promote_if_quality_gates_pass"`
		PromoteStage              *string `yaml:"promote_stage"`
	} `yaml:"release_policy"`
}

type ruleSchema struct {
	Action *string `yaml:"action"`
}

// Load reads and validates the policy file at path. It is called fresh each
// cycle; policies are never cached across cycles.
func Load(path string) (models.Policy, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return models.Policy{}, fmt.Errorf("read policy %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse validates raw YAML policy bytes into a fully defaulted models.Policy.
func Parse(raw []byte) (models.Policy, error) {
	var file fileSchema
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return models.Policy{}, fmt.Errorf("parse policy: %w", err)
	}

	pol := models.Policy{
		DriftPolicy: models.DriftPolicy{
			OnNone:   models.PolicyRule{Action: normalizeAction(file.DriftPolicy.OnNone, models.ActionNoop)},
			OnLow:    models.PolicyRule{Action: normalizeAction(file.DriftPolicy.OnLow, models.ActionNoop)},
			OnMedium: models.PolicyRule{Action: normalizeAction(file.DriftPolicy.OnMedium, models.ActionRetrainAndEvaluate)},
			OnHigh:   models.PolicyRule{Action: normalizeAction(file.DriftPolicy.OnHigh, models.ActionRetrainAndEvaluate)},
		},
		QualityGates: models.QualityGates{
			MinAUC:              floatOr(file.QualityGates.MinAUC, 0.0),
			MinAveragePrecision: floatOr(file.QualityGates.MinAveragePrecision, 0.0),
		},
		ReleasePolicy: models.ReleasePolicy{
			PromoteIfQualityGatesPass: boolOr(file.ReleasePolicy.PromoteIfQualityGatesPass, true),
			PromoteStage:              stringOr(file.ReleasePolicy.PromoteStage, defaultPromoteStage),
		},
	}
	return pol, nil
}

// Default returns the policy produced by an empty file: noop on none/low,
// retrain on medium/high, vacuous gates, promotion to Staging enabled.
func Default() models.Policy {
	pol, _ := Parse(nil)
	return pol
}

// normalizeAction applies the stated default for an absent rule and maps any
// action string outside the known set to noop.
func normalizeAction(rule *ruleSchema, fallback models.Action) models.Action {
	if rule == nil || rule.Action == nil {
		return fallback
	}
	switch models.Action(*rule.Action) {
	case models.ActionNoop:
		return models.ActionNoop
	case models.ActionRetrainAndEvaluate:
		return models.ActionRetrainAndEvaluate
	default:
		return models.ActionNoop
	}
}

func floatOr(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}

func boolOr(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}

func stringOr(v *string, fallback string) string {
	if v == nil || *v == "" {
		return fallback
	}
	return *v
}
