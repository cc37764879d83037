// Package models contains the typed records exchanged between the control
// plane's pipeline stages. Every record is a value type produced exactly once
// by its owning stage and never mutated afterwards.
package models

// SchemaVersion is stamped on every persisted event artifact so the records
// can be validated and migrated instead of being an implicit field dump.
const SchemaVersion = "1"

// Severity is the coarse ordinal classification of aggregate drift magnitude.
type Severity string

const (
	SeverityNone   Severity = "none"
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

func (s Severity) String() string { return string(s) }

// IncidentType describes what kind of incident the sentinel observed.
type IncidentType string

const (
	IncidentNone  IncidentType = "none"
	IncidentDrift IncidentType = "drift"
)

func (t IncidentType) String() string { return string(t) }

// Action is a planner/policy action. Unknown strings are normalized to
// ActionNoop at policy load time, so downstream guards only ever see these
// two values.
type Action string

const (
	ActionNoop               Action = "noop"
	ActionRetrainAndEvaluate Action = "retrain_and_evaluate"
)

func (a Action) String() string { return string(a) }

// ReasonCode identifies a terminal, non-promoting release outcome. These are
// expected conditions, not errors.
type ReasonCode string

const (
	ReasonMissingMonitoringSummary ReasonCode = "missing_monitoring_summary"
	ReasonExperimentNotFound       ReasonCode = "experiment_not_found"
	ReasonNoRuns                   ReasonCode = "no_runs"
	ReasonQualityGatesFailed       ReasonCode = "quality_gates_failed"
	ReasonPromotionDisabled        ReasonCode = "promotion_disabled_by_policy"
	ReasonNoModelVersions          ReasonCode = "no_model_versions"
)

// DriftSummary is the monitoring handoff artifact: the aggregate of the drift
// engine's per-feature table.
type DriftSummary struct {
	SchemaVersion        string   `json:"schema_version"`
	DriftRatio           float64  `json:"drift_ratio"`
	DriftedFeatures      int      `json:"drifted_features"`
	TotalFeaturesChecked int      `json:"total_features_checked"`
	Severity             Severity `json:"severity"`
	ReportPath           string   `json:"report_path,omitempty"`
}

// Evidence carries the sentinel's audit trail: either a reason code (when no
// monitoring summary existed) or the full source summary.
type Evidence struct {
	Reason  ReasonCode    `json:"reason,omitempty"`
	Summary *DriftSummary `json:"summary,omitempty"`
}

// IncidentReport is the sentinel's verdict on current monitoring state.
type IncidentReport struct {
	SchemaVersion     string       `json:"schema_version"`
	IncidentType      IncidentType `json:"incident_type"`
	Severity          Severity     `json:"severity"`
	RecommendedAction Action       `json:"recommended_action"`
	Evidence          Evidence     `json:"evidence"`
}

// PolicyRule maps one severity bucket to an action.
type PolicyRule struct {
	Action Action `json:"action" yaml:"action"`
}

// DriftPolicy selects an action per severity bucket.
type DriftPolicy struct {
	OnNone   PolicyRule `json:"on_none" yaml:"on_none"`
	OnLow    PolicyRule `json:"on_low" yaml:"on_low"`
	OnMedium PolicyRule `json:"on_medium" yaml:"on_medium"`
	OnHigh   PolicyRule `json:"on_high" yaml:"on_high"`
}

// QualityGates are the minimum metrics a freshly trained model must clear.
type QualityGates struct {
	MinAUC              float64 `json:"min_auc" yaml:"min_auc"`
	MinAveragePrecision float64 `json:"min_average_precision" yaml:"min_average_precision"`
}

// ReleasePolicy controls whether and where a gate-passing model is promoted.
type ReleasePolicy struct {
	PromoteIfQualityGatesPass bool   `json:"promote_if_quality_gates_pass" yaml:"promote_if_quality_gates_pass"`
	PromoteStage              string `json:"promote_stage" yaml:"promote_stage"`
}

// Policy is the fully validated promotion policy. It is built once per cycle
// by the policy loader (which applies defaults and normalizes unknown action
// strings) and treated as read-only from then on.
type Policy struct {
	DriftPolicy   DriftPolicy   `json:"drift_policy" yaml:"drift_policy"`
	QualityGates  QualityGates  `json:"quality_gates" yaml:"quality_gates"`
	ReleasePolicy ReleasePolicy `json:"release_policy" yaml:"release_policy"`
}

// ExecutionPlan is the planner's output. The policy is carried forward so the
// release stage reuses the exact policy the plan was made under.
type ExecutionPlan struct {
	SchemaVersion string `json:"schema_version"`
	Action        Action `json:"action"`
	Notes         string `json:"notes"`
	Policy        Policy `json:"policy"`
}

// TrainingResult identifies one completed training run and its held-out
// evaluation metrics.
type TrainingResult struct {
	SchemaVersion    string  `json:"schema_version"`
	RunID            string  `json:"run_id"`
	AUC              float64 `json:"auc"`
	AveragePrecision float64 `json:"average_precision"`
}

// ReleaseDetails carries the machine-readable explanation of a release
// outcome. On gate failure both the actual and minimum values are present;
// on promotion the model identity and metrics are present.
type ReleaseDetails struct {
	Reason              ReasonCode `json:"reason,omitempty"`
	Model               string     `json:"model,omitempty"`
	Version             int        `json:"version,omitempty"`
	AUC                 *float64   `json:"auc,omitempty"`
	AveragePrecision    *float64   `json:"average_precision,omitempty"`
	MinAUC              *float64   `json:"min_auc,omitempty"`
	MinAveragePrecision *float64   `json:"min_average_precision,omitempty"`
}

// ReleaseResult is the release gate's verdict. Details always includes a
// Reason when Promoted is false.
type ReleaseResult struct {
	SchemaVersion string         `json:"schema_version"`
	Promoted      bool           `json:"promoted"`
	Stage         string         `json:"stage,omitempty"`
	Details       ReleaseDetails `json:"details"`
}

// ModelVersion is a registered model version as seen by the release gate and
// the serving layer. Version numbers are monotonically increasing per model;
// "latest" is always resolved by numeric max, never by a registry alias.
type ModelVersion struct {
	Version     int    `json:"version"`
	Stage       string `json:"stage"`
	ArtifactURI string `json:"artifact_uri,omitempty"`
}

// Float64 returns a pointer to v, for the optional metric fields above.
func Float64(v float64) *float64 { return &v }
