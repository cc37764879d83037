// Package drift reduces the external drift engine's per-feature table into a
// single DriftSummary with an ordinal severity.
package drift

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/frauddesk/control-plane/internal/models"
)

// FeatureDrift is the per-feature verdict read from the drift engine.
type FeatureDrift struct {
	DriftDetected bool `json:"drift_detected"`
}

// Table is the aggregate drift table keyed by feature name.
type Table struct {
	DriftByColumns map[string]FeatureDrift `json:"drift_by_columns"`
}

// Severity thresholds, inclusive lower bounds evaluated in descending order.
const (
	highThreshold   = 0.50
	mediumThreshold = 0.20
)

// Classify aggregates a drift table into a DriftSummary. It never fails: an
// empty table yields ratio 0.0 and severity none.
func Classify(table Table) models.DriftSummary {
	drifted := 0
	total := 0
	for _, col := range table.DriftByColumns {
		total++
		if col.DriftDetected {
			drifted++
		}
	}

	ratio := 0.0
	if total > 0 {
		ratio = float64(drifted) / float64(total)
	}

	severity := models.SeverityNone
	switch {
	case ratio >= highThreshold:
		severity = models.SeverityHigh
	case ratio >= mediumThreshold:
		severity = models.SeverityMedium
	case ratio > 0.0:
		severity = models.SeverityLow
	}

	return models.DriftSummary{
		SchemaVersion:        models.SchemaVersion,
		DriftRatio:           ratio,
		DriftedFeatures:      drifted,
		TotalFeaturesChecked: total,
		Severity:             severity,
	}
}

// engineReport mirrors the drift engine's full report: a list of metric
// blocks, of which only the DataDriftTable block is consumed.
type engineReport struct {
	Metrics []struct {
		Metric string `json:"metric"`
		Result Table  `json:"result"`
	} `json:"metrics"`
}

// ParseEngineReport extracts the drift table from the engine's JSON report.
// A report without a DataDriftTable block yields an empty table, which
// classifies as severity none.
func ParseEngineReport(r io.Reader) (Table, error) {
	var report engineReport
	if err := json.NewDecoder(r).Decode(&report); err != nil {
		return Table{}, fmt.Errorf("decode drift report: %w", err)
	}
	for _, m := range report.Metrics {
		if m.Metric == "DataDriftTable" {
			return m.Result, nil
		}
	}
	return Table{}, nil
}
