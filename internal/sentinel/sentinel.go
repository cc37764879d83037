// Package sentinel converts the current monitoring state into an incident
// report. A missing monitoring summary is a defined "nothing to act on"
// state, not a failure.
package sentinel

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/frauddesk/control-plane/internal/models"
)

// SummaryFileName is the monitoring handoff artifact the sentinel consumes.
const SummaryFileName = "monitoring_summary.json"

// Sentinel reads the drift monitor's summary artifact from a report
// directory.
type Sentinel struct {
	reportDir string
}

func New(reportDir string) *Sentinel {
	return &Sentinel{reportDir: reportDir}
}

// Run evaluates the current monitoring artifact. Severity none and low are
// treated as non-actionable noise; medium and high raise a drift incident.
// The returned error is reserved for unreadable or malformed artifacts.
func (s *Sentinel) Run() (models.IncidentReport, error) {
	path := filepath.Join(s.reportDir, SummaryFileName)
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return models.IncidentReport{
				SchemaVersion:     models.SchemaVersion,
				IncidentType:      models.IncidentNone,
				Severity:          models.SeverityNone,
				RecommendedAction: models.ActionNoop,
				Evidence:          models.Evidence{Reason: models.ReasonMissingMonitoringSummary},
			}, nil
		}
		return models.IncidentReport{}, fmt.Errorf("read monitoring summary: %w", err)
	}

	var summary models.DriftSummary
	if err := json.Unmarshal(raw, &summary); err != nil {
		return models.IncidentReport{}, fmt.Errorf("parse monitoring summary: %w", err)
	}
	if summary.Severity == "" {
		summary.Severity = models.SeverityNone
	}

	if summary.Severity == models.SeverityNone || summary.Severity == models.SeverityLow {
		return models.IncidentReport{
			SchemaVersion:     models.SchemaVersion,
			IncidentType:      models.IncidentNone,
			Severity:          summary.Severity,
			RecommendedAction: models.ActionNoop,
			Evidence:          models.Evidence{Summary: &summary},
		}, nil
	}

	return models.IncidentReport{
		SchemaVersion:     models.SchemaVersion,
		IncidentType:      models.IncidentDrift,
		Severity:          summary.Severity,
		RecommendedAction: models.ActionRetrainAndEvaluate,
		Evidence:          models.Evidence{Summary: &summary},
	}, nil
}
