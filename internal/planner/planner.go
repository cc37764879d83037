// Package planner converts an incident report and the loaded policy into an
// execution plan. Plan is a pure function: identical inputs always produce
// an identical plan.
package planner

import (
	"fmt"

	"github.com/frauddesk/control-plane/internal/models"
)

// Plan applies the drift policy's decision table to the sentinel's report.
// The policy is threaded through the plan unmodified so the release stage
// reuses it without reloading.
func Plan(report models.IncidentReport, pol models.Policy) models.ExecutionPlan {
	notes := fmt.Sprintf("incident_type=%s severity=%s", report.IncidentType, report.Severity)

	if report.IncidentType == models.IncidentNone {
		// Severity is deliberately ignored here: no incident means the
		// on_none rule decides, whatever the reported severity was.
		return models.ExecutionPlan{
			SchemaVersion: models.SchemaVersion,
			Action:        pol.DriftPolicy.OnNone.Action,
			Notes:         notes,
			Policy:        pol,
		}
	}

	var action models.Action
	switch report.Severity {
	case models.SeverityLow:
		action = pol.DriftPolicy.OnLow.Action
	case models.SeverityMedium:
		action = pol.DriftPolicy.OnMedium.Action
	default:
		action = pol.DriftPolicy.OnHigh.Action
	}

	return models.ExecutionPlan{
		SchemaVersion: models.SchemaVersion,
		Action:        action,
		Notes:         notes,
		Policy:        pol,
	}
}
