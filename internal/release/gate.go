// Package release evaluates quality gates against the latest training run
// and, when they pass, promotes the newest registered model version. Every
// non-promoting outcome is a reason code in the result, never an error;
// errors are reserved for registry infrastructure failures.
package release

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/frauddesk/control-plane/internal/models"
	"github.com/frauddesk/control-plane/internal/registry"
)

type Gate struct {
	store      registry.Store
	experiment string
	model      string
	logger     *log.Logger
}

func New(store registry.Store, experiment, model string, logger *log.Logger) *Gate {
	if logger == nil {
		logger = log.New(os.Stdout, "[release] ", log.LstdFlags)
	}
	return &Gate{store: store, experiment: experiment, model: model, logger: logger}
}

// EvaluateAndMaybePromote runs the linear decision chain:
// resolve experiment -> latest run -> quality gates -> policy switch ->
// newest version -> stage transition. Each step's failure is terminal and
// yields a distinct reason code.
//
// The list-then-transition sequence is deliberately not fenced: a version
// registered between the two calls can at worst leave a newer version
// unpromoted until the next cycle. The transition itself always targets the
// exact version number selected here.
func (g *Gate) EvaluateAndMaybePromote(ctx context.Context, pol models.Policy) (models.ReleaseResult, error) {
	exp, err := g.store.GetExperimentByName(ctx, g.experiment)
	if errors.Is(err, registry.ErrNotFound) {
		return blocked(models.ReleaseDetails{Reason: models.ReasonExperimentNotFound}), nil
	}
	if err != nil {
		return models.ReleaseResult{}, fmt.Errorf("resolve experiment: %w", err)
	}

	run, err := g.store.LatestRun(ctx, exp.ID)
	if errors.Is(err, registry.ErrNotFound) {
		return blocked(models.ReleaseDetails{Reason: models.ReasonNoRuns}), nil
	}
	if err != nil {
		return models.ReleaseResult{}, fmt.Errorf("fetch latest run: %w", err)
	}

	// Metrics default to 0.0 when absent, so an unmetered run can only pass
	// vacuous gates.
	auc := run.Metrics["auc"]
	ap := run.Metrics["average_precision"]
	minAUC := pol.QualityGates.MinAUC
	minAP := pol.QualityGates.MinAveragePrecision

	if auc < minAUC || ap < minAP {
		g.logger.Printf("quality gates failed: auc=%.4f (min %.4f) ap=%.4f (min %.4f)", auc, minAUC, ap, minAP)
		return blocked(models.ReleaseDetails{
			Reason:              models.ReasonQualityGatesFailed,
			AUC:                 models.Float64(auc),
			AveragePrecision:    models.Float64(ap),
			MinAUC:              models.Float64(minAUC),
			MinAveragePrecision: models.Float64(minAP),
		}), nil
	}

	if !pol.ReleasePolicy.PromoteIfQualityGatesPass {
		return blocked(models.ReleaseDetails{Reason: models.ReasonPromotionDisabled}), nil
	}

	stage := pol.ReleasePolicy.PromoteStage
	if stage == "" {
		stage = "Staging"
	}

	versions, err := g.store.ListModelVersions(ctx, g.model)
	if err != nil {
		return models.ReleaseResult{}, fmt.Errorf("list model versions: %w", err)
	}
	if len(versions) == 0 {
		return blocked(models.ReleaseDetails{Reason: models.ReasonNoModelVersions}), nil
	}

	// Numeric max, never the registry's "latest" alias.
	latest := versions[0]
	for _, mv := range versions[1:] {
		if mv.Version > latest.Version {
			latest = mv
		}
	}

	if _, err := g.store.TransitionModelVersionStage(ctx, g.model, latest.Version, stage, false); err != nil {
		return models.ReleaseResult{}, fmt.Errorf("transition version %d to %s: %w", latest.Version, stage, err)
	}

	g.logger.Printf("promoted %s version %d to %s (auc=%.4f ap=%.4f)", g.model, latest.Version, stage, auc, ap)
	return models.ReleaseResult{
		SchemaVersion: models.SchemaVersion,
		Promoted:      true,
		Stage:         stage,
		Details: models.ReleaseDetails{
			Model:            g.model,
			Version:          latest.Version,
			AUC:              models.Float64(auc),
			AveragePrecision: models.Float64(ap),
		},
	}, nil
}

func blocked(details models.ReleaseDetails) models.ReleaseResult {
	return models.ReleaseResult{
		SchemaVersion: models.SchemaVersion,
		Promoted:      false,
		Details:       details,
	}
}
