// Package training adapts the external training procedure into the
// pipeline's TrainingResult. The gateway holds no decision logic; a failed
// training call is fatal to the cycle and is never retried, since retraining
// is expensive and registers registry state as a side effect.
package training

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/frauddesk/control-plane/internal/models"
	"github.com/frauddesk/control-plane/internal/registry"
)

// Gateway invokes one training run over the reference dataset. The trainer
// must log auc and average_precision on the run and register the fitted
// model as a new version under the configured model name.
type Gateway interface {
	Train(ctx context.Context, referenceDataset string) (models.TrainingResult, error)
}

// LocalGateway simulates the trainer against the registry store directly:
// it creates a run, logs fixed metrics, and registers a model version. Used
// in dev mode and acceptance tests, where the real trainer service is not
// running.
type LocalGateway struct {
	Store            registry.Store
	ExperimentName   string
	ModelName        string
	AUC              float64
	AveragePrecision float64
	ArtifactURI      string
}

func (g *LocalGateway) Train(ctx context.Context, referenceDataset string) (models.TrainingResult, error) {
	if referenceDataset == "" {
		return models.TrainingResult{}, fmt.Errorf("reference dataset required")
	}
	exp, err := g.Store.CreateExperiment(ctx, g.ExperimentName)
	if err != nil {
		return models.TrainingResult{}, fmt.Errorf("ensure experiment: %w", err)
	}
	run, err := g.Store.CreateRun(ctx, exp.ID)
	if err != nil {
		return models.TrainingResult{}, fmt.Errorf("create run: %w", err)
	}
	if _, err := g.Store.LogMetrics(ctx, run.ID, map[string]float64{
		"auc":               g.AUC,
		"average_precision": g.AveragePrecision,
	}); err != nil {
		return models.TrainingResult{}, fmt.Errorf("log metrics: %w", err)
	}
	artifactURI := g.ArtifactURI
	if artifactURI == "" {
		artifactURI = fmt.Sprintf("file:///tmp/models/%s/%s.json", g.ModelName, uuid.New())
	}
	if _, err := g.Store.CreateModelVersion(ctx, g.ModelName, artifactURI); err != nil {
		return models.TrainingResult{}, fmt.Errorf("register model version: %w", err)
	}
	return models.TrainingResult{
		SchemaVersion:    models.SchemaVersion,
		RunID:            run.ID.String(),
		AUC:              g.AUC,
		AveragePrecision: g.AveragePrecision,
	}, nil
}
