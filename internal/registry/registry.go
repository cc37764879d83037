// Package registry hosts the experiment-tracking and model-registry store
// the release gate and training gateway operate against: experiments, runs
// with logged metrics, and registered model versions with stage lifecycle.
package registry

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/frauddesk/control-plane/internal/models"
)

var ErrNotFound = errors.New("not found")

// StageArchived is where previously staged versions go when a transition
// explicitly requests archiving. Archiving never happens implicitly.
const StageArchived = "Archived"

type Experiment struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// Run is one training run with its logged scalar metrics.
type Run struct {
	ID           uuid.UUID          `json:"id"`
	ExperimentID uuid.UUID          `json:"experimentId"`
	StartTime    time.Time          `json:"startTime"`
	Metrics      map[string]float64 `json:"metrics"`
}

type Store interface {
	CreateExperiment(ctx context.Context, name string) (Experiment, error)
	GetExperimentByName(ctx context.Context, name string) (Experiment, error)

	CreateRun(ctx context.Context, experimentID uuid.UUID) (Run, error)
	LogMetrics(ctx context.Context, runID uuid.UUID, metrics map[string]float64) (Run, error)
	// LatestRun returns the most recently *started* run, limit 1. A run that
	// finishes out of order can be shadowed by a later-started run; callers
	// that care about completion order must not rely on this.
	LatestRun(ctx context.Context, experimentID uuid.UUID) (Run, error)

	CreateModelVersion(ctx context.Context, model, artifactURI string) (models.ModelVersion, error)
	ListModelVersions(ctx context.Context, model string) ([]models.ModelVersion, error)
	TransitionModelVersionStage(ctx context.Context, model string, version int, stage string, archiveExisting bool) (models.ModelVersion, error)

	Ping(ctx context.Context) error
}
