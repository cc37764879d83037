package registry

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/frauddesk/control-plane/internal/models"
)

// MemoryStore is the in-memory registry used by acceptance tests and dev
// mode. Semantics mirror PGStore.
type MemoryStore struct {
	mu          sync.RWMutex
	experiments map[string]Experiment
	runs        map[uuid.UUID]Run
	versions    map[string][]models.ModelVersion

	// test hook: lets tests assign deterministic, strictly increasing start
	// times without sleeping.
	now func() time.Time
}

func NewMemoryStore() *MemoryStore {
	seq := 0
	base := time.Now().UTC()
	return &MemoryStore{
		experiments: map[string]Experiment{},
		runs:        map[uuid.UUID]Run{},
		versions:    map[string][]models.ModelVersion{},
		now: func() time.Time {
			seq++
			return base.Add(time.Duration(seq) * time.Millisecond)
		},
	}
}

func (m *MemoryStore) CreateExperiment(ctx context.Context, name string) (Experiment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if exp, ok := m.experiments[name]; ok {
		return exp, nil
	}
	exp := Experiment{ID: uuid.New(), Name: name, CreatedAt: m.now()}
	m.experiments[name] = exp
	return exp, nil
}

func (m *MemoryStore) GetExperimentByName(ctx context.Context, name string) (Experiment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	exp, ok := m.experiments[name]
	if !ok {
		return Experiment{}, ErrNotFound
	}
	return exp, nil
}

func (m *MemoryStore) CreateRun(ctx context.Context, experimentID uuid.UUID) (Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run := Run{
		ID:           uuid.New(),
		ExperimentID: experimentID,
		StartTime:    m.now(),
		Metrics:      map[string]float64{},
	}
	m.runs[run.ID] = run
	return run, nil
}

func (m *MemoryStore) LogMetrics(ctx context.Context, runID uuid.UUID, metrics map[string]float64) (Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[runID]
	if !ok {
		return Run{}, ErrNotFound
	}
	merged := map[string]float64{}
	for k, v := range run.Metrics {
		merged[k] = v
	}
	for k, v := range metrics {
		merged[k] = v
	}
	run.Metrics = merged
	m.runs[runID] = run
	return run, nil
}

func (m *MemoryStore) LatestRun(ctx context.Context, experimentID uuid.UUID) (Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var (
		latest Run
		found  bool
	)
	for _, run := range m.runs {
		if run.ExperimentID != experimentID {
			continue
		}
		if !found || run.StartTime.After(latest.StartTime) {
			latest = run
			found = true
		}
	}
	if !found {
		return Run{}, ErrNotFound
	}
	return latest, nil
}

func (m *MemoryStore) CreateModelVersion(ctx context.Context, model, artifactURI string) (models.ModelVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := 1
	for _, mv := range m.versions[model] {
		if mv.Version >= next {
			next = mv.Version + 1
		}
	}
	mv := models.ModelVersion{Version: next, Stage: "None", ArtifactURI: artifactURI}
	m.versions[model] = append(m.versions[model], mv)
	return mv, nil
}

// SeedModelVersion registers a version with an explicit number, for tests
// that need non-contiguous version histories.
func (m *MemoryStore) SeedModelVersion(model string, mv models.ModelVersion) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.versions[model] = append(m.versions[model], mv)
}

func (m *MemoryStore) ListModelVersions(ctx context.Context, model string) ([]models.ModelVersion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	versions := make([]models.ModelVersion, len(m.versions[model]))
	copy(versions, m.versions[model])
	return versions, nil
}

func (m *MemoryStore) TransitionModelVersionStage(ctx context.Context, model string, version int, stage string, archiveExisting bool) (models.ModelVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	versions := m.versions[model]
	target := -1
	for i, mv := range versions {
		if mv.Version == version {
			target = i
			break
		}
	}
	if target < 0 {
		return models.ModelVersion{}, ErrNotFound
	}
	if archiveExisting {
		for i, mv := range versions {
			if i != target && mv.Stage == stage {
				versions[i].Stage = StageArchived
			}
		}
	}
	versions[target].Stage = stage
	m.versions[model] = versions
	return versions[target], nil
}

func (m *MemoryStore) Ping(ctx context.Context) error { return nil }
