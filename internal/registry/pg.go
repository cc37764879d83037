package registry

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/frauddesk/control-plane/internal/models"
)

type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanExperiment(row rowScanner) (Experiment, error) {
	var exp Experiment
	if err := row.Scan(&exp.ID, &exp.Name, &exp.CreatedAt); err != nil {
		return Experiment{}, err
	}
	return exp, nil
}

func scanRun(row rowScanner) (Run, error) {
	var (
		run     Run
		metrics []byte
	)
	if err := row.Scan(&run.ID, &run.ExperimentID, &run.StartTime, &metrics); err != nil {
		return Run{}, err
	}
	run.Metrics = map[string]float64{}
	if len(metrics) > 0 {
		if err := json.Unmarshal(metrics, &run.Metrics); err != nil {
			return Run{}, fmt.Errorf("decode run metrics: %w", err)
		}
	}
	return run, nil
}

func scanModelVersion(row rowScanner) (models.ModelVersion, error) {
	var (
		mv       models.ModelVersion
		artifact sql.NullString
	)
	if err := row.Scan(&mv.Version, &mv.Stage, &artifact); err != nil {
		return models.ModelVersion{}, err
	}
	if artifact.Valid {
		mv.ArtifactURI = artifact.String
	}
	return mv, nil
}

func (s *PGStore) CreateExperiment(ctx context.Context, name string) (Experiment, error) {
	const query = `
		INSERT INTO experiments (id, name)
		VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET name=EXCLUDED.name
		RETURNING id, name, created_at
	`
	exp, err := scanExperiment(s.db.QueryRowContext(ctx, query, uuid.New(), name))
	if err != nil {
		return Experiment{}, fmt.Errorf("insert experiment: %w", err)
	}
	return exp, nil
}

func (s *PGStore) GetExperimentByName(ctx context.Context, name string) (Experiment, error) {
	const query = `SELECT id, name, created_at FROM experiments WHERE name=$1`
	exp, err := scanExperiment(s.db.QueryRowContext(ctx, query, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Experiment{}, ErrNotFound
		}
		return Experiment{}, fmt.Errorf("get experiment: %w", err)
	}
	return exp, nil
}

func (s *PGStore) CreateRun(ctx context.Context, experimentID uuid.UUID) (Run, error) {
	const query = `
		INSERT INTO runs (id, experiment_id, start_time, metrics)
		VALUES ($1, $2, NOW(), '{}')
		RETURNING id, experiment_id, start_time, metrics
	`
	run, err := scanRun(s.db.QueryRowContext(ctx, query, uuid.New(), experimentID))
	if err != nil {
		return Run{}, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

func (s *PGStore) LogMetrics(ctx context.Context, runID uuid.UUID, metrics map[string]float64) (Run, error) {
	payload, err := json.Marshal(metrics)
	if err != nil {
		return Run{}, fmt.Errorf("encode metrics: %w", err)
	}
	const query = `
		UPDATE runs
		SET metrics = metrics || $2::jsonb
		WHERE id=$1
		RETURNING id, experiment_id, start_time, metrics
	`
	run, err := scanRun(s.db.QueryRowContext(ctx, query, runID, payload))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, ErrNotFound
		}
		return Run{}, fmt.Errorf("log metrics: %w", err)
	}
	return run, nil
}

func (s *PGStore) LatestRun(ctx context.Context, experimentID uuid.UUID) (Run, error) {
	const query = `
		SELECT id, experiment_id, start_time, metrics
		FROM runs
		WHERE experiment_id=$1
		ORDER BY start_time DESC
		LIMIT 1
	`
	run, err := scanRun(s.db.QueryRowContext(ctx, query, experimentID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, ErrNotFound
		}
		return Run{}, fmt.Errorf("latest run: %w", err)
	}
	return run, nil
}

func (s *PGStore) CreateModelVersion(ctx context.Context, model, artifactURI string) (models.ModelVersion, error) {
	const query = `
		INSERT INTO model_versions (model_name, version, stage, artifact_uri)
		SELECT $1, COALESCE(MAX(version), 0) + 1, 'None', $2
		FROM model_versions WHERE model_name=$1
		RETURNING version, stage, artifact_uri
	`
	mv, err := scanModelVersion(s.db.QueryRowContext(ctx, query, model, artifactURI))
	if err != nil {
		return models.ModelVersion{}, fmt.Errorf("insert model version: %w", err)
	}
	return mv, nil
}

func (s *PGStore) ListModelVersions(ctx context.Context, model string) ([]models.ModelVersion, error) {
	const query = `
		SELECT version, stage, artifact_uri
		FROM model_versions
		WHERE model_name=$1
		ORDER BY version
	`
	rows, err := s.db.QueryContext(ctx, query, model)
	if err != nil {
		return nil, fmt.Errorf("list model versions: %w", err)
	}
	defer rows.Close()

	var versions []models.ModelVersion
	for rows.Next() {
		mv, err := scanModelVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan model version: %w", err)
		}
		versions = append(versions, mv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate model versions: %w", err)
	}
	return versions, nil
}

func (s *PGStore) TransitionModelVersionStage(ctx context.Context, model string, version int, stage string, archiveExisting bool) (models.ModelVersion, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.ModelVersion{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if archiveExisting {
		const archiveQuery = `
			UPDATE model_versions
			SET stage=$3
			WHERE model_name=$1 AND stage=$2 AND version<>$4
		`
		if _, err := tx.ExecContext(ctx, archiveQuery, model, stage, StageArchived, version); err != nil {
			return models.ModelVersion{}, fmt.Errorf("archive existing versions: %w", err)
		}
	}

	const query = `
		UPDATE model_versions
		SET stage=$3
		WHERE model_name=$1 AND version=$2
		RETURNING version, stage, artifact_uri
	`
	mv, err := scanModelVersion(tx.QueryRowContext(ctx, query, model, version, stage))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.ModelVersion{}, ErrNotFound
		}
		return models.ModelVersion{}, fmt.Errorf("transition model version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return models.ModelVersion{}, fmt.Errorf("commit transition: %w", err)
	}
	return mv, nil
}

func (s *PGStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("db ping: %w", err)
	}
	return nil
}
