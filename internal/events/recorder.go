// Package events persists the orchestrator's per-stage cycle records. The
// file store is the authoritative record; Kafka and S3 sinks are optional
// downstream copies.
package events

import (
	"context"
	"log"
	"time"
)

// Stage names double as artifact file names (<stage>.json).
const (
	StageSentinelReport = "sentinel_report"
	StageExecutionPlan  = "execution_plan"
	StageTrainingResult = "training_result"
	StageReleaseResult  = "release_result"
)

// Recorder appends one stage record for a cycle. Records are never rewritten:
// each (cycle, stage) pair is written at most once.
type Recorder interface {
	Record(ctx context.Context, cycleID, stage string, payload interface{}) error
}

// Envelope is the wire form used by the Kafka and S3 sinks.
type Envelope struct {
	CycleID string      `json:"cycle_id"`
	Stage   string      `json:"stage"`
	Ts      time.Time   `json:"ts"`
	Payload interface{} `json:"payload"`
}

// MultiRecorder fans a record out to the file store first, then to the
// optional sinks. Only the file write is fatal: a broker or object-store
// outage must not abort a cycle whose authoritative record already exists.
type MultiRecorder struct {
	Primary Recorder
	Sinks   []Recorder
	Logger  *log.Logger
}

func (m *MultiRecorder) Record(ctx context.Context, cycleID, stage string, payload interface{}) error {
	if err := m.Primary.Record(ctx, cycleID, stage, payload); err != nil {
		return err
	}
	for _, sink := range m.Sinks {
		if err := sink.Record(ctx, cycleID, stage, payload); err != nil && m.Logger != nil {
			m.Logger.Printf("secondary sink failed for %s/%s: %v", cycleID, stage, err)
		}
	}
	return nil
}
