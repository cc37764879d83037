package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/frauddesk/control-plane/internal/models"
)

func TestFileRecorderWritesPerStageArtifacts(t *testing.T) {
	ctx := context.Background()
	rec := NewFileRecorder(t.TempDir())

	report := models.IncidentReport{
		SchemaVersion:     models.SchemaVersion,
		IncidentType:      models.IncidentDrift,
		Severity:          models.SeverityHigh,
		RecommendedAction: models.ActionRetrainAndEvaluate,
	}
	if err := rec.Record(ctx, "cycle-1", StageSentinelReport, report); err != nil {
		t.Fatalf("record: %v", err)
	}

	raw, err := rec.ReadRecord("cycle-1", StageSentinelReport)
	if err != nil {
		t.Fatalf("read record: %v", err)
	}
	var decoded models.IncidentReport
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if decoded.IncidentType != models.IncidentDrift || decoded.Severity != models.SeverityHigh {
		t.Fatalf("round trip mismatch: %+v", decoded)
	}
	if decoded.SchemaVersion != models.SchemaVersion {
		t.Fatalf("record must carry schema_version")
	}
}

func TestFileRecorderListCycleRecords(t *testing.T) {
	ctx := context.Background()
	rec := NewFileRecorder(t.TempDir())

	stages := []string{StageSentinelReport, StageExecutionPlan}
	for i, stage := range stages {
		if err := rec.Record(ctx, "cycle-2", stage, map[string]int{"n": i}); err != nil {
			t.Fatalf("record %s: %v", stage, err)
		}
	}

	records, err := rec.ListCycleRecords("cycle-2")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	for _, stage := range stages {
		if _, ok := records[stage]; !ok {
			t.Fatalf("missing %s record", stage)
		}
	}
}

func TestFileRecorderUnknownCycle(t *testing.T) {
	rec := NewFileRecorder(t.TempDir())
	if _, err := rec.ListCycleRecords("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := rec.ReadRecord("nope", StageSentinelReport); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

type failingRecorder struct{ err error }

func (f *failingRecorder) Record(ctx context.Context, cycleID, stage string, payload interface{}) error {
	return f.err
}

type countingRecorder struct{ calls int }

func (c *countingRecorder) Record(ctx context.Context, cycleID, stage string, payload interface{}) error {
	c.calls++
	return nil
}

func TestMultiRecorderSinkFailureIsNonFatal(t *testing.T) {
	primary := &countingRecorder{}
	multi := &MultiRecorder{
		Primary: primary,
		Sinks:   []Recorder{&failingRecorder{err: fmt.Errorf("broker down")}},
	}
	if err := multi.Record(context.Background(), "cycle-3", StageExecutionPlan, nil); err != nil {
		t.Fatalf("sink failure must not fail the record: %v", err)
	}
	if primary.calls != 1 {
		t.Fatalf("primary not written")
	}
}

func TestMultiRecorderPrimaryFailureIsFatal(t *testing.T) {
	sink := &countingRecorder{}
	multi := &MultiRecorder{
		Primary: &failingRecorder{err: fmt.Errorf("disk full")},
		Sinks:   []Recorder{sink},
	}
	if err := multi.Record(context.Background(), "cycle-4", StageExecutionPlan, nil); err == nil {
		t.Fatalf("primary failure must fail the record")
	}
	if sink.calls != 0 {
		t.Fatalf("sinks must not run when the authoritative write failed")
	}
}
