package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

var ErrNotFound = errors.New("not found")

// FileRecorder writes each stage record as an indent-2 JSON file under
// <dir>/<cycleID>/<stage>.json. A crash mid-cycle leaves a legible partial
// trail: the last completed stage is the last file present.
type FileRecorder struct {
	dir string
}

// NewFileRecorder returns a FileRecorder and ensures the events directory
// exists.
func NewFileRecorder(dir string) *FileRecorder {
	_ = os.MkdirAll(dir, 0o755)
	return &FileRecorder{dir: dir}
}

func (f *FileRecorder) Record(ctx context.Context, cycleID, stage string, payload interface{}) error {
	cycleDir := filepath.Join(f.dir, cycleID)
	if err := os.MkdirAll(cycleDir, 0o755); err != nil {
		return fmt.Errorf("create cycle dir: %w", err)
	}
	b, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s record: %w", stage, err)
	}
	path := filepath.Join(cycleDir, stage+".json")
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write %s record: %w", stage, err)
	}
	return nil
}

// ReadRecord loads one stage record of a cycle.
func (f *FileRecorder) ReadRecord(cycleID, stage string) (json.RawMessage, error) {
	b, err := os.ReadFile(filepath.Join(f.dir, cycleID, stage+".json"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return json.RawMessage(b), nil
}

// ListCycleRecords returns every persisted stage record for a cycle, keyed
// by stage name.
func (f *FileRecorder) ListCycleRecords(cycleID string) (map[string]json.RawMessage, error) {
	entries, err := os.ReadDir(filepath.Join(f.dir, cycleID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	records := map[string]json.RawMessage{}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		stage := entry.Name()[:len(entry.Name())-len(".json")]
		raw, err := f.ReadRecord(cycleID, stage)
		if err != nil {
			return nil, err
		}
		records[stage] = raw
	}
	return records, nil
}
