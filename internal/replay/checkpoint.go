package replay

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Checkpoint pairs the last input line the runner finished with the
// coordinator sequence that line left behind.
type Checkpoint struct {
	LastLine  uint64    `json:"last_line"`
	Sequence  uint64    `json:"sequence"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ResumeAfter reconciles the checkpoint with the sequence of the restored
// state and returns the last line whose effects are already in that state.
// Every line commits at most one change set, so state can be at most one
// sequence ahead: the line after LastLine was persisted but the process
// stopped before the checkpoint was saved.
func (cp Checkpoint) ResumeAfter(sequence uint64) (uint64, error) {
	switch {
	case sequence == cp.Sequence:
		return cp.LastLine, nil
	case sequence == cp.Sequence+1:
		return cp.LastLine + 1, nil
	case sequence < cp.Sequence:
		return 0, fmt.Errorf("state sequence %d is behind checkpoint sequence %d at line %d", sequence, cp.Sequence, cp.LastLine)
	default:
		return 0, fmt.Errorf("state sequence %d is more than one change set ahead of checkpoint sequence %d at line %d", sequence, cp.Sequence, cp.LastLine)
	}
}

// CheckpointStore keeps one checkpoint in a JSON file. A store without a
// path, or one that is disabled, loads nothing and saves nothing.
type CheckpointStore struct {
	path    string
	enabled bool
}

func NewCheckpointStore(path string, enabled bool) *CheckpointStore {
	return &CheckpointStore{path: path, enabled: enabled && path != ""}
}

func (c *CheckpointStore) Load() (Checkpoint, bool, error) {
	if !c.enabled {
		return Checkpoint{}, false, nil
	}

	data, err := os.ReadFile(c.path)
	switch {
	case os.IsNotExist(err):
		return Checkpoint{}, false, nil
	case err != nil:
		return Checkpoint{}, false, fmt.Errorf("read checkpoint: %w", err)
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return Checkpoint{}, false, fmt.Errorf("parse checkpoint %s: %w", c.path, err)
	}
	return cp, true, nil
}

// Save replaces the checkpoint file through a rename so a crash never
// leaves a partial checkpoint.
func (c *CheckpointStore) Save(line, sequence uint64) error {
	if !c.enabled {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("create checkpoint dir: %w", err)
	}

	data, err := json.Marshal(Checkpoint{LastLine: line, Sequence: sequence, UpdatedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("replace checkpoint: %w", err)
	}
	return nil
}
