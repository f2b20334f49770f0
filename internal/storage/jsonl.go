package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"attributionHub/internal/model"
)

// ChangeLog appends committed change sets to a JSONL file.
type ChangeLog struct {
	path string
	mu   sync.Mutex
}

var _ Persister = (*ChangeLog)(nil)

func NewChangeLog(path string) *ChangeLog {
	return &ChangeLog{path: path}
}

// Persist appends changes as one JSON line.
func (s *ChangeLog) Persist(_ context.Context, changes model.ChangeSet) error {
	line, err := json.Marshal(EncodeChangeSet(changes))
	if err != nil {
		return fmt.Errorf("marshal change set: %w", err)
	}

	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	if _, err := writer.Write(line); err != nil {
		return fmt.Errorf("write change set: %w", err)
	}
	if err := writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("write newline: %w", err)
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	return file.Sync()
}

// LoadChangeLog reads every change set from a JSONL file in order. A missing
// file holds no change sets.
func LoadChangeLog(path string) ([]model.ChangeSet, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open change log: %w", err)
	}
	defer file.Close()

	var out []model.ChangeSet
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var record ChangeRecord
		if err := json.Unmarshal(line, &record); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		changes, err := record.Decode()
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		out = append(out, changes)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read change log: %w", err)
	}
	return out, nil
}
