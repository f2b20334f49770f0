package replay

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"attributionHub/internal/coordinator"
	"attributionHub/internal/model"
)

// Clock is the coordinator clock during a replay. It reports the time of
// the operation being applied.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *Clock) Set(now time.Time) {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// RunConfig holds runtime settings for a replay.
type RunConfig struct {
	CheckpointPath    string
	CheckpointEnabled bool
}

// Summary counts what a replay did.
type Summary struct {
	Lines   uint64
	Applied int
	Failed  int
	Skipped int
}

// Runner applies operation records through a coordinator in input order.
// A failed operation is logged and counted; the run continues with the next
// line because the coordinator has already rolled the failure back.
type Runner struct {
	coordinator *coordinator.Coordinator
	clock       *Clock
	logger      *zap.Logger
	checkpoint  *CheckpointStore
}

// NewRunner builds a Runner. clock must be the clock the coordinator was
// built with.
func NewRunner(cfg RunConfig, c *coordinator.Coordinator, clock *Clock, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		coordinator: c,
		clock:       clock,
		logger:      logger,
		checkpoint:  NewCheckpointStore(cfg.CheckpointPath, cfg.CheckpointEnabled),
	}
}

// Run replays every operation in input.
func (r *Runner) Run(ctx context.Context, input io.Reader) (Summary, error) {
	var summary Summary
	if r.coordinator == nil {
		return summary, fmt.Errorf("coordinator is nil")
	}
	if r.clock == nil {
		return summary, fmt.Errorf("replay clock is nil")
	}

	var resumeAfter uint64
	cp, ok, err := r.checkpoint.Load()
	if err != nil {
		return summary, err
	}
	if ok {
		sequence := r.coordinator.Sequence()
		resumeAfter, err = cp.ResumeAfter(sequence)
		if err != nil {
			return summary, fmt.Errorf("resume from checkpoint: %w", err)
		}
		r.logger.Info("resume from checkpoint",
			zap.Uint64("last_line", cp.LastLine),
			zap.Uint64("checkpoint_sequence", cp.Sequence),
			zap.Uint64("state_sequence", sequence),
			zap.Uint64("resume_after", resumeAfter),
		)
	}

	scanner := bufio.NewScanner(input)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		summary.Lines++
		lineNo := summary.Lines
		if lineNo <= resumeAfter {
			summary.Skipped++
			continue
		}

		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		if err := r.applyLine(ctx, line); err != nil {
			if ctx.Err() != nil {
				// rolled back by the coordinator; retried on the next run
				return summary, ctx.Err()
			}
			summary.Failed++
			r.logger.Warn("operation failed",
				zap.Uint64("line", lineNo),
				zap.String("reason", model.Reason(err)),
				zap.Error(err),
			)
		} else {
			summary.Applied++
		}

		if err := r.checkpoint.Save(lineNo, r.coordinator.Sequence()); err != nil {
			return summary, err
		}
	}

	if err := scanner.Err(); err != nil {
		return summary, fmt.Errorf("scan input: %w", err)
	}

	r.logger.Info("replay complete",
		zap.Uint64("lines", summary.Lines),
		zap.Int("applied", summary.Applied),
		zap.Int("failed", summary.Failed),
		zap.Int("skipped", summary.Skipped),
	)
	return summary, nil
}

func (r *Runner) applyLine(ctx context.Context, line []byte) error {
	var op Operation
	if err := json.Unmarshal(line, &op); err != nil {
		return fmt.Errorf("parse operation: %w", err)
	}
	if op.Time.IsZero() {
		return fmt.Errorf("operation %q has no time", op.Op)
	}
	r.clock.Set(op.Time.Time)
	return Apply(ctx, r.coordinator, op)
}
