package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"attributionHub/internal/coordinator"
	"attributionHub/internal/model"
)

// restoreState rebuilds c from history. When nothing has ever been
// persisted the configured roles bootstrap the deployment instead; after
// that roles only change through grant and revoke operations.
func restoreState(ctx context.Context, c *coordinator.Coordinator, history []model.ChangeSet, roles coordinator.InitialRoles, logger *zap.Logger) error {
	for _, changes := range history {
		c.Restore(changes)
	}
	if c.Initialized() {
		logger.Info("state restored",
			zap.Int("change_sets", len(history)),
			zap.Uint64("sequence", c.Sequence()),
		)
		return nil
	}

	if err := c.Bootstrap(ctx, roles); err != nil {
		return fmt.Errorf("bootstrap deployment: %w", err)
	}
	logger.Info("deployment bootstrapped",
		zap.Int("admins", len(roles.Admins)),
		zap.Int("attributors", len(roles.Attributors)),
		zap.Int("pausers", len(roles.Pausers)),
		zap.Uint64("sequence", c.Sequence()),
	)
	return nil
}

// snapshotHistory returns snapshot as restore history, or nothing when the
// store has never been written.
func snapshotHistory(snapshot model.ChangeSet) []model.ChangeSet {
	if snapshot.Sequence == 0 && snapshot.Empty() {
		return nil
	}
	return []model.ChangeSet{snapshot}
}
