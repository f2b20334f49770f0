package storage

import (
	"context"

	"attributionHub/internal/model"
)

// Persister receives the change set of every committed call.
type Persister interface {
	Persist(ctx context.Context, changes model.ChangeSet) error
}

// Multi persists to every sink in order and stops at the first failure.
type Multi []Persister

func (m Multi) Persist(ctx context.Context, changes model.ChangeSet) error {
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Persist(ctx, changes); err != nil {
			return err
		}
	}
	return nil
}
