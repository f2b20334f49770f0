// Package ratelimit throttles total claim volume per currency over a
// protocol-wide cooldown window. Volume is aggregated across all users.
package ratelimit

import (
	"time"

	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"attributionHub/internal/model"
	"attributionHub/internal/state"
)

// Limiter holds the cooldown shared by every currency.
type Limiter struct {
	journal  *state.Journal
	cooldown time.Duration
}

func New(cooldown time.Duration, journal *state.Journal) *Limiter {
	if journal == nil {
		journal = state.NewJournal()
	}
	return &Limiter{journal: journal, cooldown: cooldown}
}

func (l *Limiter) Cooldown() time.Duration {
	return l.cooldown
}

// SetCooldown changes the window length. Zero and no-op values are rejected.
func (l *Limiter) SetCooldown(cooldown time.Duration) error {
	if cooldown <= 0 {
		return errors.Wrap(model.ErrInvalidArgument, "claim cooldown must be positive")
	}
	if cooldown == l.cooldown {
		return errors.Wrap(model.ErrInvalidArgument, "claim cooldown unchanged")
	}
	prev := l.cooldown
	l.journal.TouchCooldown(func() { l.cooldown = prev })
	l.cooldown = cooldown
	return nil
}

// Restore sets the cooldown without journaling.
func (l *Limiter) Restore(cooldown time.Duration) {
	l.cooldown = cooldown
}

// Apply returns entry with amount charged against its window at now. On
// rejection the input entry is untouched and an ErrOverLimit is returned.
func (l *Limiter) Apply(entry model.CurrencyEntry, amount *uint256.Int, now time.Time) (model.CurrencyEntry, error) {
	return Apply(entry, amount, now, l.cooldown)
}

// Apply is the limiter rule for an explicit cooldown.
func Apply(entry model.CurrencyEntry, amount *uint256.Int, now time.Time, cooldown time.Duration) (model.CurrencyEntry, error) {
	limit := entry.ClaimLimit
	if limit == nil {
		limit = new(uint256.Int)
	}
	if amount == nil {
		amount = new(uint256.Int)
	}

	if amount.Gt(limit) {
		return entry, errors.Wrapf(model.ErrOverLimit, "claim %s exceeds per-window limit %s for %s",
			amount.Dec(), limit.Dec(), entry.Address.Hex())
	}

	next := entry.Clone()
	if now.After(entry.WindowStartedAt.Add(cooldown)) {
		next.CumulativeClaimed = new(uint256.Int).Set(amount)
		next.WindowStartedAt = now
		return next, nil
	}

	current := entry.CumulativeClaimed
	if current == nil {
		current = new(uint256.Int)
	}
	cumulative, overflow := new(uint256.Int).AddOverflow(current, amount)
	if overflow || cumulative.Gt(limit) {
		return entry, errors.Wrapf(model.ErrOverLimit, "window total would reach %s, limit %s for %s",
			cumulative.Dec(), limit.Dec(), entry.Address.Hex())
	}
	next.CumulativeClaimed = cumulative
	return next, nil
}
