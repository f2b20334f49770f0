package registry

import (
	"bytes"
	"context"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"attributionHub/internal/model"
	"attributionHub/internal/probe"
	"attributionHub/internal/ratelimit"
	"attributionHub/internal/state"
)

// Registry stores one entry per currency address. Entries are never deleted;
// deactivation only stops new deposits and registrations from using them.
type Registry struct {
	journal    *state.Journal
	classifier probe.Classifier
	entries    map[common.Address]*model.CurrencyEntry
	logger     *zap.Logger
}

func New(classifier probe.Classifier, journal *state.Journal, logger *zap.Logger) *Registry {
	if journal == nil {
		journal = state.NewJournal()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		journal:    journal,
		classifier: classifier,
		entries:    make(map[common.Address]*model.CurrencyEntry),
		logger:     logger,
	}
}

// Register classifies currency and (re)creates its entry with a fresh window.
// Registering a deactivated currency overwrites its previous entry entirely.
func (r *Registry) Register(ctx context.Context, currency common.Address, limit *uint256.Int, now time.Time) (model.CurrencyEntry, error) {
	if prev, ok := r.entries[currency]; ok && prev.Active {
		return model.CurrencyEntry{}, errors.Wrapf(model.ErrCurrencyAlreadyAccepted, "currency %s", currency.Hex())
	}
	if limit == nil || limit.IsZero() {
		return model.CurrencyEntry{}, errors.Wrap(model.ErrInvalidArgument, "claim limit must be nonzero")
	}

	tokenType, err := r.classify(ctx, currency)
	if err != nil {
		return model.CurrencyEntry{}, err
	}

	entry := model.CurrencyEntry{
		Address:           currency,
		TokenType:         tokenType,
		ClaimLimit:        new(uint256.Int).Set(limit),
		CumulativeClaimed: new(uint256.Int),
		WindowStartedAt:   now,
		Active:            true,
	}
	r.put(entry)

	r.logger.Debug("currency registered",
		zap.String("currency", currency.Hex()),
		zap.Stringer("token_type", tokenType),
		zap.String("limit", limit.Dec()),
	)
	return entry.Clone(), nil
}

func (r *Registry) classify(ctx context.Context, currency common.Address) (model.TokenType, error) {
	if currency == model.NativeCurrency {
		return model.TokenTypeNative, nil
	}
	if r.classifier == nil {
		return 0, errors.Wrap(model.ErrInvalidArgument, "no token classifier configured")
	}
	return r.classifier.Classify(ctx, currency)
}

// Deactivate stops accepting currency. Limiter state and claim history remain.
func (r *Registry) Deactivate(currency common.Address) error {
	entry, ok := r.entries[currency]
	if !ok || !entry.Active {
		return errors.Wrapf(model.ErrCurrencyNotAccepted, "currency %s", currency.Hex())
	}
	next := entry.Clone()
	next.Active = false
	r.put(next)
	return nil
}

// SetLimit changes the per-window limit. Inactive currencies can still be
// updated because their budgets may still be draining.
func (r *Registry) SetLimit(currency common.Address, limit *uint256.Int) error {
	entry, ok := r.entries[currency]
	if !ok {
		return errors.Wrapf(model.ErrCurrencyNotAccepted, "currency %s", currency.Hex())
	}
	if limit == nil || limit.IsZero() {
		return errors.Wrap(model.ErrInvalidArgument, "claim limit must be nonzero")
	}
	if entry.ClaimLimit != nil && entry.ClaimLimit.Eq(limit) {
		return errors.Wrapf(model.ErrInvalidArgument, "claim limit for %s unchanged", currency.Hex())
	}
	next := entry.Clone()
	next.ClaimLimit = new(uint256.Int).Set(limit)
	r.put(next)
	return nil
}

// RecordClaim charges amount against currency's window through limiter.
func (r *Registry) RecordClaim(currency common.Address, amount *uint256.Int, now time.Time, limiter *ratelimit.Limiter) (model.CurrencyEntry, error) {
	entry, ok := r.entries[currency]
	if !ok {
		return model.CurrencyEntry{}, errors.Wrapf(model.ErrCurrencyNotAccepted, "currency %s", currency.Hex())
	}
	next, err := limiter.Apply(*entry, amount, now)
	if err != nil {
		return model.CurrencyEntry{}, err
	}
	r.put(next)
	return next.Clone(), nil
}

// Entry returns a copy of the currency's entry.
func (r *Registry) Entry(currency common.Address) (model.CurrencyEntry, bool) {
	entry, ok := r.entries[currency]
	if !ok {
		return model.CurrencyEntry{}, false
	}
	return entry.Clone(), true
}

// TokenType returns the classification stored for a registered currency.
func (r *Registry) TokenType(currency common.Address) (model.TokenType, error) {
	entry, ok := r.entries[currency]
	if !ok {
		return 0, errors.Wrapf(model.ErrCurrencyNotAccepted, "currency %s", currency.Hex())
	}
	return entry.TokenType, nil
}

func (r *Registry) IsAccepted(currency common.Address) bool {
	entry, ok := r.entries[currency]
	return ok && entry.Active
}

// List returns every entry ever registered, ordered by address.
func (r *Registry) List() []model.CurrencyEntry {
	out := make([]model.CurrencyEntry, 0, len(r.entries))
	for _, entry := range r.entries {
		out = append(out, entry.Clone())
	}
	sort.Slice(out, func(a, b int) bool { return bytes.Compare(out[a].Address[:], out[b].Address[:]) < 0 })
	return out
}

// Restore loads persisted entries without journaling.
func (r *Registry) Restore(entries []model.CurrencyEntry) {
	for _, entry := range entries {
		stored := entry.Clone()
		if stored.CumulativeClaimed == nil {
			stored.CumulativeClaimed = new(uint256.Int)
		}
		r.entries[entry.Address] = &stored
	}
}

func (r *Registry) put(entry model.CurrencyEntry) {
	address := entry.Address
	prev, existed := r.entries[address]
	r.journal.TouchCurrency(address, func() {
		if existed {
			r.entries[address] = prev
		} else {
			delete(r.entries, address)
		}
	})
	stored := entry.Clone()
	r.entries[address] = &stored
}
