package state

import (
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"attributionHub/internal/model"
)

// Ledger keeps the all-time claimed total per (user, currency). Totals only grow.
type Ledger struct {
	journal *Journal
	totals  map[model.LedgerKey]*uint256.Int
}

func NewLedger(journal *Journal) *Ledger {
	if journal == nil {
		journal = NewJournal()
	}
	return &Ledger{journal: journal, totals: make(map[model.LedgerKey]*uint256.Int)}
}

// Add credits amount to the user's total and returns the new total.
func (l *Ledger) Add(user, currency common.Address, amount *uint256.Int) (*uint256.Int, error) {
	key := model.LedgerKey{User: user, Currency: currency}
	prev, existed := l.totals[key]
	if prev == nil {
		prev = new(uint256.Int)
	}

	next, overflow := new(uint256.Int).AddOverflow(prev, amount)
	if overflow {
		return nil, errors.Wrapf(model.ErrInvalidArgument, "claimed total overflows for %s/%s", user.Hex(), currency.Hex())
	}

	l.journal.TouchLedger(key, func() {
		if existed {
			l.totals[key] = prev
		} else {
			delete(l.totals, key)
		}
	})
	l.totals[key] = next
	return new(uint256.Int).Set(next), nil
}

// Total returns the user's claimed total, zero if nothing was claimed.
func (l *Ledger) Total(user, currency common.Address) *uint256.Int {
	total, ok := l.totals[model.LedgerKey{User: user, Currency: currency}]
	if !ok {
		return new(uint256.Int)
	}
	return new(uint256.Int).Set(total)
}

func (l *Ledger) Entry(key model.LedgerKey) model.LedgerEntry {
	return model.LedgerEntry{LedgerKey: key, Total: l.Total(key.User, key.Currency)}
}

// Entries returns every total in a stable order.
func (l *Ledger) Entries() []model.LedgerEntry {
	keys := make([]model.LedgerKey, 0, len(l.totals))
	for key := range l.totals {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(a, b int) bool { return ledgerKeyLess(keys[a], keys[b]) })

	out := make([]model.LedgerEntry, 0, len(keys))
	for _, key := range keys {
		out = append(out, l.Entry(key))
	}
	return out
}

// Restore loads persisted totals without journaling.
func (l *Ledger) Restore(entries []model.LedgerEntry) {
	for _, entry := range entries {
		if entry.Total == nil {
			continue
		}
		l.totals[entry.LedgerKey] = new(uint256.Int).Set(entry.Total)
	}
}
