package state

import (
	"bytes"
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"attributionHub/internal/model"
)

// RoleKey identifies one role membership slot.
type RoleKey struct {
	Role    model.Role
	Account common.Address
}

// Dirty lists the state touched since Begin.
type Dirty struct {
	Currencies []common.Address
	Ledger     []model.LedgerKey
	Roles      []RoleKey
	Fees       bool
	Timing     bool
	Cooldown   bool
	Paused     bool
}

// Journal is the undo log shared by every store. Between Begin and
// Commit/Revert each mutation records how to undo itself; outside a call
// mutations are applied without journaling.
type Journal struct {
	active     bool
	undo       []func()
	currencies map[common.Address]struct{}
	ledger     map[model.LedgerKey]struct{}
	roles      map[RoleKey]struct{}
	fees       bool
	timing     bool
	cooldown   bool
	paused     bool
}

func NewJournal() *Journal {
	j := &Journal{}
	j.reset()
	return j
}

// Begin opens a unit of work. It returns false if one is already open.
func (j *Journal) Begin() bool {
	if j.active {
		return false
	}
	j.reset()
	j.active = true
	return true
}

func (j *Journal) Active() bool {
	return j.active
}

func (j *Journal) record(undo func()) {
	if j.active {
		j.undo = append(j.undo, undo)
	}
}

func (j *Journal) TouchCurrency(address common.Address, undo func()) {
	j.record(undo)
	if j.active {
		j.currencies[address] = struct{}{}
	}
}

func (j *Journal) TouchLedger(key model.LedgerKey, undo func()) {
	j.record(undo)
	if j.active {
		j.ledger[key] = struct{}{}
	}
}

func (j *Journal) TouchRole(key RoleKey, undo func()) {
	j.record(undo)
	if j.active {
		j.roles[key] = struct{}{}
	}
}

func (j *Journal) TouchFees(undo func()) {
	j.record(undo)
	j.fees = j.fees || j.active
}

func (j *Journal) TouchTiming(undo func()) {
	j.record(undo)
	j.timing = j.timing || j.active
}

func (j *Journal) TouchCooldown(undo func()) {
	j.record(undo)
	j.cooldown = j.cooldown || j.active
}

func (j *Journal) TouchPaused(undo func()) {
	j.record(undo)
	j.paused = j.paused || j.active
}

// Revert undoes every recorded mutation in reverse order and closes the unit of work.
func (j *Journal) Revert() {
	for i := len(j.undo) - 1; i >= 0; i-- {
		j.undo[i]()
	}
	j.reset()
}

// Commit closes the unit of work, keeping its mutations, and returns what it touched.
func (j *Journal) Commit() Dirty {
	dirty := j.Dirty()
	j.reset()
	return dirty
}

// Dirty reports what the open unit of work has touched so far.
func (j *Journal) Dirty() Dirty {
	dirty := Dirty{
		Currencies: make([]common.Address, 0, len(j.currencies)),
		Ledger:     make([]model.LedgerKey, 0, len(j.ledger)),
		Roles:      make([]RoleKey, 0, len(j.roles)),
		Fees:       j.fees,
		Timing:     j.timing,
		Cooldown:   j.cooldown,
		Paused:     j.paused,
	}
	for addr := range j.currencies {
		dirty.Currencies = append(dirty.Currencies, addr)
	}
	for key := range j.ledger {
		dirty.Ledger = append(dirty.Ledger, key)
	}
	for key := range j.roles {
		dirty.Roles = append(dirty.Roles, key)
	}

	sort.Slice(dirty.Currencies, func(a, b int) bool {
		return bytes.Compare(dirty.Currencies[a][:], dirty.Currencies[b][:]) < 0
	})
	sort.Slice(dirty.Ledger, func(a, b int) bool {
		return ledgerKeyLess(dirty.Ledger[a], dirty.Ledger[b])
	})
	sort.Slice(dirty.Roles, func(a, b int) bool {
		if dirty.Roles[a].Role != dirty.Roles[b].Role {
			return dirty.Roles[a].Role < dirty.Roles[b].Role
		}
		return bytes.Compare(dirty.Roles[a].Account[:], dirty.Roles[b].Account[:]) < 0
	})
	return dirty
}

func (j *Journal) reset() {
	j.active = false
	j.undo = nil
	j.currencies = make(map[common.Address]struct{})
	j.ledger = make(map[model.LedgerKey]struct{})
	j.roles = make(map[RoleKey]struct{})
	j.fees = false
	j.timing = false
	j.cooldown = false
	j.paused = false
}

func ledgerKeyLess(a, b model.LedgerKey) bool {
	if c := bytes.Compare(a.User[:], b.User[:]); c != 0 {
		return c < 0
	}
	return bytes.Compare(a.Currency[:], b.Currency[:]) < 0
}
