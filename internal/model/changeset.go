package model

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// RoleGrant records role membership for one account after a call.
type RoleGrant struct {
	Role    Role
	Account common.Address
	Granted bool
}

// ChangeSet lists every piece of state a committed call touched, with its
// value after the call.
type ChangeSet struct {
	Sequence   uint64
	Operation  string
	Caller     common.Address
	Currencies []CurrencyEntry
	Ledger     []LedgerEntry
	Fees       *FeeSchedule
	Timing     *RemovalTiming
	Cooldown   *time.Duration
	Roles      []RoleGrant
	Paused     *bool
}

func (c ChangeSet) Empty() bool {
	return len(c.Currencies) == 0 && len(c.Ledger) == 0 && c.Fees == nil &&
		c.Timing == nil && c.Cooldown == nil && len(c.Roles) == 0 && c.Paused == nil
}
