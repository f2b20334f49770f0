package access

import (
	"bytes"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"attributionHub/internal/model"
	"attributionHub/internal/state"
)

// RoleSet holds membership for each capability. Roles are independent:
// holding Admin does not imply Attributor or Pauser.
type RoleSet struct {
	journal *state.Journal
	members map[model.Role]map[common.Address]struct{}
}

func NewRoleSet(journal *state.Journal) *RoleSet {
	if journal == nil {
		journal = state.NewJournal()
	}
	members := make(map[model.Role]map[common.Address]struct{}, len(model.Roles))
	for _, role := range model.Roles {
		members[role] = make(map[common.Address]struct{})
	}
	return &RoleSet{journal: journal, members: members}
}

func (r *RoleSet) Has(role model.Role, account common.Address) bool {
	set, ok := r.members[role]
	if !ok {
		return false
	}
	_, ok = set[account]
	return ok
}

// Check allows the call when caller holds role and denies it with ErrUnauthorized otherwise.
func (r *RoleSet) Check(caller common.Address, role model.Role) error {
	if !r.Has(role, caller) {
		return errors.Wrapf(model.ErrUnauthorized, "%s lacks %s role", caller.Hex(), role)
	}
	return nil
}

// Grant adds account to role. Granting a role already held is rejected.
func (r *RoleSet) Grant(role model.Role, account common.Address) error {
	set, ok := r.members[role]
	if !ok {
		return errors.Wrapf(model.ErrInvalidArgument, "unknown role %s", role)
	}
	if account == (common.Address{}) {
		return errors.Wrap(model.ErrInvalidArgument, "cannot grant role to zero address")
	}
	if _, held := set[account]; held {
		return errors.Wrapf(model.ErrInvalidArgument, "%s already holds %s role", account.Hex(), role)
	}

	r.journal.TouchRole(state.RoleKey{Role: role, Account: account}, func() {
		delete(set, account)
	})
	set[account] = struct{}{}
	return nil
}

// Revoke removes account from role. Revoking a role not held is rejected.
func (r *RoleSet) Revoke(role model.Role, account common.Address) error {
	set, ok := r.members[role]
	if !ok {
		return errors.Wrapf(model.ErrInvalidArgument, "unknown role %s", role)
	}
	if _, held := set[account]; !held {
		return errors.Wrapf(model.ErrInvalidArgument, "%s does not hold %s role", account.Hex(), role)
	}

	r.journal.TouchRole(state.RoleKey{Role: role, Account: account}, func() {
		set[account] = struct{}{}
	})
	delete(set, account)
	return nil
}

// Members lists the holders of role in address order.
func (r *RoleSet) Members(role model.Role) []common.Address {
	out := lo.Keys(r.members[role])
	sort.Slice(out, func(a, b int) bool { return bytes.Compare(out[a][:], out[b][:]) < 0 })
	return out
}

// Restore loads persisted grants without journaling.
func (r *RoleSet) Restore(grants []model.RoleGrant) {
	for _, grant := range grants {
		set, ok := r.members[grant.Role]
		if !ok {
			continue
		}
		if grant.Granted {
			set[grant.Account] = struct{}{}
		} else {
			delete(set, grant.Account)
		}
	}
}
