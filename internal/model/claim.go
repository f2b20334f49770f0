package model

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// ClaimCheck asks one project to settle a claim for the caller.
type ClaimCheck struct {
	Project  common.Address
	Currency common.Address
	UnitIDs  []*uint256.Int
	Amounts  []*uint256.Int
}

// ProjectAttribution carries opaque attribution records for one project.
type ProjectAttribution struct {
	Project common.Address
	Records [][]byte
}

// Settlement is what a project returns for a settled claim.
type Settlement struct {
	Amount   *uint256.Int
	Currency common.Address
}

// LedgerKey identifies a (user, currency) cumulative claim total.
type LedgerKey struct {
	User     common.Address
	Currency common.Address
}

type LedgerEntry struct {
	LedgerKey
	Total *uint256.Int
}

// ClaimReceipt reports one settled and rate-limited claim.
type ClaimReceipt struct {
	Project  common.Address
	Currency common.Address
	Amount   *uint256.Int
}
