package model

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// FeeRateDenominator is the basis-point denominator applied to every fee rate.
const FeeRateDenominator = 10_000

// FeeSchedule is an immutable snapshot of the protocol fee configuration.
type FeeSchedule struct {
	ProtocolFeeRate   uint64
	ClientFeeRate     uint64
	AttributorFeeRate uint64
	NFTFeeAmount      *uint256.Int
	NFTFeeCurrency    common.Address
	FeeCollector      common.Address
}

func (f FeeSchedule) Clone() FeeSchedule {
	out := f
	if f.NFTFeeAmount != nil {
		out.NFTFeeAmount = new(uint256.Int).Set(f.NFTFeeAmount)
	}
	return out
}

// RemovalTiming governs how project budgets can be withdrawn.
type RemovalTiming struct {
	Cooldown time.Duration
	Window   time.Duration
}
