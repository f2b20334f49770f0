package project

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"attributionHub/internal/coordinator"
	"attributionHub/internal/model"
)

// Passthrough is an offline backend. It settles exactly the requested amounts
// in the requested currency and counts attributed records. Work done during a
// call is staged until the coordinator commits it.
type Passthrough struct {
	attributed int
	staged     int
}

var (
	_ coordinator.ProjectBackend = (*Passthrough)(nil)
	_ coordinator.Transactional  = (*Passthrough)(nil)
)

func NewPassthrough() *Passthrough {
	return &Passthrough{}
}

func (p *Passthrough) Attribute(_ context.Context, _ coordinator.Session, records [][]byte, _ common.Address) error {
	p.staged += len(records)
	return nil
}

func (p *Passthrough) SettleClaim(_ context.Context, _ coordinator.Session, currency, _ common.Address, unitIDs, amounts []*uint256.Int) (model.Settlement, error) {
	if len(unitIDs) != len(amounts) {
		return model.Settlement{}, errors.Wrapf(model.ErrInvalidArgument, "%d unit ids for %d amounts", len(unitIDs), len(amounts))
	}
	total := new(uint256.Int)
	for _, amount := range amounts {
		if amount == nil {
			continue
		}
		if _, overflow := total.AddOverflow(total, amount); overflow {
			return model.Settlement{}, errors.Wrap(model.ErrInvalidArgument, "claim amounts overflow")
		}
	}
	return model.Settlement{Amount: total, Currency: currency}, nil
}

func (p *Passthrough) Commit() {
	p.attributed += p.staged
	p.staged = 0
}

func (p *Passthrough) Rollback() {
	p.staged = 0
}

// Attributed returns the number of committed attribution records.
func (p *Passthrough) Attributed() int {
	return p.attributed
}
