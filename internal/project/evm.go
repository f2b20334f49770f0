package project

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/samber/lo"

	"attributionHub/internal/chain"
	"attributionHub/internal/coordinator"
	"attributionHub/internal/model"
)

// EVMBackend simulates the project contract's entry points with eth_call,
// sent from the coordinator's address. A revert rejects the call.
type EVMBackend struct {
	caller      chain.ContractCaller
	project     common.Address
	coordinator common.Address
}

var _ coordinator.ProjectBackend = (*EVMBackend)(nil)

func NewEVMBackend(caller chain.ContractCaller, project, coordinatorAddress common.Address) *EVMBackend {
	return &EVMBackend{caller: caller, project: project, coordinator: coordinatorAddress}
}

func (b *EVMBackend) Attribute(ctx context.Context, _ coordinator.Session, records [][]byte, feeCollector common.Address) error {
	if records == nil {
		records = [][]byte{}
	}
	_, err := b.call(ctx, "attribute", records, feeCollector)
	return err
}

func (b *EVMBackend) SettleClaim(ctx context.Context, _ coordinator.Session, currency, claimant common.Address, unitIDs, amounts []*uint256.Int) (model.Settlement, error) {
	values, err := b.call(ctx, "settleClaim", currency, claimant, toBig(unitIDs), toBig(amounts))
	if err != nil {
		return model.Settlement{}, err
	}
	if len(values) != 2 {
		return model.Settlement{}, fmt.Errorf("settleClaim on %s: expected 2 outputs, got %d", b.project.Hex(), len(values))
	}
	rawAmount, ok := values[0].(*big.Int)
	if !ok {
		return model.Settlement{}, fmt.Errorf("settleClaim on %s: unexpected amount type %T", b.project.Hex(), values[0])
	}
	settledCurrency, ok := values[1].(common.Address)
	if !ok {
		return model.Settlement{}, fmt.Errorf("settleClaim on %s: unexpected currency type %T", b.project.Hex(), values[1])
	}
	amount, overflow := uint256.FromBig(rawAmount)
	if overflow {
		return model.Settlement{}, fmt.Errorf("settleClaim on %s: amount overflows 256 bits", b.project.Hex())
	}
	return model.Settlement{Amount: amount, Currency: settledCurrency}, nil
}

func (b *EVMBackend) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	if b.caller == nil {
		return nil, fmt.Errorf("chain caller is nil")
	}
	parsed, err := ProjectABI()
	if err != nil {
		return nil, fmt.Errorf("parse project abi: %w", err)
	}
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	to := b.project
	resp, err := b.caller.CallContract(ctx, ethereum.CallMsg{From: b.coordinator, To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s on %s: %w", method, b.project.Hex(), err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return values, nil
}

func toBig(values []*uint256.Int) []*big.Int {
	return lo.Map(values, func(v *uint256.Int, _ int) *big.Int {
		if v == nil {
			return new(big.Int)
		}
		return v.ToBig()
	})
}
