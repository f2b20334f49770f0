package probe

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"attributionHub/internal/chain"
	"attributionHub/internal/model"
)

// Classifier assigns a TokenType to a currency address.
type Classifier interface {
	Classify(ctx context.Context, currency common.Address) (model.TokenType, error)
}

// Prober classifies currencies with ordered eth_call probes. The first probe
// that succeeds wins; a failing probe only moves on to the next one.
type Prober struct {
	caller  chain.ContractCaller
	account common.Address
	logger  *zap.Logger
}

var _ Classifier = (*Prober)(nil)

// NewProber builds a Prober. account is used as the holder/owner argument of
// the fungible-token probes, normally the coordinator's own address.
func NewProber(caller chain.ContractCaller, account common.Address, logger *zap.Logger) *Prober {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Prober{caller: caller, account: account, logger: logger}
}

// Classify runs the probe sequence against currency.
func (p *Prober) Classify(ctx context.Context, currency common.Address) (model.TokenType, error) {
	if currency == model.NativeCurrency {
		return model.TokenTypeNative, nil
	}
	if p.caller == nil {
		return 0, fmt.Errorf("chain caller is nil")
	}

	code, err := p.caller.CodeAt(ctx, currency, nil)
	if err != nil {
		return 0, fmt.Errorf("code at %s: %w", currency.Hex(), err)
	}
	if len(code) == 0 {
		return 0, errors.Wrapf(model.ErrInvalidArgument, "currency %s has no deployed code", currency.Hex())
	}

	parsed, err := TokenProbeABI()
	if err != nil {
		return 0, fmt.Errorf("parse probe abi: %w", err)
	}

	if p.probeFungible(ctx, parsed, currency) {
		return model.TokenTypeFungible, nil
	}
	if p.supportsInterface(ctx, parsed, currency, InterfaceIDERC721) {
		return model.TokenTypeUnique, nil
	}
	if p.supportsInterface(ctx, parsed, currency, InterfaceIDERC1155) {
		return model.TokenTypeMulti, nil
	}

	return 0, errors.Wrapf(model.ErrInvalidArgument, "currency %s matches no supported token standard", currency.Hex())
}

func (p *Prober) probeFungible(ctx context.Context, parsed abi.ABI, currency common.Address) bool {
	if _, err := p.call(ctx, parsed, currency, "balanceOf", p.account); err != nil {
		p.logger.Debug("balanceOf probe failed", zap.String("currency", currency.Hex()), zap.Error(err))
		return false
	}
	if _, err := p.call(ctx, parsed, currency, "allowance", p.account, p.account); err != nil {
		p.logger.Debug("allowance probe failed", zap.String("currency", currency.Hex()), zap.Error(err))
		return false
	}
	return true
}

func (p *Prober) supportsInterface(ctx context.Context, parsed abi.ABI, currency common.Address, id [4]byte) bool {
	values, err := p.call(ctx, parsed, currency, "supportsInterface", id)
	if err != nil {
		p.logger.Debug("supportsInterface probe failed",
			zap.String("currency", currency.Hex()),
			zap.String("interface_id", common.Bytes2Hex(id[:])),
			zap.Error(err),
		)
		return false
	}
	supported, ok := values[0].(bool)
	return ok && supported
}

func (p *Prober) call(ctx context.Context, parsed abi.ABI, to common.Address, method string, args ...interface{}) ([]interface{}, error) {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	resp, err := p.caller.CallContract(ctx, ethereum.CallMsg{From: p.account, To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("unpack %s: empty result", method)
	}
	return values, nil
}
