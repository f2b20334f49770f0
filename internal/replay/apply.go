package replay

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"attributionHub/internal/config"
	"attributionHub/internal/coordinator"
	"attributionHub/internal/model"
)

type applyFunc func(ctx context.Context, c *coordinator.Coordinator, caller common.Address, op Operation) error

var handlers = map[string]applyFunc{
	"register_currency": func(ctx context.Context, c *coordinator.Coordinator, caller common.Address, op Operation) error {
		currency, limit, err := currencyAndAmount(op)
		if err != nil {
			return err
		}
		_, err = c.RegisterCurrency(ctx, caller, currency, limit)
		return err
	},
	"deactivate_currency": func(ctx context.Context, c *coordinator.Coordinator, caller common.Address, op Operation) error {
		currency, err := op.currency()
		if err != nil {
			return err
		}
		return c.DeactivateCurrency(ctx, caller, currency)
	},
	"set_claim_limit": func(ctx context.Context, c *coordinator.Coordinator, caller common.Address, op Operation) error {
		currency, limit, err := currencyAndAmount(op)
		if err != nil {
			return err
		}
		return c.SetClaimLimit(ctx, caller, currency, limit)
	},
	"set_claim_cooldown":          durationSetter((*coordinator.Coordinator).SetClaimCooldown),
	"set_budget_removal_cooldown": durationSetter((*coordinator.Coordinator).SetBudgetRemovalCooldown),
	"set_budget_removal_window":   durationSetter((*coordinator.Coordinator).SetBudgetRemovalWindow),
	"set_protocol_fee_rate":       rateSetter((*coordinator.Coordinator).SetProtocolFeeRate),
	"set_client_fee_rate":         rateSetter((*coordinator.Coordinator).SetClientFeeRate),
	"set_attributor_fee_rate":     rateSetter((*coordinator.Coordinator).SetAttributorFeeRate),
	"set_nft_fee_amount": func(ctx context.Context, c *coordinator.Coordinator, caller common.Address, op Operation) error {
		amount, err := op.amount()
		if err != nil {
			return err
		}
		return c.SetNFTFeeAmount(ctx, caller, amount)
	},
	"set_nft_fee_currency": func(ctx context.Context, c *coordinator.Coordinator, caller common.Address, op Operation) error {
		currency, err := op.currency()
		if err != nil {
			return err
		}
		return c.SetNFTFeeCurrency(ctx, caller, currency)
	},
	"set_fee_collector": func(ctx context.Context, c *coordinator.Coordinator, caller common.Address, op Operation) error {
		account, err := op.account()
		if err != nil {
			return err
		}
		return c.SetFeeCollector(ctx, caller, account)
	},
	"grant_role":  roleSetter((*coordinator.Coordinator).GrantRole),
	"revoke_role": roleSetter((*coordinator.Coordinator).RevokeRole),
	"pause": func(ctx context.Context, c *coordinator.Coordinator, caller common.Address, _ Operation) error {
		return c.Pause(ctx, caller)
	},
	"unpause": func(ctx context.Context, c *coordinator.Coordinator, caller common.Address, _ Operation) error {
		return c.Unpause(ctx, caller)
	},
	"attribute": func(ctx context.Context, c *coordinator.Coordinator, caller common.Address, op Operation) error {
		batch, err := op.attributions()
		if err != nil {
			return err
		}
		feeCollector := common.Address{}
		if op.FeeCollector != "" {
			if feeCollector, err = config.ParseAddress(op.FeeCollector); err != nil {
				return fmt.Errorf("fee_collector: %w", err)
			}
		}
		return c.Attribute(ctx, caller, batch, feeCollector)
	},
	"claim": func(ctx context.Context, c *coordinator.Coordinator, caller common.Address, op Operation) error {
		checks, err := op.claimChecks()
		if err != nil {
			return err
		}
		_, err = c.Claim(ctx, caller, checks)
		return err
	},
}

// Apply runs one operation against c.
func Apply(ctx context.Context, c *coordinator.Coordinator, op Operation) error {
	handler, ok := handlers[op.Op]
	if !ok {
		return errors.Wrapf(model.ErrInvalidArgument, "unknown operation %q", op.Op)
	}
	caller, err := op.caller()
	if err != nil {
		return errors.Wrapf(model.ErrInvalidArgument, "caller: %v", err)
	}
	return handler(ctx, c, caller, op)
}

func currencyAndAmount(op Operation) (common.Address, *uint256.Int, error) {
	currency, err := op.currency()
	if err != nil {
		return common.Address{}, nil, err
	}
	amount, err := op.amount()
	if err != nil {
		return common.Address{}, nil, err
	}
	return currency, amount, nil
}

func durationSetter(set func(*coordinator.Coordinator, context.Context, common.Address, time.Duration) error) applyFunc {
	return func(ctx context.Context, c *coordinator.Coordinator, caller common.Address, op Operation) error {
		d, err := op.duration()
		if err != nil {
			return err
		}
		return set(c, ctx, caller, d)
	}
}

func rateSetter(set func(*coordinator.Coordinator, context.Context, common.Address, uint64) error) applyFunc {
	return func(ctx context.Context, c *coordinator.Coordinator, caller common.Address, op Operation) error {
		return set(c, ctx, caller, op.Rate)
	}
}

func roleSetter(set func(*coordinator.Coordinator, context.Context, common.Address, model.Role, common.Address) error) applyFunc {
	return func(ctx context.Context, c *coordinator.Coordinator, caller common.Address, op Operation) error {
		role, err := op.role()
		if err != nil {
			return errors.Wrap(model.ErrInvalidArgument, err.Error())
		}
		account, err := op.account()
		if err != nil {
			return err
		}
		return set(c, ctx, caller, role, account)
	}
}
