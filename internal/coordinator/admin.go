package coordinator

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"attributionHub/internal/model"
)

// gated runs fn as a unit of work after checking caller holds role. Admin and
// pauser operations are not blocked by the pause switch.
func (c *Coordinator) gated(ctx context.Context, operation string, caller common.Address, role model.Role, fn func(*call) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.roles.Check(caller, role); err != nil {
		return c.reject(operation, caller, err)
	}
	return c.execute(ctx, operation, caller, fn)
}

// RegisterCurrency classifies currency and accepts it with the given per-window claim limit.
func (c *Coordinator) RegisterCurrency(ctx context.Context, caller, currency common.Address, limit *uint256.Int) (model.CurrencyEntry, error) {
	var entry model.CurrencyEntry
	err := c.gated(ctx, "register_currency", caller, model.RoleAdmin, func(tx *call) error {
		var err error
		entry, err = c.registry.Register(ctx, currency, limit, tx.now)
		return err
	})
	return entry, err
}

func (c *Coordinator) DeactivateCurrency(ctx context.Context, caller, currency common.Address) error {
	return c.gated(ctx, "deactivate_currency", caller, model.RoleAdmin, func(*call) error {
		return c.registry.Deactivate(currency)
	})
}

func (c *Coordinator) SetClaimLimit(ctx context.Context, caller, currency common.Address, limit *uint256.Int) error {
	return c.gated(ctx, "set_claim_limit", caller, model.RoleAdmin, func(*call) error {
		return c.registry.SetLimit(currency, limit)
	})
}

func (c *Coordinator) SetClaimCooldown(ctx context.Context, caller common.Address, cooldown time.Duration) error {
	return c.gated(ctx, "set_claim_cooldown", caller, model.RoleAdmin, func(*call) error {
		return c.limiter.SetCooldown(cooldown)
	})
}

func (c *Coordinator) SetProtocolFeeRate(ctx context.Context, caller common.Address, rate uint64) error {
	return c.gated(ctx, "set_protocol_fee_rate", caller, model.RoleAdmin, func(*call) error {
		return c.fees.SetProtocolFeeRate(rate)
	})
}

func (c *Coordinator) SetClientFeeRate(ctx context.Context, caller common.Address, rate uint64) error {
	return c.gated(ctx, "set_client_fee_rate", caller, model.RoleAdmin, func(*call) error {
		return c.fees.SetClientFeeRate(rate)
	})
}

func (c *Coordinator) SetAttributorFeeRate(ctx context.Context, caller common.Address, rate uint64) error {
	return c.gated(ctx, "set_attributor_fee_rate", caller, model.RoleAdmin, func(*call) error {
		return c.fees.SetAttributorFeeRate(rate)
	})
}

func (c *Coordinator) SetNFTFeeAmount(ctx context.Context, caller common.Address, amount *uint256.Int) error {
	return c.gated(ctx, "set_nft_fee_amount", caller, model.RoleAdmin, func(*call) error {
		return c.fees.SetNFTFeeAmount(amount)
	})
}

func (c *Coordinator) SetNFTFeeCurrency(ctx context.Context, caller, currency common.Address) error {
	return c.gated(ctx, "set_nft_fee_currency", caller, model.RoleAdmin, func(*call) error {
		return c.fees.SetNFTFeeCurrency(currency)
	})
}

func (c *Coordinator) SetFeeCollector(ctx context.Context, caller, collector common.Address) error {
	return c.gated(ctx, "set_fee_collector", caller, model.RoleAdmin, func(*call) error {
		return c.fees.SetFeeCollector(collector)
	})
}

func (c *Coordinator) SetBudgetRemovalCooldown(ctx context.Context, caller common.Address, cooldown time.Duration) error {
	return c.gated(ctx, "set_budget_removal_cooldown", caller, model.RoleAdmin, func(*call) error {
		return c.fees.SetRemovalCooldown(cooldown)
	})
}

func (c *Coordinator) SetBudgetRemovalWindow(ctx context.Context, caller common.Address, window time.Duration) error {
	return c.gated(ctx, "set_budget_removal_window", caller, model.RoleAdmin, func(*call) error {
		return c.fees.SetRemovalWindow(window)
	})
}

func (c *Coordinator) GrantRole(ctx context.Context, caller common.Address, role model.Role, account common.Address) error {
	return c.gated(ctx, "grant_role", caller, model.RoleAdmin, func(*call) error {
		return c.roles.Grant(role, account)
	})
}

func (c *Coordinator) RevokeRole(ctx context.Context, caller common.Address, role model.Role, account common.Address) error {
	return c.gated(ctx, "revoke_role", caller, model.RoleAdmin, func(*call) error {
		return c.roles.Revoke(role, account)
	})
}

func (c *Coordinator) Pause(ctx context.Context, caller common.Address) error {
	return c.gated(ctx, "pause", caller, model.RolePauser, func(*call) error {
		return c.pause.Pause()
	})
}

func (c *Coordinator) Unpause(ctx context.Context, caller common.Address) error {
	return c.gated(ctx, "unpause", caller, model.RolePauser, func(*call) error {
		return c.pause.Unpause()
	})
}
