package coordinator

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"attributionHub/internal/model"
)

// GetFeeSchedule returns an immutable snapshot of the fee schedule. Fetch it
// once per operation instead of reading fields repeatedly.
func (c *Coordinator) GetFeeSchedule() model.FeeSchedule {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fees.Schedule()
}

// GetBudgetRemovalTiming returns the budget removal cooldown and window.
func (c *Coordinator) GetBudgetRemovalTiming() model.RemovalTiming {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fees.Timing()
}

func (c *Coordinator) GetCurrency(currency common.Address) (model.CurrencyEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.registry.Entry(currency)
	if !ok {
		return model.CurrencyEntry{}, errors.Wrapf(model.ErrCurrencyNotAccepted, "currency %s", currency.Hex())
	}
	return entry, nil
}

func (c *Coordinator) TokenType(currency common.Address) (model.TokenType, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registry.TokenType(currency)
}

// ClaimLimit returns the window limit of a registered currency.
func (c *Coordinator) ClaimLimit(currency common.Address) (*uint256.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.registry.Entry(currency)
	if !ok {
		return nil, errors.Wrapf(model.ErrCurrencyNotAccepted, "currency %s", currency.Hex())
	}
	return entry.ClaimLimit, nil
}

func (c *Coordinator) ClaimCooldown() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.limiter.Cooldown()
}

func (c *Coordinator) IsCurrencyAccepted(currency common.Address) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registry.IsAccepted(currency)
}

func (c *Coordinator) ListCurrencies() []model.CurrencyEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registry.List()
}

// ClaimedByUser returns the all-time total user has claimed in currency.
func (c *Coordinator) ClaimedByUser(user, currency common.Address) *uint256.Int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ledger.Total(user, currency)
}

func (c *Coordinator) HasRole(role model.Role, account common.Address) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roles.Has(role, account)
}

func (c *Coordinator) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pause.Paused()
}

// Sequence returns the sequence number of the last persisted change set.
func (c *Coordinator) Sequence() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sequence
}
