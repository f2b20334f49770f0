package fees

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"attributionHub/internal/model"
	"attributionHub/internal/state"
)

// Config holds the singleton fee schedule and budget removal timing.
// Every setter rejects the value already in effect.
type Config struct {
	journal  *state.Journal
	schedule model.FeeSchedule
	timing   model.RemovalTiming
}

func New(schedule model.FeeSchedule, timing model.RemovalTiming, journal *state.Journal) *Config {
	if journal == nil {
		journal = state.NewJournal()
	}
	schedule = schedule.Clone()
	if schedule.NFTFeeAmount == nil {
		schedule.NFTFeeAmount = new(uint256.Int)
	}
	return &Config{journal: journal, schedule: schedule, timing: timing}
}

// Schedule returns a snapshot of the whole fee schedule.
func (c *Config) Schedule() model.FeeSchedule {
	return c.schedule.Clone()
}

// Timing returns the budget removal cooldown and window.
func (c *Config) Timing() model.RemovalTiming {
	return c.timing
}

func (c *Config) SetProtocolFeeRate(rate uint64) error {
	if err := validateRate("protocol", c.schedule.ProtocolFeeRate, rate); err != nil {
		return err
	}
	c.update(func(s *model.FeeSchedule) { s.ProtocolFeeRate = rate })
	return nil
}

func (c *Config) SetClientFeeRate(rate uint64) error {
	if err := validateRate("client", c.schedule.ClientFeeRate, rate); err != nil {
		return err
	}
	c.update(func(s *model.FeeSchedule) { s.ClientFeeRate = rate })
	return nil
}

func (c *Config) SetAttributorFeeRate(rate uint64) error {
	if err := validateRate("attributor", c.schedule.AttributorFeeRate, rate); err != nil {
		return err
	}
	c.update(func(s *model.FeeSchedule) { s.AttributorFeeRate = rate })
	return nil
}

// SetNFTFeeAmount sets the fixed fee charged for unique and multi-token rewards.
func (c *Config) SetNFTFeeAmount(amount *uint256.Int) error {
	if amount == nil {
		return errors.Wrap(model.ErrInvalidArgument, "nft fee amount is nil")
	}
	if c.schedule.NFTFeeAmount.Eq(amount) {
		return errors.Wrap(model.ErrInvalidArgument, "nft fee amount unchanged")
	}
	value := new(uint256.Int).Set(amount)
	c.update(func(s *model.FeeSchedule) { s.NFTFeeAmount = value })
	return nil
}

func (c *Config) SetNFTFeeCurrency(currency common.Address) error {
	if currency == c.schedule.NFTFeeCurrency {
		return errors.Wrap(model.ErrInvalidArgument, "nft fee currency unchanged")
	}
	c.update(func(s *model.FeeSchedule) { s.NFTFeeCurrency = currency })
	return nil
}

func (c *Config) SetFeeCollector(collector common.Address) error {
	if collector == (common.Address{}) {
		return errors.Wrap(model.ErrInvalidArgument, "fee collector is the zero address")
	}
	if collector == c.schedule.FeeCollector {
		return errors.Wrap(model.ErrInvalidArgument, "fee collector unchanged")
	}
	c.update(func(s *model.FeeSchedule) { s.FeeCollector = collector })
	return nil
}

func (c *Config) SetRemovalCooldown(cooldown time.Duration) error {
	if err := validateDuration("removal cooldown", c.timing.Cooldown, cooldown); err != nil {
		return err
	}
	c.updateTiming(func(t *model.RemovalTiming) { t.Cooldown = cooldown })
	return nil
}

func (c *Config) SetRemovalWindow(window time.Duration) error {
	if err := validateDuration("removal window", c.timing.Window, window); err != nil {
		return err
	}
	c.updateTiming(func(t *model.RemovalTiming) { t.Window = window })
	return nil
}

// Restore replaces schedule and timing without journaling.
func (c *Config) Restore(schedule *model.FeeSchedule, timing *model.RemovalTiming) {
	if schedule != nil {
		c.schedule = schedule.Clone()
		if c.schedule.NFTFeeAmount == nil {
			c.schedule.NFTFeeAmount = new(uint256.Int)
		}
	}
	if timing != nil {
		c.timing = *timing
	}
}

func (c *Config) update(mutate func(*model.FeeSchedule)) {
	prev := c.schedule
	c.journal.TouchFees(func() { c.schedule = prev })
	next := c.schedule.Clone()
	mutate(&next)
	c.schedule = next
}

func (c *Config) updateTiming(mutate func(*model.RemovalTiming)) {
	prev := c.timing
	c.journal.TouchTiming(func() { c.timing = prev })
	next := c.timing
	mutate(&next)
	c.timing = next
}

func validateRate(name string, current, rate uint64) error {
	if rate > model.FeeRateDenominator {
		return errors.Wrapf(model.ErrInvalidArgument, "%s fee rate %d exceeds %d", name, rate, model.FeeRateDenominator)
	}
	if rate == current {
		return errors.Wrapf(model.ErrInvalidArgument, "%s fee rate unchanged", name)
	}
	return nil
}

func validateDuration(name string, current, value time.Duration) error {
	if value <= 0 {
		return errors.Wrapf(model.ErrInvalidArgument, "%s must be positive", name)
	}
	if value == current {
		return errors.Wrapf(model.ErrInvalidArgument, "%s unchanged", name)
	}
	return nil
}
