package coordinator

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"attributionHub/internal/model"
)

const (
	opAttribute = "attribute"
	opClaim     = "claim"
)

// Attribute forwards each project's records to that project. Caller must hold
// the Attributor role. Any failure aborts the whole batch.
func (c *Coordinator) Attribute(ctx context.Context, caller common.Address, batch []model.ProjectAttribution, feeCollector common.Address) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attribute(ctx, caller, batch, feeCollector)
}

// Claim settles each check with its project in order, charges the settled
// amount against the currency's claim window and credits the caller's ledger.
// Any rejection aborts the whole call.
func (c *Coordinator) Claim(ctx context.Context, caller common.Address, checks []model.ClaimCheck) ([]model.ClaimReceipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.claim(ctx, caller, checks)
}

func (c *Coordinator) attribute(ctx context.Context, caller common.Address, batch []model.ProjectAttribution, feeCollector common.Address) error {
	if err := c.pause.RequireNotPaused(); err != nil {
		return c.reject(opAttribute, caller, err)
	}
	if err := c.roles.Check(caller, model.RoleAttributor); err != nil {
		return c.reject(opAttribute, caller, err)
	}
	if c.inFlight {
		return c.reject(opAttribute, caller, model.ErrReentrantCall)
	}
	c.inFlight = true
	defer func() { c.inFlight = false }()

	return c.execute(ctx, opAttribute, caller, func(tx *call) error {
		records := 0
		for i, item := range batch {
			backend, err := c.backend(item.Project)
			if err != nil {
				return err
			}
			tx.touch(item.Project, backend)
			if err := backend.Attribute(ctx, c.session(item.Project), item.Records, feeCollector); err != nil {
				return fmt.Errorf("attribute batch item %d on %s: %w", i, item.Project.Hex(), err)
			}
			records += len(item.Records)
		}
		tx.onCommit = append(tx.onCommit, func() {
			c.metrics.ObserveAttribution(records)
			c.logger.Info("attribution forwarded",
				zap.String("attributor", caller.Hex()),
				zap.Int("projects", len(batch)),
				zap.Int("records", records),
				zap.String("fee_collector", feeCollector.Hex()),
			)
		})
		return nil
	})
}

func (c *Coordinator) claim(ctx context.Context, caller common.Address, checks []model.ClaimCheck) ([]model.ClaimReceipt, error) {
	if err := c.pause.RequireNotPaused(); err != nil {
		return nil, c.reject(opClaim, caller, err)
	}
	if c.inFlight {
		return nil, c.reject(opClaim, caller, model.ErrReentrantCall)
	}
	c.inFlight = true
	defer func() { c.inFlight = false }()

	var receipts []model.ClaimReceipt
	err := c.execute(ctx, opClaim, caller, func(tx *call) error {
		receipts = make([]model.ClaimReceipt, 0, len(checks))
		for i, check := range checks {
			backend, err := c.backend(check.Project)
			if err != nil {
				return err
			}
			tx.touch(check.Project, backend)

			settled, err := backend.SettleClaim(ctx, c.session(check.Project), check.Currency, caller, check.UnitIDs, check.Amounts)
			if err != nil {
				return fmt.Errorf("settle claim %d on %s: %w", i, check.Project.Hex(), err)
			}
			amount := settled.Amount
			if amount == nil {
				amount = new(uint256.Int)
			}

			entry, err := c.registry.RecordClaim(settled.Currency, amount, tx.now, c.limiter)
			if err != nil {
				return err
			}
			total, err := c.ledger.Add(caller, settled.Currency, amount)
			if err != nil {
				return err
			}

			receipt := model.ClaimReceipt{Project: check.Project, Currency: settled.Currency, Amount: new(uint256.Int).Set(amount)}
			receipts = append(receipts, receipt)
			tx.onCommit = append(tx.onCommit, func() {
				c.metrics.ObserveClaim(receipt.Currency, receipt.Amount, entry.CumulativeClaimed, entry.ClaimLimit)
				c.logger.Info("claim settled",
					zap.String("claimant", caller.Hex()),
					zap.String("project", receipt.Project.Hex()),
					zap.String("currency", receipt.Currency.Hex()),
					zap.String("amount", receipt.Amount.Dec()),
					zap.String("window_total", entry.CumulativeClaimed.Dec()),
					zap.String("user_total", total.Dec()),
				)
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return receipts, nil
}

func (c *Coordinator) backend(project common.Address) (ProjectBackend, error) {
	if c.projects == nil {
		return nil, errors.Wrap(model.ErrInvalidArgument, "no project directory configured")
	}
	backend, ok := c.projects.Backend(project)
	if !ok {
		return nil, errors.Wrapf(model.ErrInvalidArgument, "unknown project %s", project.Hex())
	}
	return backend, nil
}
