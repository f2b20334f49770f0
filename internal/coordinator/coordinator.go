// Package coordinator is the protocol-wide entry point shared by every
// project: it gates calls behind roles and the pause switch, fans attribution
// and claim requests out to project backends, and runs each call as one
// unit of work that either commits entirely or leaves no trace.
package coordinator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"attributionHub/internal/access"
	"attributionHub/internal/fees"
	"attributionHub/internal/metrics"
	"attributionHub/internal/model"
	"attributionHub/internal/probe"
	"attributionHub/internal/ratelimit"
	"attributionHub/internal/registry"
	"attributionHub/internal/state"
)

// ProjectBackend is the per-project contract surface the coordinator calls.
// While a call is in flight backends reach the coordinator only through the
// Session they are handed; the exported Coordinator methods would block.
type ProjectBackend interface {
	Attribute(ctx context.Context, session Session, records [][]byte, feeCollector common.Address) error
	SettleClaim(ctx context.Context, session Session, currency, claimant common.Address, unitIDs, amounts []*uint256.Int) (model.Settlement, error)
}

// Transactional backends are told whether the call that touched them committed.
type Transactional interface {
	Commit()
	Rollback()
}

// Directory resolves project addresses to backends.
type Directory interface {
	Backend(project common.Address) (ProjectBackend, bool)
}

// Persister receives every committed change set. An error fails the call.
type Persister interface {
	Persist(ctx context.Context, changes model.ChangeSet) error
}

// Options configure a Coordinator.
type Options struct {
	Classifier    probe.Classifier
	Projects      Directory
	Persister     Persister
	Metrics       *metrics.Metrics
	Logger        *zap.Logger
	Clock         func() time.Time
	ClaimCooldown time.Duration
	Fees          model.FeeSchedule
	Timing        model.RemovalTiming
}

// InitialRoles are the role holders a new deployment starts with.
type InitialRoles struct {
	Admins      []common.Address
	Attributors []common.Address
	Pausers     []common.Address
}

// Coordinator serializes calls: each public method holds mu for its whole
// duration, which gives every call a total order.
type Coordinator struct {
	mu       sync.Mutex
	inFlight bool
	sequence uint64

	journal  *state.Journal
	registry *registry.Registry
	fees     *fees.Config
	limiter  *ratelimit.Limiter
	ledger   *state.Ledger
	roles    *access.RoleSet
	pause    *access.PauseSwitch

	projects  Directory
	persister Persister
	metrics   *metrics.Metrics
	logger    *zap.Logger
	now       func() time.Time
}

func New(opts Options) (*Coordinator, error) {
	if opts.ClaimCooldown <= 0 {
		return nil, fmt.Errorf("claim cooldown must be positive")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	journal := state.NewJournal()
	c := &Coordinator{
		journal:   journal,
		registry:  registry.New(opts.Classifier, journal, logger),
		fees:      fees.New(opts.Fees, opts.Timing, journal),
		limiter:   ratelimit.New(opts.ClaimCooldown, journal),
		ledger:    state.NewLedger(journal),
		roles:     access.NewRoleSet(journal),
		pause:     access.NewPauseSwitch(journal),
		projects:  opts.Projects,
		persister: opts.Persister,
		metrics:   opts.Metrics,
		logger:    logger,
		now:       clock,
	}

	return c, nil
}

const opBootstrap = "bootstrap"

// Bootstrap commits the first change set of an empty deployment: the
// configured fee schedule, timings and cooldown plus the initial role
// holders. It fails once any change set has been committed or restored.
func (c *Coordinator) Bootstrap(ctx context.Context, roles InitialRoles) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sequence != 0 {
		return c.reject(opBootstrap, common.Address{}, errors.Wrapf(model.ErrInvalidArgument, "deployment already at sequence %d", c.sequence))
	}
	initial := map[model.Role][]common.Address{
		model.RoleAdmin:      roles.Admins,
		model.RoleAttributor: roles.Attributors,
		model.RolePauser:     roles.Pausers,
	}
	return c.execute(ctx, opBootstrap, common.Address{}, func(*call) error {
		c.journal.TouchFees(func() {})
		c.journal.TouchTiming(func() {})
		c.journal.TouchCooldown(func() {})
		for _, role := range model.Roles {
			for _, account := range lo.Uniq(initial[role]) {
				if err := c.roles.Grant(role, account); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// Initialized reports whether any change set has been committed or restored.
func (c *Coordinator) Initialized() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sequence != 0
}

// Restore applies a persisted change set, or a full snapshot, without
// journaling or persisting it again.
func (c *Coordinator) Restore(changes model.ChangeSet) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.registry.Restore(changes.Currencies)
	c.ledger.Restore(changes.Ledger)
	c.fees.Restore(changes.Fees, changes.Timing)
	if changes.Cooldown != nil {
		c.limiter.Restore(*changes.Cooldown)
	}
	c.roles.Restore(changes.Roles)
	if changes.Paused != nil {
		c.pause.Restore(*changes.Paused)
	}
	if changes.Sequence > c.sequence {
		c.sequence = changes.Sequence
	}
}

// Snapshot returns the complete state as a change set.
func (c *Coordinator) Snapshot() model.ChangeSet {
	c.mu.Lock()
	defer c.mu.Unlock()

	schedule := c.fees.Schedule()
	timing := c.fees.Timing()
	cooldown := c.limiter.Cooldown()
	paused := c.pause.Paused()

	var grants []model.RoleGrant
	for _, role := range model.Roles {
		for _, account := range c.roles.Members(role) {
			grants = append(grants, model.RoleGrant{Role: role, Account: account, Granted: true})
		}
	}

	return model.ChangeSet{
		Sequence:   c.sequence,
		Operation:  "snapshot",
		Currencies: c.registry.List(),
		Ledger:     c.ledger.Entries(),
		Fees:       &schedule,
		Timing:     &timing,
		Cooldown:   &cooldown,
		Roles:      grants,
		Paused:     &paused,
	}
}

// call is the state of one in-flight unit of work.
type call struct {
	operation string
	caller    common.Address
	now       time.Time
	backends  []ProjectBackend
	touched   map[common.Address]struct{}
	onCommit  []func()
}

func (tx *call) touch(project common.Address, backend ProjectBackend) {
	if _, ok := tx.touched[project]; ok {
		return
	}
	tx.touched[project] = struct{}{}
	tx.backends = append(tx.backends, backend)
}

// execute runs fn as one unit of work. Every mutation made by fn is undone if
// fn, or persisting its change set, fails. Callers must hold mu.
func (c *Coordinator) execute(ctx context.Context, operation string, caller common.Address, fn func(*call) error) error {
	if !c.journal.Begin() {
		return c.reject(operation, caller, model.ErrReentrantCall)
	}
	tx := &call{
		operation: operation,
		caller:    caller,
		now:       c.now(),
		touched:   make(map[common.Address]struct{}),
	}

	// a panicking backend must not leave the journal open
	settled := false
	defer func() {
		if !settled {
			c.journal.Revert()
			rollback(tx.backends)
		}
	}()

	err := fn(tx)
	var changes model.ChangeSet
	if err == nil {
		changes = c.changeSet(operation, caller, c.journal.Dirty())
		if c.persister != nil && !changes.Empty() {
			if perr := c.persister.Persist(ctx, changes); perr != nil {
				err = fmt.Errorf("persist %s: %w", operation, perr)
			}
		}
	}

	settled = true
	if err != nil {
		c.journal.Revert()
		rollback(tx.backends)
		return c.reject(operation, caller, err)
	}

	c.journal.Commit()
	if !changes.Empty() {
		c.sequence = changes.Sequence
	}
	for _, backend := range tx.backends {
		if t, ok := backend.(Transactional); ok {
			t.Commit()
		}
	}
	for _, fn := range tx.onCommit {
		fn()
	}

	c.metrics.ObserveCall(operation, model.Reason(nil))
	c.logger.Info("operation committed",
		zap.String("operation", operation),
		zap.String("caller", caller.Hex()),
		zap.Uint64("sequence", changes.Sequence),
	)
	return nil
}

func rollback(backends []ProjectBackend) {
	for _, backend := range backends {
		if t, ok := backend.(Transactional); ok {
			t.Rollback()
		}
	}
}

func (c *Coordinator) reject(operation string, caller common.Address, err error) error {
	c.metrics.ObserveCall(operation, model.Reason(err))
	c.logger.Debug("operation rejected",
		zap.String("operation", operation),
		zap.String("caller", caller.Hex()),
		zap.Error(err),
	)
	return err
}

func (c *Coordinator) changeSet(operation string, caller common.Address, dirty state.Dirty) model.ChangeSet {
	changes := model.ChangeSet{
		Sequence:  c.sequence + 1,
		Operation: operation,
		Caller:    caller,
	}
	for _, address := range dirty.Currencies {
		if entry, ok := c.registry.Entry(address); ok {
			changes.Currencies = append(changes.Currencies, entry)
		}
	}
	for _, key := range dirty.Ledger {
		changes.Ledger = append(changes.Ledger, c.ledger.Entry(key))
	}
	if dirty.Fees {
		schedule := c.fees.Schedule()
		changes.Fees = &schedule
	}
	if dirty.Timing {
		timing := c.fees.Timing()
		changes.Timing = &timing
	}
	if dirty.Cooldown {
		cooldown := c.limiter.Cooldown()
		changes.Cooldown = &cooldown
	}
	for _, key := range dirty.Roles {
		changes.Roles = append(changes.Roles, model.RoleGrant{
			Role:    key.Role,
			Account: key.Account,
			Granted: c.roles.Has(key.Role, key.Account),
		})
	}
	if dirty.Paused {
		paused := c.pause.Paused()
		changes.Paused = &paused
	}
	return changes
}
