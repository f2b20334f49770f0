package coordinator

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"attributionHub/internal/model"
)

// Session is the coordinator as seen by a project backend during a call.
// Reads observe the in-flight state; the entry points are guarded and
// always fail with ErrReentrantCall while the outer call runs.
type Session interface {
	FeeSchedule() model.FeeSchedule
	BudgetRemovalTiming() model.RemovalTiming
	IsCurrencyAccepted(currency common.Address) bool
	TokenType(currency common.Address) (model.TokenType, error)
	Attribute(ctx context.Context, batch []model.ProjectAttribution, feeCollector common.Address) error
	Claim(ctx context.Context, checks []model.ClaimCheck) ([]model.ClaimReceipt, error)
}

type session struct {
	c       *Coordinator
	project common.Address
}

func (c *Coordinator) session(project common.Address) Session {
	return &session{c: c, project: project}
}

func (s *session) FeeSchedule() model.FeeSchedule {
	return s.c.fees.Schedule()
}

func (s *session) BudgetRemovalTiming() model.RemovalTiming {
	return s.c.fees.Timing()
}

func (s *session) IsCurrencyAccepted(currency common.Address) bool {
	return s.c.registry.IsAccepted(currency)
}

func (s *session) TokenType(currency common.Address) (model.TokenType, error) {
	return s.c.registry.TokenType(currency)
}

func (s *session) Attribute(ctx context.Context, batch []model.ProjectAttribution, feeCollector common.Address) error {
	return s.c.attribute(ctx, s.project, batch, feeCollector)
}

func (s *session) Claim(ctx context.Context, checks []model.ClaimCheck) ([]model.ClaimReceipt, error) {
	return s.c.claim(ctx, s.project, checks)
}
