package access

import (
	"github.com/pkg/errors"

	"attributionHub/internal/model"
	"attributionHub/internal/state"
)

// PauseSwitch is the global pause flag checked at entry of paused-gated calls.
type PauseSwitch struct {
	journal *state.Journal
	paused  bool
}

func NewPauseSwitch(journal *state.Journal) *PauseSwitch {
	if journal == nil {
		journal = state.NewJournal()
	}
	return &PauseSwitch{journal: journal}
}

func (p *PauseSwitch) Paused() bool {
	return p.paused
}

// RequireNotPaused fails with ErrPaused while the switch is set.
func (p *PauseSwitch) RequireNotPaused() error {
	if p.paused {
		return errors.Wrap(model.ErrPaused, "protocol is paused")
	}
	return nil
}

func (p *PauseSwitch) Pause() error {
	if err := p.RequireNotPaused(); err != nil {
		return err
	}
	p.set(true)
	return nil
}

func (p *PauseSwitch) Unpause() error {
	if !p.paused {
		return errors.Wrap(model.ErrNotPaused, "protocol is not paused")
	}
	p.set(false)
	return nil
}

// Restore sets the flag without journaling.
func (p *PauseSwitch) Restore(paused bool) {
	p.paused = paused
}

func (p *PauseSwitch) set(paused bool) {
	prev := p.paused
	p.journal.TouchPaused(func() { p.paused = prev })
	p.paused = paused
}
