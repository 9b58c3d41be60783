package ui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"travelcrm/internal/config"
	"travelcrm/internal/crm"
	"travelcrm/internal/logger"
	"travelcrm/internal/mirror"
	"travelcrm/internal/pipeline"
)

// Deps are the collaborators the interface drives.
type Deps struct {
	Controller *pipeline.Controller
	Mirror     *mirror.Mirror
	Config     *config.Store
	Log        logger.Logger
}

// Program wraps the Bubble Tea program lifecycle.
type Program struct {
	program *tea.Program
}

// NewProgram constructs a new interactive CRM session. Mirror changes are
// forwarded into the program's update loop.
func NewProgram(ctx context.Context, deps Deps) *Program {
	m := newModel(ctx, deps)
	p := &Program{program: tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))}
	deps.Mirror.OnChange(func(c crm.Collection) {
		p.program.Send(mirrorUpdatedMsg{collection: c})
	})
	return p
}

// Run launches the Bubble Tea program and blocks until it exits.
func (p *Program) Run() error {
	if p == nil || p.program == nil {
		return fmt.Errorf("nil program")
	}
	_, err := p.program.Run()
	return err
}

// SetupFailed reports a mirror start-up error on the home page.
func (p *Program) SetupFailed(err error) {
	p.program.Send(setupFailedMsg{err: err})
}
