package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/viveknathani/dblineage/orchestrator"
)

// Bridge forwards orchestrator notifications to a running program. It is
// created before the program so it can be handed to orchestrator.New;
// notifications before Attach are dropped.
type Bridge struct {
	mu      sync.Mutex
	program *tea.Program
}

func (b *Bridge) Attach(p *tea.Program) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.program = p
}

// OnChange matches orchestrator.WithOnChange. Filter changes notify from
// inside Update, where a blocking Send would deadlock the event loop.
func (b *Bridge) OnChange(status orchestrator.Status) {
	b.mu.Lock()
	p := b.program
	b.mu.Unlock()

	if p != nil {
		go p.Send(StatusMsg(status))
	}
}
