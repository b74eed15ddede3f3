// Package progress renders a live terminal view of a deliberation session,
// driven by the session's bus events.
package progress

import (
	"context"
	"errors"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"trident/pkg/agent"
	"trident/pkg/bus"
)

// ErrInterrupted is returned when the user quits the view before the session
// finishes.
var ErrInterrupted = errors.New("deliberation interrupted")

// Run shows progress for the session run executes, until it finishes. The
// view reads events from b and writes to out.
func Run(ctx context.Context, b *bus.Bus, agents []agent.Agent, question string, rounds int, out io.Writer, run SessionFunc) error {
	events, unsubscribe := b.Subscribe(ctx, 0)
	defer unsubscribe()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := newModel(runCtx, run, events, agents, question, rounds)
	program := tea.NewProgram(m, tea.WithOutput(out), tea.WithContext(ctx))
	final, err := program.Run()
	if err != nil {
		return err
	}

	fm, ok := final.(*model)
	if !ok || !fm.finished {
		return ErrInterrupted
	}

	return fm.err
}
