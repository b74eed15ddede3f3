package progress

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"trident/pkg/agent"
	"trident/pkg/bus"
)

// SessionFunc runs one deliberation session to completion.
type SessionFunc func(ctx context.Context) error

type eventMsg bus.Event

type eventsClosedMsg struct{}

type finishedMsg struct {
	err error
}

type agentState struct {
	agent   agent.Agent
	vote    string
	summary string
}

type model struct {
	ctx      context.Context
	run      SessionFunc
	events   <-chan bus.Event
	question string

	theme    theme
	spinner  spinner.Model
	width    int
	rounds   int
	round    int
	label    string
	done     map[int]bool
	agents   []agentState
	verdict  string
	summary  string
	lastErr  string
	finished bool
	err      error
}

func newModel(ctx context.Context, run SessionFunc, events <-chan bus.Event, agents []agent.Agent, question string, rounds int) *model {
	spin := spinner.New()
	spin.Spinner = spinner.Points
	spin.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))

	states := make([]agentState, len(agents))
	for i, a := range agents {
		states[i] = agentState{agent: a}
	}

	return &model{
		ctx:      ctx,
		run:      run,
		events:   events,
		question: strings.TrimSpace(question),
		theme:    defaultTheme(),
		spinner:  spin,
		width:    80,
		rounds:   rounds,
		done:     make(map[int]bool),
		agents:   states,
	}
}

func (m *model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForEvent(m.events), runSessionCmd(m.ctx, m.run))
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = typed.Width
		return m, nil
	case tea.KeyMsg:
		switch typed.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		}
		return m, nil
	case spinner.TickMsg:
		if m.finished {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(typed)
		return m, cmd
	case eventMsg:
		e := bus.Event(typed)
		m.apply(e)
		if e.Terminal() {
			return m, nil
		}
		return m, waitForEvent(m.events)
	case eventsClosedMsg:
		return m, nil
	case finishedMsg:
		m.finished = true
		m.err = typed.err
		if typed.err != nil && m.lastErr == "" {
			m.lastErr = typed.err.Error()
		}
		return m, tea.Quit
	}

	return m, nil
}

// apply folds one session event into the view state.
func (m *model) apply(e bus.Event) {
	switch e.Type {
	case bus.EventSessionStarted:
		if e.Rounds > 0 {
			m.rounds = e.Rounds
		}
	case bus.EventRoundStarted:
		m.round = e.Round
		m.label = e.Label
		for i := range m.agents {
			m.agents[i].vote = ""
			m.agents[i].summary = ""
		}
	case bus.EventAgentResponded:
		for i := range m.agents {
			if m.agents[i].agent.Name == e.Agent {
				m.agents[i].vote = e.Vote
				m.agents[i].summary = e.Summary
			}
		}
	case bus.EventRoundCompleted:
		m.done[e.Round] = true
	case bus.EventSessionCompleted:
		m.verdict = e.Verdict
		m.summary = e.Summary
	case bus.EventSessionFailed:
		m.lastErr = e.Error
	}
}

func (m *model) View() string {
	width := max(40, m.width-2)

	header := m.theme.header.Width(width).Render("⚖️  Trident Deliberation")
	question := m.theme.question.Render(m.question)
	line := m.theme.divider.Render(strings.Repeat("═", width))

	parts := []string{header, question, line, m.roundsLine(), ""}
	for _, s := range m.agents {
		parts = append(parts, m.agentLine(s))
	}
	parts = append(parts, "", m.statusLine())

	return lipgloss.JoinVertical(lipgloss.Left, parts...) + "\n"
}

func (m *model) roundsLine() string {
	segments := make([]string, 0, m.rounds)
	for r := 1; r <= m.rounds; r++ {
		label := fmt.Sprintf("Round %d", r)
		switch {
		case m.done[r]:
			segments = append(segments, m.theme.roundDone.Render("✓ "+label))
		case r == m.round:
			segments = append(segments, m.theme.roundBusy.Render("● "+label+" · "+m.label))
		default:
			segments = append(segments, m.theme.roundIdle.Render("○ "+label))
		}
	}

	return strings.Join(segments, "  ")
}

func (m *model) agentLine(s agentState) string {
	name := m.theme.agentName.Render(strings.TrimSpace(s.agent.Icon + " " + s.agent.Name))
	if s.vote == "" {
		status := m.theme.pending.Render("waiting")
		if !m.finished && m.round > 0 {
			status = m.spinner.View() + " " + m.theme.pending.Render("thinking")
		}
		return name + "  " + status
	}

	vote := m.theme.vote(s.vote).Render(strings.ToUpper(s.vote))
	if s.summary == "" {
		return name + "  " + vote
	}
	return name + "  " + vote + "  " + m.theme.summary.Render(s.summary)
}

func (m *model) statusLine() string {
	switch {
	case m.lastErr != "":
		return m.theme.statusErr.Render("🚨 " + m.lastErr)
	case m.verdict != "":
		return m.theme.statusDone.Render(m.summary)
	case m.finished:
		return m.theme.statusDone.Render("done")
	default:
		return m.theme.statusBusy.Render(m.spinner.View() + " deliberating...")
	}
}

func waitForEvent(events <-chan bus.Event) tea.Cmd {
	return func() tea.Msg {
		e, ok := <-events
		if !ok {
			return eventsClosedMsg{}
		}
		return eventMsg(e)
	}
}

func runSessionCmd(ctx context.Context, run SessionFunc) tea.Cmd {
	return func() tea.Msg {
		return finishedMsg{err: run(ctx)}
	}
}
