package progress

import "github.com/charmbracelet/lipgloss"

// theme groups reusable styles for the progress view.
type theme struct {
	header     lipgloss.Style
	question   lipgloss.Style
	divider    lipgloss.Style
	roundDone  lipgloss.Style
	roundBusy  lipgloss.Style
	roundIdle  lipgloss.Style
	agentName  lipgloss.Style
	pending    lipgloss.Style
	approve    lipgloss.Style
	reject     lipgloss.Style
	abstain    lipgloss.Style
	summary    lipgloss.Style
	statusBusy lipgloss.Style
	statusDone lipgloss.Style
	statusErr  lipgloss.Style
}

func defaultTheme() theme {
	return theme{
		header: lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("88")),
		question: lipgloss.NewStyle().
			Foreground(lipgloss.Color("223")),
		divider: lipgloss.NewStyle().
			Foreground(lipgloss.Color("130")),
		roundDone: lipgloss.NewStyle().
			Foreground(lipgloss.Color("114")).
			Bold(true),
		roundBusy: lipgloss.NewStyle().
			Foreground(lipgloss.Color("222")).
			Bold(true),
		roundIdle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")),
		agentName: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("229")),
		pending: lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")),
		approve: lipgloss.NewStyle().
			Foreground(lipgloss.Color("114")).
			Bold(true),
		reject: lipgloss.NewStyle().
			Foreground(lipgloss.Color("203")).
			Bold(true),
		abstain: lipgloss.NewStyle().
			Foreground(lipgloss.Color("222")).
			Bold(true),
		summary: lipgloss.NewStyle().
			Foreground(lipgloss.Color("250")),
		statusBusy: lipgloss.NewStyle().
			Foreground(lipgloss.Color("222")).
			Bold(true),
		statusDone: lipgloss.NewStyle().
			Foreground(lipgloss.Color("114")).
			Bold(true),
		statusErr: lipgloss.NewStyle().
			Foreground(lipgloss.Color("203")).
			Bold(true),
	}
}

func (t theme) vote(v string) lipgloss.Style {
	switch v {
	case "approve":
		return t.approve
	case "reject":
		return t.reject
	default:
		return t.abstain
	}
}
