package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"trident/pkg/consensus"
	"trident/pkg/deliberation"
)

var (
	roundTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("223"))
	agentStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("229"))
	hintStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	reasoningStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("250")).PaddingLeft(4)
	voteStyles      = map[string]lipgloss.Style{
		"approve": lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("114")),
		"reject":  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		"abstain": lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("222")),
	}
	verdictStyles = map[consensus.Verdict]lipgloss.Style{
		consensus.VerdictApprove:     lipgloss.NewStyle().Bold(true).Padding(0, 1).Foreground(lipgloss.Color("16")).Background(lipgloss.Color("114")),
		consensus.VerdictReject:      lipgloss.NewStyle().Bold(true).Padding(0, 1).Foreground(lipgloss.Color("231")).Background(lipgloss.Color("160")),
		consensus.VerdictNoConsensus: lipgloss.NewStyle().Bold(true).Padding(0, 1).Foreground(lipgloss.Color("16")).Background(lipgloss.Color("222")),
	}
)

// renderResult formats a finished session for the terminal. Reasoning is
// shown for the final round, or for every round when verbose.
func renderResult(r *deliberation.Result, verbose bool) string {
	if r == nil {
		return ""
	}

	var b strings.Builder
	for i, round := range r.Rounds {
		final := i == len(r.Rounds)-1
		fmt.Fprintf(&b, "%s\n", roundTitleStyle.Render(fmt.Sprintf("Round %d · %s", round.Round, round.Label)))
		for _, ballot := range round.Ballots {
			vote := string(ballot.Response.Vote)
			name := strings.TrimSpace(ballot.Agent.Icon + " " + ballot.Agent.Name)
			if ballot.Agent.Codename != "" {
				name += " (" + ballot.Agent.Codename + ")"
			}
			fmt.Fprintf(&b, "  %s  %s  %s\n",
				agentStyle.Render(name),
				voteStyles[vote].Render(strings.ToUpper(vote)),
				ballot.Response.Summary,
			)
			if (final || verbose) && ballot.Response.Reasoning != "" {
				fmt.Fprintf(&b, "%s\n", reasoningStyle.Render(ballot.Response.Reasoning))
			}
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "%s\n", verdictStyles[r.Verdict].Render(r.Summary))
	fmt.Fprintf(&b, "%s\n", hintStyle.Render(usageLine(r)))
	if verbose {
		fmt.Fprintf(&b, "%s\n", hintStyle.Render("session "+r.SessionID+" · "+r.Target.String()))
	}

	return b.String()
}

func usageLine(r *deliberation.Result) string {
	return fmt.Sprintf("tokens prompt/completion/total: %d/%d/%d · calls: %d · %s",
		r.Usage.PromptTokens,
		r.Usage.CompletionTokens,
		r.Usage.TotalTokens,
		r.Usage.Calls,
		r.Duration.Round(100*time.Millisecond),
	)
}
