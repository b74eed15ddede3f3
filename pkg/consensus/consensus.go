// Package consensus reduces a set of final votes to one verdict.
package consensus

import (
	"strings"

	"trident/pkg/agent"
)

// Verdict is the session outcome: approve, reject, or no-consensus.
type Verdict string

const (
	VerdictApprove     Verdict = "approve"
	VerdictReject      Verdict = "reject"
	VerdictNoConsensus Verdict = "no-consensus"
)

// Label is the upper-case heading used in summaries.
func (v Verdict) Label() string {
	switch v {
	case VerdictApprove:
		return "APPROVED"
	case VerdictReject:
		return "REJECTED"
	default:
		return "NO CONSENSUS"
	}
}

// Ballot is one agent's response in one round.
type Ballot struct {
	Agent    agent.Agent    `json:"agent"`
	Response agent.Response `json:"response"`
}

type Tally struct {
	Approve int `json:"approve"`
	Reject  int `json:"reject"`
	Abstain int `json:"abstain"`
}

func (t Tally) Total() int {
	return t.Approve + t.Reject + t.Abstain
}

type Outcome struct {
	Verdict Verdict `json:"verdict"`
	Tally   Tally   `json:"tally"`
	Summary string  `json:"summary"`
}

// Majority is the vote count needed to carry a verdict among n voters.
func Majority(n int) int {
	return (n + 1) / 2
}

// Count tallies ballots by vote.
func Count(ballots []Ballot) Tally {
	var t Tally
	for _, b := range ballots {
		switch b.Response.Vote {
		case agent.VoteApprove:
			t.Approve++
		case agent.VoteReject:
			t.Reject++
		default:
			t.Abstain++
		}
	}
	return t
}

// Resolve decides the verdict for the final round's ballots. Approve is
// checked before reject.
func Resolve(ballots []Ballot) Outcome {
	tally := Count(ballots)
	majority := Majority(tally.Total())

	verdict := VerdictNoConsensus
	switch {
	case tally.Total() == 0:
	case tally.Approve >= majority:
		verdict = VerdictApprove
	case tally.Reject >= majority:
		verdict = VerdictReject
	}

	return Outcome{
		Verdict: verdict,
		Tally:   tally,
		Summary: Summarize(verdict, ballots),
	}
}

// Summarize renders "LABEL (icon NAME: VOTE / ...)".
func Summarize(verdict Verdict, ballots []Ballot) string {
	parts := make([]string, 0, len(ballots))
	for _, b := range ballots {
		name := b.Agent.Name
		if b.Agent.Icon != "" {
			name = b.Agent.Icon + " " + name
		}
		parts = append(parts, name+": "+strings.ToUpper(string(b.Response.Vote)))
	}

	return verdict.Label() + " (" + strings.Join(parts, " / ") + ")"
}
