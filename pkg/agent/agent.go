package agent

import (
	"fmt"
	"strings"
)

// Vote is one judge's ternary decision.
type Vote string

const (
	VoteApprove Vote = "approve"
	VoteReject  Vote = "reject"
	VoteAbstain Vote = "abstain"
)

// Votes lists every valid vote in a stable order.
func Votes() []Vote {
	return []Vote{VoteApprove, VoteReject, VoteAbstain}
}

// Valid reports whether v is one of the fixed vote values.
func (v Vote) Valid() bool {
	switch v {
	case VoteApprove, VoteReject, VoteAbstain:
		return true
	default:
		return false
	}
}

// ParseVote accepts a vote in any letter case.
func ParseVote(input string) (Vote, error) {
	v := Vote(strings.ToLower(strings.TrimSpace(input)))
	if !v.Valid() {
		return "", fmt.Errorf("invalid vote %q", input)
	}

	return v, nil
}

// Agent is an immutable judge persona. Values are created once at startup
// and shared read-only across rounds.
type Agent struct {
	Name         string `json:"name"`
	Codename     string `json:"codename"`
	Icon         string `json:"icon"`
	Role         string `json:"role"`
	SystemPrompt string `json:"-"`
}

// Response is the structured answer one agent gives for one round.
type Response struct {
	Vote      Vote   `json:"vote"`
	Reasoning string `json:"reasoning"`
	Summary   string `json:"summary"`
}
