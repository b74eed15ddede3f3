// Package deliberation runs the judges' round-based protocol: an independent
// analysis, an optional deliberation round in which each judge reads the
// others, and a final vote reduced to one verdict.
package deliberation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"trident/pkg/agent"
	"trident/pkg/bus"
	"trident/pkg/consensus"
	"trident/pkg/provider"
	providertypes "trident/pkg/provider/types"
	"trident/pkg/usage"
)

const (
	SingleRound = 1
	FullRounds  = 3
)

var roundLabels = map[int]string{
	1: "Independent Analysis",
	2: "Deliberation",
	3: "Final Vote",
}

// RoundLabel names a round by its 1-based index.
func RoundLabel(round int) string {
	return roundLabels[round]
}

// Querier asks one agent one prompt. *provider.Client implements it.
type Querier interface {
	Query(ctx context.Context, a agent.Agent, prompt string, target provider.Target, tracker *usage.Tracker) (agent.Response, error)
}

// preparer is implemented by queriers that can validate routing up front.
type preparer interface {
	Prepare(target provider.Target, agents []agent.Agent) error
}

// RoundResult is the complete set of ballots for one round, in agent order.
type RoundResult struct {
	Round   int                `json:"round"`
	Label   string             `json:"label"`
	Ballots []consensus.Ballot `json:"ballots"`
}

// Result is everything a finished session hands to the presentation layer.
type Result struct {
	SessionID  string                   `json:"session_id"`
	Question   string                   `json:"question"`
	Target     provider.Target          `json:"target"`
	Verdict    consensus.Verdict        `json:"verdict"`
	Tally      consensus.Tally          `json:"tally"`
	Rounds     []RoundResult            `json:"rounds"`
	FinalVotes []consensus.Ballot       `json:"final_votes"`
	Summary    string                   `json:"summary"`
	Usage      providertypes.TokenUsage `json:"usage"`
	Duration   time.Duration            `json:"duration_ns"`
}

type Orchestrator struct {
	querier Querier
	agents  []agent.Agent
	rounds  int
	events  *bus.Bus
	tracker *usage.Tracker
	newID   func() string
	prompts *promptSet
}

type Option func(*Orchestrator)

// WithRounds selects single-round (1) or full (3) deliberation.
func WithRounds(rounds int) Option {
	return func(o *Orchestrator) {
		o.rounds = rounds
	}
}

// WithEvents publishes session progress to b.
func WithEvents(b *bus.Bus) Option {
	return func(o *Orchestrator) {
		o.events = b
	}
}

// WithTracker makes sessions account usage on t instead of a fresh tracker.
// t is reset at the start of every session, so sessions sharing it must not
// overlap.
func WithTracker(t *usage.Tracker) Option {
	return func(o *Orchestrator) {
		o.tracker = t
	}
}

// WithSessionIDs overrides session ID generation.
func WithSessionIDs(newID func() string) Option {
	return func(o *Orchestrator) {
		o.newID = newID
	}
}

func New(querier Querier, agents []agent.Agent, opts ...Option) (*Orchestrator, error) {
	if querier == nil {
		return nil, errors.New("querier is required")
	}
	if len(agents) == 0 {
		return nil, errors.New("at least one agent is required")
	}

	prompts, err := loadPrompts()
	if err != nil {
		return nil, err
	}

	o := &Orchestrator{
		querier: querier,
		agents:  append([]agent.Agent(nil), agents...),
		rounds:  FullRounds,
		newID:   uuid.NewString,
		prompts: prompts,
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.rounds != SingleRound && o.rounds != FullRounds {
		return nil, fmt.Errorf("rounds must be %d or %d, got %d", SingleRound, FullRounds, o.rounds)
	}

	return o, nil
}

func (o *Orchestrator) Rounds() int {
	return o.rounds
}

// Deliberate runs one session for question. Every round waits for all of its
// queries to settle before the next begins. Any query error aborts the
// session; no partial result is returned.
func (o *Orchestrator) Deliberate(ctx context.Context, question string, target provider.Target) (*Result, error) {
	if strings.TrimSpace(question) == "" {
		return nil, errors.New("question is required")
	}

	sessionID := o.newID()
	log := slog.Default().With("component", "deliberation.orchestrator", "session_id", sessionID)
	started := time.Now()

	tracker := o.tracker
	if tracker == nil {
		tracker = usage.NewTracker()
	}
	tracker.Reset()

	o.publish(ctx, bus.Event{Type: bus.EventSessionStarted, SessionID: sessionID, Rounds: o.rounds, Summary: question})
	log.Info("Deliberation started", "rounds", o.rounds, "target", target.String(), "agents", len(o.agents))

	result, err := o.run(ctx, log, sessionID, question, target, tracker)
	if err != nil {
		log.Error("Deliberation failed", "error", err, "duration_ms", time.Since(started).Milliseconds())
		o.publish(context.WithoutCancel(ctx), bus.Event{Type: bus.EventSessionFailed, SessionID: sessionID, Error: err.Error()})
		return nil, err
	}

	result.Usage = tracker.Snapshot()
	result.Duration = time.Since(started)

	log.Info("Deliberation completed",
		"verdict", result.Verdict,
		"duration_ms", result.Duration.Milliseconds(),
		"total_tokens", result.Usage.TotalTokens,
		"calls", result.Usage.Calls,
	)
	o.publish(ctx, bus.Event{
		Type:      bus.EventSessionCompleted,
		SessionID: sessionID,
		Verdict:   string(result.Verdict),
		Summary:   result.Summary,
	})

	return result, nil
}

func (o *Orchestrator) run(ctx context.Context, log *slog.Logger, sessionID, question string, target provider.Target, tracker *usage.Tracker) (*Result, error) {
	if p, ok := o.querier.(preparer); ok {
		if err := p.Prepare(target, o.agents); err != nil {
			return nil, err
		}
	}

	history := make([]RoundResult, 0, o.rounds)
	for round := 1; round <= o.rounds; round++ {
		prompts, err := o.buildPrompts(round, question, history)
		if err != nil {
			return nil, err
		}

		result, err := o.runRound(ctx, log, sessionID, round, prompts, target, tracker)
		if err != nil {
			return nil, err
		}
		history = append(history, result)
	}

	final := history[len(history)-1].Ballots
	outcome := consensus.Resolve(final)

	return &Result{
		SessionID:  sessionID,
		Question:   question,
		Target:     target,
		Verdict:    outcome.Verdict,
		Tally:      outcome.Tally,
		Rounds:     history,
		FinalVotes: final,
		Summary:    outcome.Summary,
	}, nil
}

// buildPrompts derives each agent's prompt for round from the completed
// rounds before it.
func (o *Orchestrator) buildPrompts(round int, question string, history []RoundResult) ([]string, error) {
	prompts := make([]string, len(o.agents))
	for i, a := range o.agents {
		var (
			prompt string
			err    error
		)
		switch round {
		case 1:
			prompt, err = o.prompts.independent(question)
		case 2:
			prompt, err = o.prompts.deliberation(question, a.Name, history[0].Ballots)
		case 3:
			prompt, err = o.prompts.final(question, a.Name, history[0].Ballots, history[1].Ballots)
		default:
			err = fmt.Errorf("unknown round %d", round)
		}
		if err != nil {
			return nil, err
		}
		prompts[i] = prompt
	}

	return prompts, nil
}

// runRound queries every agent concurrently and waits for all of them.
// Each goroutine writes only its own slot.
func (o *Orchestrator) runRound(ctx context.Context, log *slog.Logger, sessionID string, round int, prompts []string, target provider.Target, tracker *usage.Tracker) (RoundResult, error) {
	label := RoundLabel(round)
	log = log.With("round", round)
	log.Info("Round started", "label", label)
	o.publish(ctx, bus.Event{Type: bus.EventRoundStarted, SessionID: sessionID, Round: round, Rounds: o.rounds, Label: label})

	ballots := make([]consensus.Ballot, len(o.agents))

	var g errgroup.Group
	for i, a := range o.agents {
		g.Go(func() error {
			resp, err := o.querier.Query(ctx, a, prompts[i], target, tracker)
			if err != nil {
				log.Error("Agent query failed", "agent", a.Name, "error", err)
				return fmt.Errorf("round %d: %w", round, err)
			}

			ballots[i] = consensus.Ballot{Agent: a, Response: resp}
			log.Debug("Agent responded", "agent", a.Name, "vote", resp.Vote)
			o.publish(ctx, bus.Event{
				Type:      bus.EventAgentResponded,
				SessionID: sessionID,
				Round:     round,
				Label:     label,
				Agent:     a.Name,
				Vote:      string(resp.Vote),
				Summary:   resp.Summary,
			})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return RoundResult{}, err
	}

	log.Info("Round completed", "label", label)
	o.publish(ctx, bus.Event{Type: bus.EventRoundCompleted, SessionID: sessionID, Round: round, Rounds: o.rounds, Label: label})

	return RoundResult{Round: round, Label: label, Ballots: ballots}, nil
}

func (o *Orchestrator) publish(ctx context.Context, event bus.Event) {
	if o.events == nil {
		return
	}
	o.events.Publish(ctx, event)
}
