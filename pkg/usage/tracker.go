// Package usage accumulates provider call and token counts for one
// deliberation session.
//
// A Tracker is meant to be owned by a single session. Sharing one across
// concurrently running sessions mixes their totals; give each session its own
// Tracker or serialize the sessions.
package usage

import (
	"sync"

	providertypes "trident/pkg/provider/types"
)

// Tracker is a concurrency-safe usage accumulator.
type Tracker struct {
	mu    sync.Mutex
	total providertypes.TokenUsage
}

// NewTracker returns a zeroed tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Record adds one call and its token delta under a single lock.
func (t *Tracker) Record(delta providertypes.TokenUsage) {
	if t == nil {
		return
	}

	delta.Calls = 1
	t.mu.Lock()
	t.total = t.total.Add(delta)
	t.mu.Unlock()
}

// Snapshot returns the current totals.
func (t *Tracker) Snapshot() providertypes.TokenUsage {
	if t == nil {
		return providertypes.TokenUsage{}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	return t.total
}

// Reset zeroes every counter.
func (t *Tracker) Reset() {
	if t == nil {
		return
	}

	t.mu.Lock()
	t.total = providertypes.TokenUsage{}
	t.mu.Unlock()
}
