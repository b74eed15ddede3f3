package usage

import (
	"sync"
	"testing"

	providertypes "trident/pkg/provider/types"
)

func TestRecordSumsDeltas(t *testing.T) {
	tracker := NewTracker()

	deltas := []providertypes.TokenUsage{
		{PromptTokens: 120, CompletionTokens: 40, TotalTokens: 160},
		{PromptTokens: 90, CompletionTokens: 55, TotalTokens: 145},
		{PromptTokens: 0, CompletionTokens: 0, TotalTokens: 0},
	}
	for _, d := range deltas {
		tracker.Record(d)
	}

	want := providertypes.TokenUsage{PromptTokens: 210, CompletionTokens: 95, TotalTokens: 305, Calls: 3}
	if got := tracker.Snapshot(); got != want {
		t.Fatalf("Snapshot = %+v, want %+v", got, want)
	}
}

func TestRecordIgnoresCallerSuppliedCalls(t *testing.T) {
	tracker := NewTracker()
	tracker.Record(providertypes.TokenUsage{TotalTokens: 1, Calls: 40})

	if got := tracker.Snapshot().Calls; got != 1 {
		t.Fatalf("calls = %d, want 1", got)
	}
}

func TestResetZeroesAllCounters(t *testing.T) {
	tracker := NewTracker()
	tracker.Record(providertypes.TokenUsage{PromptTokens: 1, CompletionTokens: 2, TotalTokens: 3})

	tracker.Reset()

	if got := tracker.Snapshot(); got != (providertypes.TokenUsage{}) {
		t.Fatalf("Snapshot after Reset = %+v, want zero", got)
	}
}

func TestConcurrentRecordDoesNotLoseUpdates(t *testing.T) {
	tracker := NewTracker()

	const workers = 64
	var wg sync.WaitGroup
	wg.Add(workers)
	for range workers {
		go func() {
			defer wg.Done()
			tracker.Record(providertypes.TokenUsage{PromptTokens: 2, CompletionTokens: 3, TotalTokens: 5})
		}()
	}
	wg.Wait()

	want := providertypes.TokenUsage{PromptTokens: 2 * workers, CompletionTokens: 3 * workers, TotalTokens: 5 * workers, Calls: workers}
	if got := tracker.Snapshot(); got != want {
		t.Fatalf("Snapshot = %+v, want %+v", got, want)
	}
}

func TestNilTrackerIsInert(t *testing.T) {
	var tracker *Tracker
	tracker.Record(providertypes.TokenUsage{TotalTokens: 1})
	tracker.Reset()
	if got := tracker.Snapshot(); got != (providertypes.TokenUsage{}) {
		t.Fatalf("nil Snapshot = %+v, want zero", got)
	}
}
