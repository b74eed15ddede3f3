package bus

import "time"

type EventType string

const (
	EventSessionStarted   EventType = "session_started"
	EventRoundStarted     EventType = "round_started"
	EventAgentResponded   EventType = "agent_responded"
	EventRoundCompleted   EventType = "round_completed"
	EventSessionCompleted EventType = "session_completed"
	EventSessionFailed    EventType = "session_failed"
)

// Event is one step of a deliberation session. Fields that do not apply to
// the event type are left empty.
type Event struct {
	Type      EventType `json:"type"`
	At        time.Time `json:"at"`
	SessionID string    `json:"session_id"`
	Round     int       `json:"round,omitempty"`
	Rounds    int       `json:"rounds,omitempty"`
	Label     string    `json:"label,omitempty"`
	Agent     string    `json:"agent,omitempty"`
	Vote      string    `json:"vote,omitempty"`
	Verdict   string    `json:"verdict,omitempty"`
	Summary   string    `json:"summary,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// Terminal reports whether no further events follow e in its session.
func (e Event) Terminal() bool {
	return e.Type == EventSessionCompleted || e.Type == EventSessionFailed
}
