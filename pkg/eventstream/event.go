package eventstream

import (
	"time"

	"github.com/google/uuid"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeExchangeSettled is emitted once a chat exchange has finished,
	// whatever its outcome.
	EventTypeExchangeSettled = "cloudchat.exchange.settled"
)

// Outcome describes how an exchange ended.
type Outcome string

const (
	// OutcomeDone means the server finished the reply normally.
	OutcomeDone Outcome = "done"

	// OutcomeError means the server reported an error event.
	OutcomeError Outcome = "error"

	// OutcomeBlocked means the server refused the message.
	OutcomeBlocked Outcome = "blocked"

	// OutcomeIncomplete means the stream ended without a terminal event.
	OutcomeIncomplete Outcome = "incomplete"

	// OutcomeFailed means the exchange failed on the client side, before or
	// during streaming.
	OutcomeFailed Outcome = "failed"
)

// ExchangeSettledEvent is a transport-neutral payload describing one settled
// send.
type ExchangeSettledEvent struct {
	SchemaVersion int       `json:"schema_version"`
	EventType     string    `json:"event_type"`
	EventID       string    `json:"event_id"`
	EmittedAt     time.Time `json:"emitted_at"`

	// SessionID is the session the exchange ended up in. It is empty when the
	// server never assigned one.
	SessionID  string  `json:"session_id,omitempty"`
	NewSession bool    `json:"new_session"`
	Outcome    Outcome `json:"outcome"`
	Error      string  `json:"error,omitempty"`

	UserMessage      string `json:"user_message"`
	AssistantMessage string `json:"assistant_message"`

	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	DurationMs  int64     `json:"duration_ms"`
}

// NewExchangeSettledEvent fills in the envelope fields of an exchange event.
func NewExchangeSettledEvent(startedAt, completedAt time.Time) *ExchangeSettledEvent {
	return &ExchangeSettledEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeExchangeSettled,
		EventID:       uuid.NewString(),
		EmittedAt:     completedAt.UTC(),
		StartedAt:     startedAt.UTC(),
		CompletedAt:   completedAt.UTC(),
		DurationMs:    completedAt.Sub(startedAt).Milliseconds(),
	}
}
