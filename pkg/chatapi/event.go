package chatapi

// EventType is the "type" discriminator of a chat stream frame.
type EventType string

const (
	// EventSession binds the exchange to a session id.
	EventSession EventType = "session"

	// EventContent carries an incremental fragment of assistant output.
	EventContent EventType = "content"

	// EventDone ends the stream normally.
	EventDone EventType = "done"

	// EventError aborts the stream. Message is user-facing.
	EventError EventType = "error"

	// EventBlocked ends the stream because the request was refused by
	// policy. Message is user-facing.
	EventBlocked EventType = "blocked"
)

// Valid reports whether t is one of the known event types.
func (t EventType) Valid() bool {
	switch t {
	case EventSession, EventContent, EventDone, EventError, EventBlocked:
		return true
	}
	return false
}

// Terminal reports whether no further events may follow an event of type t.
func (t EventType) Terminal() bool {
	return t == EventDone || t == EventError || t == EventBlocked
}

// Event is a single decoded chat stream frame. Which of the optional fields
// is populated depends on Type:
//
//   - session: SessionID
//   - content: Content
//   - error, blocked: Message
//   - done: none
type Event struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id,omitempty"`
	Content   string    `json:"content,omitempty"`
	Message   string    `json:"message,omitempty"`
}

// Terminal reports whether e ends its stream.
func (e *Event) Terminal() bool {
	return e.Type.Terminal()
}
