// Package chatapi is the client side of the chat backend: session CRUD calls
// and the streamed chat endpoint, decoded into typed events.
package chatapi

import "time"

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single chat message.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Session is the summary of a persisted conversation as returned by the
// session listing endpoint.
type Session struct {
	SessionID string `json:"session_id"`
	Title     string `json:"title"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// UpdatedTime parses UpdatedAt. The zero time is returned when the server
// sent something that is not RFC 3339.
func (s Session) UpdatedTime() time.Time {
	t, err := time.Parse(time.RFC3339Nano, s.UpdatedAt)
	if err != nil {
		return time.Time{}
	}
	return t
}

// SessionDetail is a session together with its full message history.
type SessionDetail struct {
	Session
	Messages []Message `json:"messages"`
}

// ChatRequest is the body of a chat request. A nil SessionID starts a new
// conversation; it is sent as JSON null.
type ChatRequest struct {
	SessionID *string `json:"session_id"`
	Message   string  `json:"message"`
}
