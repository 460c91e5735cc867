package session

import "errors"

var (
	// ErrNotAuthenticated is returned by sends when no token is available.
	ErrNotAuthenticated = errors.New("Not authenticated") //nolint:staticcheck // surfaced to users verbatim

	// ErrEmptyMessage is returned when asked to send blank text.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrSessionBusy is returned when the target conversation is still
	// streaming a previous reply.
	ErrSessionBusy = errors.New("conversation is still streaming a reply")

	// ErrInvalidSessionID is returned for an empty session id.
	ErrInvalidSessionID = errors.New("invalid session id")
)

// User-facing error strings.
const (
	errLoadConversation   = "Failed to load conversation"
	errDeleteConversation = "Failed to delete conversation"

	// fallbackReply replaces an error or blocked event that carries no
	// message of its own.
	fallbackReply = "I'm sorry, I couldn't process that request."
)
