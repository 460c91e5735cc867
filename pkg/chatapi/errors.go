package chatapi

import (
	"errors"
	"fmt"
)

// ErrNoBody is returned when a streamed response arrives without a readable
// body.
var ErrNoBody = errors.New("no response body")

// StatusError is returned when the backend answers with a non-success status.
type StatusError struct {
	// Op names the failed call, e.g. "fetch sessions".
	Op string

	StatusCode int

	// Body holds a bounded prefix of the response body, if any.
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s failed: %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s failed: %d: %s", e.Op, e.StatusCode, e.Body)
}
