// Package sse provides a minimal line-framed reader for the chat stream
// carried in an HTTP response body. Each significant line has the form
//
//	data: {"type":"content","content":"Hi"}
//
// and everything else (blank keep-alive lines, comments, "event:" or "id:"
// fields) is protocol framing that the reader discards.
//
// Unlike a full SSE parser, events are not delimited by blank lines: every
// "data: " line is one complete payload.
package sse

// DataPrefix is the literal marker a line must begin with to carry a payload.
const DataPrefix = "data: "
