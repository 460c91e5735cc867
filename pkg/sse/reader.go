package sse

import (
	"bufio"
	"errors"
	"io"
	"strings"
	"unicode/utf8"
)

// Reader reads "data: " payloads from a source io.Reader. Bytes are
// accumulated until a newline completes a line, so the sequence of payloads
// does not depend on how the source chunks its reads.
//
// When a tee destination is configured every complete raw line (including
// discarded framing lines) is written to it with its newline restored. This
// lets a caller keep a verbatim transcript of the stream while consuming the
// parsed payloads.
type Reader struct {
	br   *bufio.Reader
	dest io.Writer
	done bool
}

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// WithTee writes every raw line read from the source to w.
func WithTee(w io.Writer) ReaderOption {
	return func(r *Reader) {
		r.dest = w
	}
}

// NewReader returns a Reader that parses payload lines from src.
func NewReader(src io.Reader, opts ...ReaderOption) *Reader {
	r := &Reader{
		br: bufio.NewReaderSize(src, 64*1024),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Next returns the next non-empty payload with the "data: " prefix stripped
// and surrounding whitespace trimmed. It blocks until a complete line is
// available.
//
// When the source is exhausted the trailing partial line, if any, is parsed
// with the same rule and Next then returns io.EOF. Any other read error is
// returned as is.
func (r *Reader) Next() (string, error) {
	for !r.done {
		line, err := r.br.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		if err != nil {
			// io.EOF: whatever is left is the final candidate line.
			r.done = true
		}

		if line != "" && r.dest != nil {
			raw := line
			if !strings.HasSuffix(raw, "\n") {
				raw += "\n"
			}
			if _, werr := io.WriteString(r.dest, raw); werr != nil {
				return "", werr
			}
		}

		if payload, ok := parseLine(line); ok {
			return payload, nil
		}
	}

	return "", io.EOF
}

// parseLine extracts the payload from a single candidate line. Lines that do
// not carry the data prefix, or carry an empty payload, are rejected.
func parseLine(line string) (string, bool) {
	line = strings.TrimSuffix(line, "\n")

	if !strings.HasPrefix(line, DataPrefix) {
		return "", false
	}

	payload := strings.TrimSpace(line[len(DataPrefix):])
	if payload == "" {
		return "", false
	}

	if !utf8.ValidString(payload) {
		payload = strings.ToValidUTF8(payload, string(utf8.RuneError))
	}

	return payload, true
}
