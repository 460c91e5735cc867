package chatapi

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/papercomputeco/cloudchat/pkg/logger"
	"github.com/papercomputeco/cloudchat/pkg/sse"
)

// Stream decodes chat events from a streamed response body. It is
// forward-only: once exhausted or closed it cannot be rewound, a new request
// must be issued instead.
//
// Stream is not safe for concurrent use by multiple goroutines except for
// Close, which may be called at any time.
type Stream struct {
	body   io.ReadCloser
	reader *sse.Reader
	logger *slog.Logger

	finished  bool
	closeOnce sync.Once
	closeErr  error
}

// StreamOption configures a Stream.
type StreamOption func(*streamConfig)

type streamConfig struct {
	logger *slog.Logger
	tee    io.Writer
}

// WithStreamLogger sets the logger used to report discarded frames.
func WithStreamLogger(l *slog.Logger) StreamOption {
	return func(c *streamConfig) {
		c.logger = l
	}
}

// WithStreamTee writes every raw line of the body to w.
func WithStreamTee(w io.Writer) StreamOption {
	return func(c *streamConfig) {
		c.tee = w
	}
}

// NewStream wraps body. The stream owns body and closes it when a terminal
// event is read, when the body is exhausted, or on Close.
func NewStream(body io.ReadCloser, opts ...StreamOption) *Stream {
	cfg := &streamConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = logger.Nop()
	}

	var readerOpts []sse.ReaderOption
	if cfg.tee != nil {
		readerOpts = append(readerOpts, sse.WithTee(cfg.tee))
	}

	return &Stream{
		body:   body,
		reader: sse.NewReader(body, readerOpts...),
		logger: cfg.logger,
	}
}

// Next returns the next event in arrival order. It blocks until an event is
// available and returns nil, nil once the sequence has ended.
//
// The sequence ends right after the first terminal event (done, error or
// blocked), even if the body holds more bytes, or when the body is exhausted.
// Frames that fail to decode are logged and skipped.
func (s *Stream) Next() (*Event, error) {
	for !s.finished {
		payload, err := s.reader.Next()
		if errors.Is(err, io.EOF) {
			s.finish()
			return nil, nil
		}
		if err != nil {
			s.finish()
			return nil, err
		}

		ev := &Event{}
		if err := json.Unmarshal([]byte(payload), ev); err != nil {
			s.logger.Warn("failed to parse chat event",
				"error", err,
				"data", payload,
			)
			continue
		}

		if !ev.Type.Valid() {
			s.logger.Debug("skipping chat event with unknown type",
				"type", string(ev.Type),
			)
			continue
		}

		if ev.Terminal() {
			s.finish()
		}

		return ev, nil
	}

	return nil, nil
}

// Close releases the underlying body. It is safe to call more than once.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.body.Close()
	})
	return s.closeErr
}

func (s *Stream) finish() {
	s.finished = true
	if err := s.Close(); err != nil {
		s.logger.Debug("closing chat stream body", "error", err)
	}
}
