package logger

import (
	"context"
	"errors"
	"log/slog"
)

// fanout sends each record to several handlers, each filtering by its own
// level. The chat command pairs the terminal handler with a debug-level
// JSON handler on --log-file this way.
type fanout []slog.Handler

// Multi returns a logger writing through the handlers of all given loggers.
// Nil loggers are skipped.
func Multi(loggers ...*slog.Logger) *slog.Logger {
	var hs fanout
	for _, l := range loggers {
		if l != nil {
			hs = append(hs, l.Handler())
		}
	}
	return slog.New(hs)
}

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle delivers r to every enabled handler. A failing handler, e.g. a log
// file on a full disk, does not keep the record from the others.
func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}
