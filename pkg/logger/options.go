package logger

import (
	"io"
	"log/slog"
)

// Option configures a logger built by New.
type Option func(*config)

// WithDebug lowers the level to Debug. False restores Info.
func WithDebug(debug bool) Option {
	if debug {
		return WithLevel(slog.LevelDebug)
	}
	return WithLevel(slog.LevelInfo)
}

// WithLevel sets the minimum level directly.
func WithLevel(level slog.Level) Option {
	return func(c *config) {
		c.level = level
	}
}

// WithPretty renders records through charmbracelet/log, for a terminal.
func WithPretty(pretty bool) Option {
	return func(c *config) {
		c.pretty = pretty
	}
}

// WithJSON renders records as JSON lines. It wins over WithPretty, so a
// log file stays machine readable whatever the terminal uses.
func WithJSON(json bool) Option {
	return func(c *config) {
		c.json = json
	}
}

// WithWriter sends output to w instead of stdout.
func WithWriter(w io.Writer) Option {
	return WithWriters(w)
}

// WithWriters sends the same rendered output to every writer. Nil writers
// are skipped.
func WithWriters(ws ...io.Writer) Option {
	return func(c *config) {
		var kept []io.Writer
		for _, w := range ws {
			if w != nil {
				kept = append(kept, w)
			}
		}
		c.writers = kept
	}
}

// WithSource adds the caller's file:line to each record.
func WithSource(source bool) Option {
	return func(c *config) {
		c.source = source
	}
}
