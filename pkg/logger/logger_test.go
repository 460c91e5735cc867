package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/cloudchat/pkg/logger"
)

// jsonLines decodes every JSON record written to buf.
func jsonLines(buf *bytes.Buffer) []map[string]any {
	var records []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		Expect(json.Unmarshal([]byte(line), &rec)).To(Succeed(), line)
		records = append(records, rec)
	}
	return records
}

var timeZero time.Time

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

var _ = Describe("Logger", func() {
	Describe("New", func() {
		It("writes text records at info by default", func() {
			var buf bytes.Buffer
			l := logger.New(logger.WithWriter(&buf))
			l.Info("backend reachable", "target", "http://localhost:8000")
			l.Debug("hidden")

			Expect(buf.String()).To(ContainSubstring("backend reachable"))
			Expect(buf.String()).To(ContainSubstring("target=http://localhost:8000"))
			Expect(buf.String()).NotTo(ContainSubstring("hidden"))
		})

		It("lowers the level with WithDebug and WithLevel", func() {
			var dbg, lvl bytes.Buffer
			logger.New(logger.WithWriter(&dbg), logger.WithDebug(true)).Debug("frame skipped")
			logger.New(logger.WithWriter(&lvl), logger.WithLevel(slog.LevelWarn)).Info("not shown")

			Expect(dbg.String()).To(ContainSubstring("frame skipped"))
			Expect(lvl.String()).To(BeEmpty())
		})

		It("prefers JSON over pretty output", func() {
			var buf bytes.Buffer
			l := logger.New(logger.WithWriter(&buf), logger.WithPretty(true), logger.WithJSON(true))
			l.Info("exchange settled", "outcome", "done", "duration_ms", 42)

			records := jsonLines(&buf)
			Expect(records).To(HaveLen(1))
			Expect(records[0]["msg"]).To(Equal("exchange settled"))
			Expect(records[0]["outcome"]).To(Equal("done"))
			Expect(records[0]["duration_ms"]).To(BeNumerically("==", 42))
		})

		It("renders pretty output for terminals", func() {
			var buf bytes.Buffer
			l := logger.New(logger.WithWriter(&buf), logger.WithPretty(true))
			l.Warn("failed to publish exchange event", "error", "broker down")

			Expect(buf.String()).To(ContainSubstring("failed to publish exchange event"))
			Expect(buf.String()).To(ContainSubstring("broker down"))
			Expect(buf.String()).NotTo(HavePrefix("{"))
		})

		It("copies output to every writer and skips nil ones", func() {
			var a, b bytes.Buffer
			l := logger.New(logger.WithWriters(&a, nil, &b))
			l.Info("stream opened")

			Expect(a.String()).To(ContainSubstring("stream opened"))
			Expect(b.String()).To(Equal(a.String()))
		})
	})

	Describe("Nop", func() {
		It("is disabled at every level", func() {
			l := logger.Nop()
			for _, level := range []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelError} {
				Expect(l.Handler().Enabled(context.Background(), level)).To(BeFalse())
			}
			Expect(func() { l.With("session", "s1").WithGroup("g").Error("x") }).NotTo(Panic())
		})
	})

	Describe("Multi", func() {
		var (
			term, file *bytes.Buffer
			l          *slog.Logger
		)

		// The chat command's setup: an info-level pretty terminal plus a
		// debug-level JSON log file.
		BeforeEach(func() {
			term = &bytes.Buffer{}
			file = &bytes.Buffer{}
			l = logger.Multi(
				logger.New(logger.WithWriter(term), logger.WithPretty(true)),
				logger.New(logger.WithWriter(file), logger.WithJSON(true), logger.WithLevel(slog.LevelDebug)),
			)
		})

		It("sends debug records only to the log file", func() {
			l.Debug("ignoring chat event", "type", "content")

			Expect(term.String()).To(BeEmpty())
			records := jsonLines(file)
			Expect(records).To(HaveLen(1))
			Expect(records[0]["type"]).To(Equal("content"))
		})

		It("sends info records to both", func() {
			l.Info("reply settled")

			Expect(term.String()).To(ContainSubstring("reply settled"))
			Expect(jsonLines(file)).To(HaveLen(1))
		})

		It("carries attrs and groups into every handler", func() {
			l.With("session", "s1").WithGroup("stream").Info("session assigned", "to", "abc")

			Expect(term.String()).To(ContainSubstring("s1"))
			records := jsonLines(file)
			Expect(records).To(HaveLen(1))
			Expect(records[0]["session"]).To(Equal("s1"))
			Expect(records[0]["stream"]).To(HaveKeyWithValue("to", "abc"))
		})

		It("keeps writing to the terminal when the file fails", func() {
			l = logger.Multi(
				logger.New(logger.WithWriter(failingWriter{}), logger.WithJSON(true)),
				logger.New(logger.WithWriter(term)),
			)

			err := l.Handler().Handle(context.Background(), slog.NewRecord(timeZero, slog.LevelInfo, "still here", 0))
			Expect(err).To(MatchError(ContainSubstring("disk full")))
			Expect(term.String()).To(ContainSubstring("still here"))
		})

		It("skips nil loggers", func() {
			m := logger.Multi(nil, logger.New(logger.WithWriter(term)))
			m.Info("ok")
			Expect(term.String()).To(ContainSubstring("ok"))
		})

		It("is disabled when every handler is", func() {
			m := logger.Multi(logger.Nop(), logger.Nop())
			Expect(m.Handler().Enabled(context.Background(), slog.LevelError)).To(BeFalse())
		})
	})
})
