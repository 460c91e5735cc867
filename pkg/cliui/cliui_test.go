package cliui_test

import (
	"bytes"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/cloudchat/pkg/chatapi"
	"github.com/papercomputeco/cloudchat/pkg/cliui"
)

var _ = Describe("cliui", func() {
	Describe("Step", func() {
		It("returns the error of fn and prints a final line", func() {
			var buf bytes.Buffer
			err := cliui.Step(&buf, "deleting", func() error { return errors.New("nope") })

			Expect(err).To(MatchError("nope"))
			Expect(buf.String()).To(ContainSubstring("deleting"))
			Expect(buf.String()).To(HaveSuffix("\n"))
		})
	})

	Describe("FormatDuration", func() {
		It("uses milliseconds below a second", func() {
			Expect(cliui.FormatDuration(12 * time.Millisecond)).To(Equal("12ms"))
		})

		It("uses seconds otherwise", func() {
			Expect(cliui.FormatDuration(3200 * time.Millisecond)).To(Equal("3.2s"))
		})
	})

	Describe("SessionLine", func() {
		It("shows id, title and update time", func() {
			line := cliui.SessionLine(chatapi.Session{SessionID: "s1", Title: "Hi", UpdatedAt: "not a time"}, false)
			Expect(line).To(ContainSubstring("s1"))
			Expect(line).To(ContainSubstring("Hi"))
			Expect(line).To(ContainSubstring("not a time"))
		})

		It("labels untitled sessions", func() {
			Expect(cliui.SessionLine(chatapi.Session{SessionID: "s1"}, true)).To(ContainSubstring("(untitled)"))
		})
	})

	Describe("PrintMessages", func() {
		It("writes one line per message in order", func() {
			var buf bytes.Buffer
			cliui.PrintMessages(&buf, []chatapi.Message{
				{Role: chatapi.RoleUser, Content: "ping"},
				{Role: chatapi.RoleAssistant, Content: "pong"},
			}, false)

			out := buf.String()
			Expect(out).To(ContainSubstring("ping"))
			Expect(out).To(ContainSubstring("pong"))
			Expect(bytes.Count(buf.Bytes(), []byte("\n"))).To(Equal(2))
		})
	})
})
