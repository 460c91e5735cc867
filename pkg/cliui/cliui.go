// Package cliui provides reusable terminal UI helpers (spinners, step
// indicators, chat transcript lines, markdown rendering) for cloudchat CLI
// commands.
package cliui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/glamour"

	"github.com/papercomputeco/cloudchat/pkg/chatapi"
	"github.com/papercomputeco/cloudchat/pkg/utils"
)

var (
	SuccessMark    = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Render("✓")
	FailMark       = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render("✗")
	StepStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	DimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	KeyStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	ValueStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	NameStyle      = lipgloss.NewStyle().Bold(true)
	HeaderStyle    = lipgloss.NewStyle().Bold(true).Underline(true)
	WarnStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	UserStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	AssistantStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("213"))
	CurrentStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("82"))
	ErrorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	spinnerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
)

var spinnerFrames = []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}

// Step prints an animated spinner while fn runs, then replaces it with
// a ✓ or ✗ checkmark and elapsed time.
func Step(w io.Writer, msg string, fn func() error) error {
	done := make(chan struct{})
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		frame := 0
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		for {
			mu.Lock()
			fmt.Fprintf(w, "\r  %s %s",
				spinnerStyle.Render(spinnerFrames[frame%len(spinnerFrames)]),
				msg,
			)
			mu.Unlock()

			select {
			case <-done:
				return
			case <-ticker.C:
				frame++
			}
		}
	}()

	start := time.Now()
	err := fn()
	elapsed := time.Since(start)

	close(done)
	wg.Wait()

	mu.Lock()
	fmt.Fprintf(w, "\r  %s %s %s\n",
		Mark(err),
		msg,
		StepStyle.Render(fmt.Sprintf("(%s)", FormatDuration(elapsed))),
	)
	mu.Unlock()

	return err
}

// Mark returns a ✓ for nil errors or ✗ for non-nil errors.
func Mark(err error) string {
	if err != nil {
		return FailMark
	}
	return SuccessMark
}

// FormatDuration formats a duration for display (e.g. "12ms" or "3.2s").
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// RoleLabel returns the styled speaker label for a message role.
func RoleLabel(role chatapi.Role) string {
	switch role {
	case chatapi.RoleUser:
		return UserStyle.Render("you")
	case chatapi.RoleAssistant:
		return AssistantStyle.Render("assistant")
	default:
		return StepStyle.Render(string(role))
	}
}

// PrintMessages writes a transcript, one labelled block per message.
// Assistant replies are rendered as markdown when render is true.
func PrintMessages(w io.Writer, msgs []chatapi.Message, render bool) {
	for _, m := range msgs {
		content := m.Content
		if render && m.Role == chatapi.RoleAssistant {
			if out, err := RenderMarkdown(content); err == nil {
				content = strings.TrimRight(out, "\n")
			}
		}
		fmt.Fprintf(w, "%s: %s\n", RoleLabel(m.Role), content)
	}
}

// SessionLine formats one row of a session listing. The current session is
// highlighted.
func SessionLine(s chatapi.Session, current bool) string {
	title := s.Title
	if title == "" {
		title = "(untitled)"
	}
	title = utils.Truncate(title, 48)

	updated := s.UpdatedAt
	if t := s.UpdatedTime(); !t.IsZero() {
		updated = t.Local().Format("2006-01-02 15:04")
	}

	marker := " "
	if current {
		marker = CurrentStyle.Render("*")
		title = CurrentStyle.Render(title)
	}
	return fmt.Sprintf("%s %s  %s  %s", marker, s.SessionID, title, StepStyle.Render(updated))
}

// RenderMarkdown renders markdown content for terminal display using glamour.
func RenderMarkdown(content string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return content, err
	}

	rendered, err := r.Render(content)
	if err != nil {
		return content, err
	}

	return rendered, nil
}
