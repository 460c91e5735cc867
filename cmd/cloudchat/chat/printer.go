package chatcmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/papercomputeco/cloudchat/pkg/chatapi"
	"github.com/papercomputeco/cloudchat/pkg/session"
)

// replyPrinter writes a streaming reply to w as it grows.
type replyPrinter struct {
	mux     *session.Multiplexer
	w       io.Writer
	base    int
	printed string
}

func newReplyPrinter(mux *session.Multiplexer, w io.Writer) *replyPrinter {
	// The reply lands after the messages already shown plus the user's own.
	return &replyPrinter{mux: mux, w: w, base: len(mux.Messages()) + 1}
}

// follow runs send and prints the reply as it streams. Printing has
// finished when follow returns.
func (p *replyPrinter) follow(send func() error) error {
	updates, unsubscribe := p.mux.Subscribe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for range updates {
			p.flush()
		}
	}()

	err := send()
	unsubscribe()
	<-done
	p.flush()
	return err
}

func (p *replyPrinter) flush() {
	msgs := p.mux.Messages()
	if len(msgs) <= p.base {
		return
	}
	reply := msgs[p.base]
	if reply.Role != chatapi.RoleAssistant || reply.Content == p.printed {
		return
	}

	if strings.HasPrefix(reply.Content, p.printed) {
		fmt.Fprint(p.w, reply.Content[len(p.printed):])
	} else {
		fmt.Fprint(p.w, "\n"+reply.Content)
	}
	p.printed = reply.Content
}
