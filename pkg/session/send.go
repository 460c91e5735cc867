package session

import (
	"strings"
	"time"

	"github.com/papercomputeco/cloudchat/pkg/chatapi"
	"github.com/papercomputeco/cloudchat/pkg/eventstream"
)

// phase is the lifecycle position of one send.
type phase int

const (
	// phaseSending: the request is issued and no event has arrived yet.
	phaseSending phase = iota

	// phaseStreaming: at least one event has been applied.
	phaseStreaming

	// phaseSettled: a terminal event arrived, the stream ran out or the
	// send failed. Nothing is applied after this point.
	phaseSettled
)

func (p phase) String() string {
	switch p {
	case phaseSending:
		return "sending"
	case phaseStreaming:
		return "streaming"
	case phaseSettled:
		return "settled"
	default:
		return "unknown"
	}
}

// transitions lists, per phase, the events it accepts and the phase each one
// leads to. Settled accepts nothing.
var transitions = map[phase]map[chatapi.EventType]phase{
	phaseSending: {
		chatapi.EventSession: phaseStreaming,
		chatapi.EventContent: phaseStreaming,
		chatapi.EventDone:    phaseSettled,
		chatapi.EventError:   phaseSettled,
		chatapi.EventBlocked: phaseSettled,
	},
	phaseStreaming: {
		chatapi.EventSession: phaseStreaming,
		chatapi.EventContent: phaseStreaming,
		chatapi.EventDone:    phaseSettled,
		chatapi.EventError:   phaseSettled,
		chatapi.EventBlocked: phaseSettled,
	},
}

// exchange tracks one user message and the reply streamed for it.
//
// target is the key the message was sent under and never changes. active is
// where stream updates are written; it starts as target and is rebound at
// most once, when the server assigns a different session id.
type exchange struct {
	target Key
	active Key

	// generation and draft are the multiplexer counters seen when the
	// exchange began. Writes are dropped once either moves on.
	generation uint64
	draft      uint64

	phase   phase
	rebound bool

	text    string
	reply   strings.Builder
	outcome eventstream.Outcome
	failure error

	startedAt time.Time
}

func newExchange(target Key, text string, generation, draft uint64, now time.Time) *exchange {
	return &exchange{
		target:     target,
		active:     target,
		generation: generation,
		draft:      draft,
		phase:      phaseSending,
		text:       text,
		outcome:    eventstream.OutcomeIncomplete,
		startedAt:  now,
	}
}

// advance moves the exchange along the transition table. It reports false if
// the event is not accepted in the current phase.
func (x *exchange) advance(t chatapi.EventType) bool {
	next, ok := transitions[x.phase][t]
	if !ok {
		return false
	}
	x.phase = next

	switch t {
	case chatapi.EventDone:
		x.outcome = eventstream.OutcomeDone
	case chatapi.EventError:
		x.outcome = eventstream.OutcomeError
	case chatapi.EventBlocked:
		x.outcome = eventstream.OutcomeBlocked
	}
	return true
}

// settle ends the exchange. A non-nil err marks it failed.
func (x *exchange) settle(err error) {
	x.phase = phaseSettled
	if err != nil {
		x.failure = err
		x.outcome = eventstream.OutcomeFailed
	}
}

// needsRefresh reports whether the session list may be stale: the exchange
// created a session or ended up somewhere other than where it started.
func (x *exchange) needsRefresh() bool {
	return x.target.IsUnsaved() || x.active != x.target
}

func (x *exchange) event(now time.Time) *eventstream.ExchangeSettledEvent {
	ev := eventstream.NewExchangeSettledEvent(x.startedAt, now)
	ev.SessionID, _ = x.active.ID()
	ev.NewSession = x.target.IsUnsaved()
	ev.Outcome = x.outcome
	ev.UserMessage = x.text
	ev.AssistantMessage = x.reply.String()
	if x.failure != nil {
		ev.Error = x.failure.Error()
	}
	return ev
}
