package nop

import (
	"context"

	"github.com/papercomputeco/cloudchat/pkg/eventstream"
)

// Publisher discards exchange events. It is used when no event stream
// provider is configured.
type Publisher struct{}

// NewPublisher creates a new no-op eventstream publisher.
func NewPublisher() *Publisher {
	return &Publisher{}
}

// PublishExchange validates input and otherwise does nothing.
func (p *Publisher) PublishExchange(_ context.Context, event *eventstream.ExchangeSettledEvent) error {
	if event == nil {
		return eventstream.ErrNilExchangeEvent
	}
	return nil
}

// Close is a no-op.
func (p *Publisher) Close() error {
	return nil
}
