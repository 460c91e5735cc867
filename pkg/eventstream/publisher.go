package eventstream

import "context"

// Publisher publishes exchange events to an event stream backend.
type Publisher interface {
	PublishExchange(ctx context.Context, event *ExchangeSettledEvent) error
	Close() error
}
