// Package kafka publishes exchange events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/papercomputeco/cloudchat/pkg/eventstream"
)

const (
	// DefaultTopic is used when no topic is configured.
	DefaultTopic = "cloudchat.exchanges"

	eventTypeHeader = "event_type"
)

var (
	// ErrNoBrokers is returned when the publisher is created without brokers.
	ErrNoBrokers = errors.New("kafka publisher requires at least one broker")
)

// messageWriter is the subset of *kafkago.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Config configures a Kafka publisher.
type Config struct {
	Brokers []string
	Topic   string

	// BatchTimeout bounds how long a message may wait for a batch to fill.
	BatchTimeout time.Duration
}

// Publisher writes exchange events as JSON messages keyed by session id, so
// every event of one conversation lands in the same partition.
type Publisher struct {
	writer messageWriter
	topic  string
}

// NewPublisher creates a publisher backed by a kafka-go writer.
func NewPublisher(cfg Config) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, ErrNoBrokers
	}

	topic := cfg.Topic
	if topic == "" {
		topic = DefaultTopic
	}

	batchTimeout := cfg.BatchTimeout
	if batchTimeout <= 0 {
		batchTimeout = 50 * time.Millisecond
	}

	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.Brokers...),
		Topic:                  topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireOne,
		BatchTimeout:           batchTimeout,
		AllowAutoTopicCreation: true,
	}

	return NewPublisherWithWriter(w, topic), nil
}

// NewPublisherWithWriter wraps an existing writer.
func NewPublisherWithWriter(w messageWriter, topic string) *Publisher {
	return &Publisher{writer: w, topic: topic}
}

// PublishExchange serializes the event and writes it to the topic.
func (p *Publisher) PublishExchange(ctx context.Context, event *eventstream.ExchangeSettledEvent) error {
	if event == nil {
		return eventstream.ErrNilExchangeEvent
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal exchange event: %w", err)
	}

	msg := kafkago.Message{
		Key:   []byte(event.SessionID),
		Value: value,
		Time:  event.EmittedAt,
		Headers: []kafkago.Header{
			{Key: eventTypeHeader, Value: []byte(event.EventType)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish to %s: %w", p.topic, err)
	}
	return nil
}

// Close flushes pending messages and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
