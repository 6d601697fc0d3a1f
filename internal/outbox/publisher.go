package outbox

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/researchhub/platform-service/internal/config"
	"github.com/researchhub/platform-service/internal/domain"
)

// Publisher delivers outbox events to the downstream broker.
type Publisher interface {
	Publish(ctx context.Context, event *domain.OutboxEvent) error
	Close() error
}

// Compile-time interface verification.
var (
	_ Publisher = (*KafkaPublisher)(nil)
	_ Publisher = (*NoopPublisher)(nil)
)

// messageWriter is the subset of kafka.Writer used by KafkaPublisher.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher publishes outbox events to a Kafka topic. Messages are
// keyed by aggregate ID so all events for one aggregate land on the same
// partition in order.
type KafkaPublisher struct {
	writer messageWriter
}

// NewKafkaPublisher creates a publisher writing to the configured topic.
func NewKafkaPublisher(cfg config.KafkaConfig) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			Balancer:     &kafka.Hash{},
			BatchSize:    cfg.BatchSize,
			BatchTimeout: cfg.BatchTimeout,
			RequiredAcks: kafka.RequireAll,
		},
	}
}

// Publish sends one event to Kafka.
func (p *KafkaPublisher) Publish(ctx context.Context, event *domain.OutboxEvent) error {
	msg := kafka.Message{
		Key:   []byte(event.AggregateID),
		Value: event.Payload,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(event.EventID.String())},
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "aggregate_type", Value: []byte(event.AggregateType)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish event %s: %w", event.EventID, err)
	}

	return nil
}

// Close flushes and closes the underlying writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NoopPublisher logs and drops events. Used when Kafka publishing is
// disabled; events still transition to published so the outbox table does
// not grow without bound.
type NoopPublisher struct {
	logger zerolog.Logger
}

// NewNoopPublisher creates a publisher that drops every event.
func NewNoopPublisher(logger zerolog.Logger) *NoopPublisher {
	return &NoopPublisher{logger: logger}
}

// Publish logs the event at debug level and discards it.
func (p *NoopPublisher) Publish(_ context.Context, event *domain.OutboxEvent) error {
	p.logger.Debug().
		Str("event_id", event.EventID.String()).
		Str("event_type", event.EventType).
		Msg("kafka publishing disabled, dropping outbox event")
	return nil
}

// Close is a no-op.
func (p *NoopPublisher) Close() error {
	return nil
}
