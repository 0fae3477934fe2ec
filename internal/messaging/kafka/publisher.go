// Package kafka publishes wire envelopes to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/nsridhar76/go-orderflow/internal/messaging"
)

// Publisher writes envelope batches to a single topic. Messages are keyed
// by trace id so all events from one transition land on the same partition.
type Publisher struct {
	writer *kafka.Writer
	logger *slog.Logger
}

// NewPublisher creates a Publisher for the given brokers and topic.
func NewPublisher(brokers []string, topic string, logger *slog.Logger) *Publisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}
	return &Publisher{writer: writer, logger: logger}
}

// PublishBatch serializes each envelope to JSON and writes the whole batch
// in one call. kafka-go retries transient broker errors internally; an
// error returned here means the batch was not handed off.
func (p *Publisher) PublishBatch(ctx context.Context, envelopes []messaging.WireEnvelope) error {
	if len(envelopes) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(envelopes))
	for _, envelope := range envelopes {
		value, err := json.Marshal(envelope)
		if err != nil {
			return fmt.Errorf("marshal envelope %s: %w", envelope.EventID, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(envelope.TraceID),
			Value: value,
		})
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write %d messages: %w", len(msgs), err)
	}
	p.logger.Debug("published event batch", "count", len(msgs), "topic", p.writer.Topic)
	return nil
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
