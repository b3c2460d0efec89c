package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"nexus/internal/middleware"
	"nexus/internal/observability"

	skafka "github.com/segmentio/kafka-go"
)

const (
	maxPublishAttempts = 4
	basePublishBackoff = 100 * time.Millisecond
	maxPublishBackoff  = 2 * time.Second
)

// Writer defines the subset of the kafka writer the producer needs. This
// keeps the producer testable with a fake.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...skafka.Message) error
	Close() error
}

// Publisher is the interface services use to publish events.
type Publisher interface {
	Publish(ctx context.Context, topic Topic, event Event) error
	Close() error
}

// Producer publishes JSON-encoded events to Kafka with bounded retry.
type Producer struct {
	writer Writer
}

// NewProducer creates a Producer writing to the given brokers. The topic is
// set per message so one writer serves every topic.
func NewProducer(brokers []string) *Producer {
	w := &skafka.Writer{
		Addr:                   skafka.TCP(brokers...),
		Balancer:               &skafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return &Producer{writer: w}
}

// NewProducerWithWriter allows injecting a test writer.
func NewProducerWithWriter(w Writer) *Producer {
	return &Producer{writer: w}
}

// Publish marshals the event and writes it to the topic. Transient write
// failures are retried with exponential backoff up to a capped ceiling;
// exhausted retries surface the error to the caller.
func (p *Producer) Publish(ctx context.Context, topic Topic, event Event) error {
	b, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event for %s: %w", topic, err)
	}

	msg := skafka.Message{
		Topic: string(topic),
		Key:   []byte(partitionKey(event)),
		Value: b,
	}

	backoff := basePublishBackoff
	var lastErr error
	for attempt := 1; attempt <= maxPublishAttempts; attempt++ {
		lastErr = p.writer.WriteMessages(ctx, msg)
		if lastErr == nil {
			observability.BusPublishes.WithLabelValues(string(topic), "ok").Inc()
			return nil
		}
		if ctx.Err() != nil {
			break
		}
		middleware.Logger.WarnContext(ctx, "bus publish failed, retrying",
			slog.String("topic", string(topic)),
			slog.Int("attempt", attempt),
			slog.String("error", lastErr.Error()),
		)
		select {
		case <-ctx.Done():
			observability.BusPublishes.WithLabelValues(string(topic), "error").Inc()
			return ctx.Err()
		case <-time.After(backoff):
		}
		if backoff *= 2; backoff > maxPublishBackoff {
			backoff = maxPublishBackoff
		}
	}

	observability.BusPublishes.WithLabelValues(string(topic), "error").Inc()
	return fmt.Errorf("publish to %s: %w", topic, lastErr)
}

// Close closes the underlying writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}

// partitionKey keeps events for the same network (or user, for direct
// notifications) on the same partition so per-entity ordering holds.
func partitionKey(event Event) string {
	if event.NetworkID != 0 {
		return "network-" + strconv.FormatUint(uint64(event.NetworkID), 10)
	}
	return "user-" + strconv.FormatUint(uint64(event.UserID), 10)
}
