package bus

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"nexus/internal/middleware"
	"nexus/internal/observability"

	skafka "github.com/segmentio/kafka-go"
)

const (
	// pendingBuffer bounds the per-topic channel between the fetch loop and
	// the handler worker so one slow handler cannot grow memory unbounded.
	pendingBuffer = 64

	baseFetchBackoff = 500 * time.Millisecond
	maxFetchBackoff  = 8 * time.Second

	handleTimeout = 10 * time.Second
)

// Handler processes one decoded event from a topic.
type Handler func(ctx context.Context, event Event) error

// Subscriber is the interface the event router uses to attach handlers.
type Subscriber interface {
	Subscribe(ctx context.Context, topic Topic, handler Handler) error
}

// reader is the subset of kafka.Reader the consumer needs.
type reader interface {
	FetchMessage(ctx context.Context) (skafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...skafka.Message) error
	Close() error
}

// newReader builds a kafka reader for one topic in its own consumer group.
func newReader(brokers []string, topic Topic) reader {
	return skafka.NewReader(skafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    string(topic),
		GroupID:  ConsumerGroupID(topic),
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  500 * time.Millisecond,
	})
}

// Consumers manages one independent consume loop per subscribed topic.
// Failure in one topic's handler or connection never affects siblings.
type Consumers struct {
	brokers   []string
	newReader func(brokers []string, topic Topic) reader

	mu     sync.Mutex
	active map[Topic]struct{}
	wg     sync.WaitGroup
}

// NewConsumers creates a consumer manager for the given brokers.
func NewConsumers(brokers []string) *Consumers {
	return &Consumers{
		brokers:   brokers,
		newReader: newReader,
		active:    make(map[Topic]struct{}),
	}
}

// Subscribe starts a fetch loop and a handler worker for the topic. At most
// one subscription per topic per Consumers instance.
func (c *Consumers) Subscribe(ctx context.Context, topic Topic, handler Handler) error {
	c.mu.Lock()
	if _, ok := c.active[topic]; ok {
		c.mu.Unlock()
		middleware.Logger.Warn("duplicate subscription ignored", slog.String("topic", string(topic)))
		return nil
	}
	c.active[topic] = struct{}{}
	c.mu.Unlock()

	r := c.newReader(c.brokers, topic)
	pending := make(chan skafka.Message, pendingBuffer)

	// Fetch loop: pulls messages off the wire and feeds the worker.
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer close(pending)
		defer func() { _ = r.Close() }()

		backoff := baseFetchBackoff
		for {
			msg, err := r.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				middleware.Logger.Warn("bus fetch failed, backing off",
					slog.String("topic", string(topic)),
					slog.String("error", err.Error()),
				)
				select {
				case <-ctx.Done():
					return
				case <-time.After(backoff):
				}
				if backoff *= 2; backoff > maxFetchBackoff {
					backoff = maxFetchBackoff
				}
				continue
			}
			backoff = baseFetchBackoff

			select {
			case pending <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()

	// Worker: decodes and handles messages one at a time, committing as it
	// goes. Handler and decode failures are logged and skipped; the offset
	// is still committed so a poison message cannot wedge the topic.
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for msg := range pending {
			c.handleMessage(ctx, r, topic, handler, msg)
		}
	}()

	middleware.Logger.Info("subscribed to topic",
		slog.String("topic", string(topic)),
		slog.String("group", ConsumerGroupID(topic)),
	)
	return nil
}

func (c *Consumers) handleMessage(ctx context.Context, r reader, topic Topic, handler Handler, msg skafka.Message) {
	var event Event
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		middleware.Logger.Error("bus message decode failed",
			slog.String("topic", string(topic)),
			slog.Int64("offset", msg.Offset),
			slog.String("error", err.Error()),
		)
		observability.BusMessagesConsumed.WithLabelValues(string(topic), "decode_error").Inc()
	} else {
		handleCtx, cancel := context.WithTimeout(ctx, handleTimeout)
		if err := handler(handleCtx, event); err != nil {
			middleware.Logger.Error("bus handler failed",
				slog.String("topic", string(topic)),
				slog.String("event_type", event.Type),
				slog.String("error", err.Error()),
			)
			observability.BusMessagesConsumed.WithLabelValues(string(topic), "handler_error").Inc()
		} else {
			observability.BusMessagesConsumed.WithLabelValues(string(topic), "ok").Inc()
		}
		cancel()
	}

	if err := r.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
		middleware.Logger.Error("bus offset commit failed",
			slog.String("topic", string(topic)),
			slog.Int64("offset", msg.Offset),
			slog.String("error", err.Error()),
		)
	}
}

// Wait blocks until every consume loop has exited. Call after cancelling the
// context passed to Subscribe.
func (c *Consumers) Wait() {
	c.wg.Wait()
}
