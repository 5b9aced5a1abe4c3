package producers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sarabank-saga/internal/config"
	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker"
)

// ErrBrokerUnavailable is returned while the breaker around the writer is open
var ErrBrokerUnavailable = errors.New("event broker unavailable")

// ErrUnknownTopic is returned for a topic the publisher was not configured with
type ErrUnknownTopic struct {
	Topic string
}

func (e ErrUnknownTopic) Error() string {
	return "topic not configured for publishing: " + e.Topic
}

// EventPublisher writes outbox envelopes to their routed topics.
// Writes are synchronous and acknowledged by all in-sync replicas.
type EventPublisher struct {
	logger  *slog.Logger
	writer  KafkaWriter
	breaker *gobreaker.CircuitBreaker
	topics  map[string]struct{}
}

// NewEventPublisher ensures every topic exists and returns a publisher for them
func NewEventPublisher(
	ctx context.Context,
	logger *slog.Logger,
	cfg *config.KafkaConfig,
	breakerCfg *config.CircuitBreakerConfig,
	topics []string,
) (*EventPublisher, error) {
	if len(topics) == 0 {
		return nil, fmt.Errorf("no topics configured for event publisher")
	}

	if err := EnsureTopics(ctx, logger, cfg, topics...); err != nil {
		return nil, err
	}

	// Topic is set per message
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		Async:                  false,
		WriteTimeout:           cfg.MaxWait,
		AllowAutoTopicCreation: false,
	}

	return newEventPublisher(logger, writer, breakerCfg, topics), nil
}

func newEventPublisher(logger *slog.Logger, writer KafkaWriter, breakerCfg *config.CircuitBreakerConfig, topics []string) *EventPublisher {
	known := make(map[string]struct{}, len(topics))
	for _, t := range topics {
		known[t] = struct{}{}
	}

	settings := gobreaker.Settings{
		Name:        "kafka-publisher",
		MaxRequests: breakerCfg.HalfOpenRequests,
		Timeout:     breakerCfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerCfg.ConsecutiveFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	}

	return &EventPublisher{
		logger:  logger,
		writer:  writer,
		breaker: gobreaker.NewCircuitBreaker(settings),
		topics:  known,
	}
}

// Publish writes one message and waits for the broker acknowledgement
func (p *EventPublisher) Publish(ctx context.Context, topic string, key, value []byte) error {
	if _, ok := p.topics[topic]; !ok {
		return ErrUnknownTopic{Topic: topic}
	}

	msg := kafka.Message{
		Topic: topic,
		Key:   key,
		Value: value,
	}

	_, err := p.breaker.Execute(func() (interface{}, error) {
		return nil, p.writer.WriteMessages(ctx, msg)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("%w: %v", ErrBrokerUnavailable, err)
		}
		return fmt.Errorf("failed to write message to topic %s: %w", topic, err)
	}

	p.logger.Debug("Message written", "topic", topic, "key", string(key))
	return nil
}

// State exposes the breaker state for health reporting
func (p *EventPublisher) State() string {
	return p.breaker.State().String()
}

func (p *EventPublisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	p.logger.Info("Closing event publisher")
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer: %w", err)
	}
	return nil
}
