package producers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sarabank-saga/internal/config"
	"github.com/segmentio/kafka-go"
)

// ErrDLQDisabled is returned when no dead-letter topic is configured
var ErrDLQDisabled = errors.New("dead-letter queue is disabled")

const (
	headerReason   = "dlq-reason"
	headerFailedAt = "dlq-failed-at"
)

// DeadLetter is the record written to the DLQ topic. Envelope holds the original
// wire envelope when it was valid JSON; RawValue holds it verbatim otherwise.
type DeadLetter struct {
	OriginalKey string          `json:"original_key,omitempty"`
	Envelope    json.RawMessage `json:"envelope,omitempty"`
	RawValue    string          `json:"raw_value,omitempty"`
	Reason      string          `json:"reason"`
	FailedAt    time.Time       `json:"failed_at"`
}

func newDeadLetter(key string, value []byte, reason string, now time.Time) DeadLetter {
	dl := DeadLetter{OriginalKey: key, Reason: reason, FailedAt: now}
	if json.Valid(value) {
		dl.Envelope = json.RawMessage(value)
	} else {
		dl.RawValue = string(value)
	}
	return dl
}

// DLQProducer parks outbox rows and consumed messages that can never be processed
type DLQProducer struct {
	logger   *slog.Logger
	writer   KafkaWriter
	dlqTopic string
	now      func() time.Time
}

// NewDLQProducer returns a nil producer if cfg.DLQTopic is empty (DLQ disabled)
func NewDLQProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*DLQProducer, error) {
	if cfg.DLQTopic == "" {
		logger.Info("DLQ topic is not configured, dead letters will only be logged")
		return nil, nil
	}

	if err := EnsureTopics(ctx, logger, cfg, cfg.DLQTopic); err != nil {
		return nil, fmt.Errorf("dlq producer: %w", err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.DLQTopic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		WriteTimeout: cfg.MaxWait,
	}

	return newDLQProducer(logger, writer, cfg.DLQTopic), nil
}

func newDLQProducer(logger *slog.Logger, writer KafkaWriter, topic string) *DLQProducer {
	return &DLQProducer{
		logger:   logger,
		writer:   writer,
		dlqTopic: topic,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// PublishToDLQ writes one dead letter. An empty key leaves the message unkeyed.
func (p *DLQProducer) PublishToDLQ(ctx context.Context, key string, value []byte, reason string) error {
	if p == nil || p.writer == nil {
		return ErrDLQDisabled
	}

	dl := newDeadLetter(key, value, reason, p.now())
	payload, err := json.Marshal(dl)
	if err != nil {
		return fmt.Errorf("failed to marshal dead letter: %w", err)
	}

	msg := kafka.Message{
		Value: payload,
		Headers: []kafka.Header{
			{Key: headerReason, Value: []byte(reason)},
			{Key: headerFailedAt, Value: []byte(dl.FailedAt.Format(time.RFC3339Nano))},
		},
	}
	if key != "" {
		msg.Key = []byte(key)
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish dead letter", "topic", p.dlqTopic, "key", key, "error", err)
		return fmt.Errorf("failed to publish message to DLQ %s: %w", p.dlqTopic, err)
	}

	p.logger.Warn("Message published to DLQ", "topic", p.dlqTopic, "key", key, "reason", reason)
	return nil
}

func (p *DLQProducer) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	p.logger.Info("Closing DLQ producer", "topic", p.dlqTopic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close dlq kafka writer for topic %s: %w", p.dlqTopic, err)
	}
	return nil
}
