package consumers

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sarabank-saga/internal/config"
	"github.com/sarabank-saga/internal/platform/backoff"
	"github.com/sarabank-saga/internal/platform/metrics"
	"github.com/segmentio/kafka-go"
)

// maxRetryBackoff caps the wait between handler redeliveries and between dead-letter publish retries
const maxRetryBackoff = 30 * time.Second

type MessageHandler func(ctx context.Context, key []byte, value []byte) error

// Consumer defines the message queue consumer interface
type Consumer interface {
	Subscribe(ctx context.Context, handler MessageHandler) error
	Close() error
}

// KafkaReader wraps kafka.Reader methods for testing
type KafkaReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// DeadLetterPublisher parks messages the handler could not process
type DeadLetterPublisher interface {
	PublishToDLQ(ctx context.Context, key string, value []byte, reason string) error
}

// PermanentError marks a handler failure that redelivery cannot fix
type PermanentError struct {
	Err error
}

func (e PermanentError) Error() string {
	return "permanent: " + e.Err.Error()
}

func (e PermanentError) Unwrap() error {
	return e.Err
}

// Permanent wraps err so the consumer dead-letters the message without retrying
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return PermanentError{Err: err}
}

// KafkaConsumer implements Consumer using a Kafka consumer group over several topics.
// A failing message is redelivered in process before it is dead-lettered and committed.
type KafkaConsumer struct {
	reader            KafkaReader
	dlq               DeadLetterPublisher
	logger            *slog.Logger
	groupID           string
	maxRedeliveries   int
	redeliveryBackoff time.Duration
	sleep             func(ctx context.Context, d time.Duration) error
}

func NewKafkaConsumer(_ context.Context, logger *slog.Logger, cfg *config.KafkaConfig, topics []string, dlq DeadLetterPublisher) *KafkaConsumer {
	startOffset := cfg.StartOffset
	if startOffset == 0 {
		startOffset = kafka.FirstOffset
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     []string{cfg.Brokers},
		GroupID:     cfg.ConsumerGroup,
		GroupTopics: topics,
		MinBytes:    cfg.MinBytes,
		MaxBytes:    cfg.MaxBytes,
		MaxWait:     cfg.MaxWait,
		StartOffset: startOffset,
	})

	return newKafkaConsumer(reader, dlq, logger, cfg)
}

func newKafkaConsumer(reader KafkaReader, dlq DeadLetterPublisher, logger *slog.Logger, cfg *config.KafkaConfig) *KafkaConsumer {
	return &KafkaConsumer{
		reader:            reader,
		dlq:               dlq,
		logger:            logger,
		groupID:           cfg.ConsumerGroup,
		maxRedeliveries:   cfg.MaxRedeliveries,
		redeliveryBackoff: cfg.RedeliveryBackoff,
		sleep:             backoff.SleepWithContext,
	}
}

// Subscribe starts consuming in the background and returns immediately
func (c *KafkaConsumer) Subscribe(ctx context.Context, handler MessageHandler) error {
	c.logger.Info("Subscribed to Kafka topics", "group_id", c.groupID, "max_redeliveries", c.maxRedeliveries)

	go c.consume(ctx, handler)
	return nil
}

func (c *KafkaConsumer) consume(ctx context.Context, handler MessageHandler) {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("Context canceled, stopping consumer", "group_id", c.groupID)
				return
			}
			c.logger.Error("Failed to fetch message from Kafka", "group_id", c.groupID, "error", err)
			if c.sleep(ctx, time.Second) != nil {
				return
			}
			continue
		}

		if !c.handle(ctx, msg, handler) {
			return
		}
	}
}

// handle processes one message and commits it. Transient failures are redelivered
// until they succeed and are never committed; only permanent failures go to the DLQ.
// It returns false when ctx ended first, leaving the offset uncommitted for the next
// member of the group.
func (c *KafkaConsumer) handle(ctx context.Context, msg kafka.Message, handler MessageHandler) bool {
	logger := c.logger.With(
		"topic", msg.Topic,
		"partition", msg.Partition,
		"offset", msg.Offset,
		"key", string(msg.Key),
	)
	logger.Debug("Received message from Kafka")

	var processingErr error
	for delivery := 0; ; delivery++ {
		if delivery > 0 {
			metrics.ConsumerMessages.WithLabelValues(msg.Topic, "redelivered").Inc()
			if err := c.sleep(ctx, c.redeliveryDelay(delivery-1)); err != nil {
				return false
			}
		}

		processingErr = handler(ctx, msg.Key, msg.Value)
		if processingErr == nil {
			break
		}
		if ctx.Err() != nil {
			return false
		}

		var permanent PermanentError
		if errors.As(processingErr, &permanent) {
			logger.Warn("Message cannot be processed", "delivery", delivery+1, "error", processingErr)
			break
		}

		if delivery+1 > c.maxRedeliveries {
			logger.Error("Message still failing, redelivering", "delivery", delivery+1, "error", processingErr)
		} else {
			logger.Warn("Failed to process message", "delivery", delivery+1, "error", processingErr)
		}
	}

	if processingErr == nil {
		metrics.ConsumerMessages.WithLabelValues(msg.Topic, "ack").Inc()
	} else {
		if !c.deadLetter(ctx, logger, msg, processingErr) {
			return false
		}
		metrics.ConsumerMessages.WithLabelValues(msg.Topic, "dead_lettered").Inc()
	}

	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		logger.Error("Failed to commit message", "error", err)
		return ctx.Err() == nil
	}
	logger.Debug("Message committed successfully")
	return true
}

// deadLetter keeps retrying the DLQ write until it succeeds so no message is committed unparked
func (c *KafkaConsumer) deadLetter(ctx context.Context, logger *slog.Logger, msg kafka.Message, cause error) bool {
	if c.dlq == nil {
		logger.Error("Dropping unprocessable message, no DLQ configured", "error", cause)
		return true
	}

	for attempt := 0; ; attempt++ {
		err := c.dlq.PublishToDLQ(ctx, string(msg.Key), msg.Value, cause.Error())
		if err == nil {
			logger.Error("Message dead-lettered", "error", cause)
			return true
		}
		logger.Error("Failed to publish to DLQ, retrying", "attempt", attempt+1, "error", err)

		if c.sleep(ctx, capped(backoff.Exponential(time.Second, attempt))) != nil {
			return false
		}
	}
}

func (c *KafkaConsumer) redeliveryDelay(attempt int) time.Duration {
	return capped(backoff.Exponential(c.redeliveryBackoff, attempt))
}

func capped(d time.Duration) time.Duration {
	if d > maxRetryBackoff {
		return maxRetryBackoff
	}
	return d
}

func (c *KafkaConsumer) Close() error {
	if c.reader != nil {
		return c.reader.Close()
	}
	return nil
}
