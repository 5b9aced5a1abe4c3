// Package outbox_dispatcher relays committed outbox rows to the broker.
package outbox_dispatcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/sarabank-saga/internal/config"
	"github.com/sarabank-saga/internal/domain/outbox"
	"github.com/sarabank-saga/internal/platform/backoff"
	"github.com/sarabank-saga/internal/platform/metrics"
)

// Dispatcher polls the outbox and publishes pending messages in creation order
type Dispatcher struct {
	outboxRepo     outbox.Repository
	publisher      Publisher
	dlq            DeadLetterPublisher
	logger         *slog.Logger
	pollInterval   time.Duration
	batchSize      int
	maxAttempts    int
	publishRetries int
	retryBaseDelay time.Duration
	sleep          func(ctx context.Context, d time.Duration) error
}

// NewDispatcher builds a dispatcher. dlq may be nil, in which case parked rows stay in the table only.
func NewDispatcher(
	cfg *config.OutboxConfig,
	outboxRepo outbox.Repository,
	publisher Publisher,
	dlq DeadLetterPublisher,
	logger *slog.Logger,
) *Dispatcher {
	retries := cfg.PublishRetries
	if retries <= 0 {
		retries = 1
	}
	return &Dispatcher{
		outboxRepo:     outboxRepo,
		publisher:      publisher,
		dlq:            dlq,
		logger:         logger,
		pollInterval:   cfg.PollingInterval,
		batchSize:      cfg.BatchSize,
		maxAttempts:    cfg.MaxRetryAttempts,
		publishRetries: retries,
		retryBaseDelay: cfg.RetryBaseDelay,
		sleep:          backoff.SleepWithContext,
	}
}

// Start polls until ctx is cancelled. A cycle runs to completion before the next tick is read,
// so cycles never overlap.
func (d *Dispatcher) Start(ctx context.Context) {
	d.logger.Info("Starting outbox dispatcher",
		"poll_interval", d.pollInterval.String(),
		"batch_size", d.batchSize,
		"max_attempts", d.maxAttempts,
		"publish_retries", d.publishRetries,
	)
	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("Outbox dispatcher stopping due to context cancellation.")
			return
		case <-ticker.C:
			if err := d.processPendingMessages(ctx); err != nil {
				d.logger.Error("Outbox dispatch cycle failed", "error", err)
			}
		}
	}
}

func (d *Dispatcher) processPendingMessages(ctx context.Context) error {
	started := time.Now()
	defer func() { metrics.OutboxCycleDuration.Observe(time.Since(started).Seconds()) }()

	messages, err := d.outboxRepo.GetPending(ctx, d.batchSize, d.maxAttempts)
	if err != nil {
		return fmt.Errorf("failed to get pending outbox messages: %w", err)
	}
	if len(messages) == 0 {
		d.logger.Debug("No pending outbox messages found.")
		return nil
	}

	d.logger.Debug("Fetched pending outbox messages", "count", len(messages))

	for _, msg := range messages {
		if ctx.Err() != nil {
			return nil
		}
		d.dispatch(ctx, msg)
	}
	return nil
}

// dispatch publishes one row. Failures are recorded on the row and never stop the batch.
func (d *Dispatcher) dispatch(ctx context.Context, msg *outbox.Message) {
	logger := d.logger.With("outbox_id", msg.ID, "event_type", string(msg.EventType))
	if msg.SagaID != nil {
		logger = logger.With("saga_id", msg.SagaID.String())
	}

	value, err := json.Marshal(msg.Envelope())
	if err != nil {
		d.recordFailure(ctx, logger, msg, fmt.Errorf("marshal envelope: %w", err))
		return
	}

	lastErr := d.publishWithRetry(ctx, msg, value)
	if lastErr == nil {
		if err := d.outboxRepo.MarkProcessed(ctx, msg.ID); err != nil {
			// the row will be published again next cycle
			logger.Error("Failed to mark outbox message processed", "error", err)
			return
		}
		metrics.OutboxPublished.WithLabelValues(string(msg.EventType)).Inc()
		logger.Info("Outbox message published", "topic", msg.Topic, "attempts", msg.Attempts)
		return
	}

	if ctx.Err() != nil && errors.Is(lastErr, ctx.Err()) {
		logger.Debug("Dispatch interrupted by shutdown")
		return
	}

	d.recordFailure(ctx, logger, msg, lastErr)
}

func (d *Dispatcher) publishWithRetry(ctx context.Context, msg *outbox.Message, value []byte) error {
	var lastErr error
	for try := 0; try < d.publishRetries; try++ {
		if try > 0 {
			if err := d.sleep(ctx, backoff.Exponential(d.retryBaseDelay, try-1)); err != nil {
				return err
			}
		}

		lastErr = d.publisher.Publish(ctx, msg.Topic, msg.Key(), value)
		if lastErr == nil {
			metrics.OutboxPublishAttempts.WithLabelValues(string(msg.EventType), "success").Inc()
			return nil
		}
		metrics.OutboxPublishAttempts.WithLabelValues(string(msg.EventType), "error").Inc()
		d.logger.Warn("Publish attempt failed",
			"outbox_id", msg.ID, "try", try+1, "of", d.publishRetries, "error", lastErr,
		)
	}
	return lastErr
}

func (d *Dispatcher) recordFailure(ctx context.Context, logger *slog.Logger, msg *outbox.Message, cause error) {
	metrics.OutboxCycleFailures.WithLabelValues(string(msg.EventType)).Inc()

	outcome, err := d.outboxRepo.RecordFailure(ctx, msg.ID, cause.Error(), d.maxAttempts)
	if err != nil {
		logger.Error("Failed to record outbox failure", "cause", cause, "error", err)
		return
	}

	if !outcome.DeadLettered {
		logger.Warn("Outbox message not published, will retry next cycle", "attempts", outcome.Attempts, "error", cause)
		return
	}

	metrics.OutboxDeadLettered.WithLabelValues(string(msg.EventType)).Inc()
	logger.Error("Outbox message dead-lettered after max attempts", "attempts", outcome.Attempts, "error", cause)

	if d.dlq == nil {
		return
	}
	value, err := json.Marshal(msg.Envelope())
	if err != nil {
		value = msg.Payload
	}
	if err := d.dlq.PublishToDLQ(ctx, strconv.FormatInt(msg.ID, 10), value, cause.Error()); err != nil {
		logger.Error("Failed to mirror dead-lettered message to DLQ topic", "error", err)
	}
}
