// Package consumer turns broker messages into saga step invocations.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sarabank-saga/internal/domain/events"
	"github.com/sarabank-saga/internal/domain/saga"
	"github.com/sarabank-saga/internal/platform/messaging/consumers"
	"github.com/sarabank-saga/internal/saga_processor/service"
)

// ErrSagaIDMismatch is returned when the envelope saga id disagrees with its payload
type ErrSagaIDMismatch struct {
	Envelope string
	Payload  string
}

func (e ErrSagaIDMismatch) Error() string {
	return fmt.Sprintf("envelope saga id %s does not match payload saga id %s", e.Envelope, e.Payload)
}

// EventRouter decodes envelopes and hands the inner event to the processing service
type EventRouter struct {
	processingService service.ProcessingService
	logger            *slog.Logger
}

// NewEventRouter creates a new router
func NewEventRouter(logger *slog.Logger, processingService service.ProcessingService) *EventRouter {
	return &EventRouter{
		processingService: processingService,
		logger:            logger,
	}
}

// HandleMessage processes one envelope. Errors that a redelivery cannot fix are
// marked permanent so the consumer dead-letters them straight away.
func (r *EventRouter) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	env, evt, err := events.ParseEnvelope(value)
	if err != nil {
		r.logger.Error("Unprocessable envelope", "message_key", string(key), "error", err)
		return consumers.Permanent(err)
	}

	if env.SagaID != nil && *env.SagaID != evt.CorrelationID() {
		err := ErrSagaIDMismatch{Envelope: env.SagaID.String(), Payload: evt.CorrelationID().String()}
		r.logger.Error("Unprocessable envelope", "message_key", string(key), "error", err)
		return consumers.Permanent(err)
	}

	logger := r.logger.With("event_type", string(env.EventType), "correlation_id", evt.CorrelationID().String())
	logger.Debug("Routing event")

	if err := r.processingService.ProcessEvent(ctx, evt); err != nil {
		if isPermanent(err) {
			return consumers.Permanent(err)
		}
		return fmt.Errorf("processing %s %s failed: %w", env.EventType, evt.CorrelationID(), err)
	}
	return nil
}

func isPermanent(err error) bool {
	var noHandler service.ErrNoStepHandler
	var invalid saga.ErrInvalidTransition
	return errors.As(err, &noHandler) ||
		errors.As(err, &invalid) ||
		errors.Is(err, saga.ErrUnrecoverableState{})
}
