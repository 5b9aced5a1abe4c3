package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/sarabank-saga/internal/domain/events"
	"github.com/sarabank-saga/internal/platform/metrics"
)

// ErrNoStepHandler is returned for an event type no step is registered for
type ErrNoStepHandler struct {
	Type events.Type
}

func (e ErrNoStepHandler) Error() string {
	return "no step handler registered for event type: " + string(e.Type)
}

type ProcessingServiceImpl struct {
	steps  map[events.Type]StepHandler
	logger *slog.Logger
}

// NewProcessingService builds the router from event type to step
func NewProcessingService(steps map[events.Type]StepHandler, logger *slog.Logger) ProcessingService {
	return &ProcessingServiceImpl{
		steps:  steps,
		logger: logger,
	}
}

// ProcessEvent runs the step registered for evt and records its latency
func (s *ProcessingServiceImpl) ProcessEvent(ctx context.Context, evt events.Event) error {
	logger := s.logger.With("correlation_id", evt.CorrelationID().String(), "event_type", string(evt.EventType()))

	step, ok := s.steps[evt.EventType()]
	if !ok {
		logger.Error("No step handler registered")
		return ErrNoStepHandler{Type: evt.EventType()}
	}

	start := time.Now()
	err := step.Handle(ctx, evt)
	metrics.SagaStepDuration.WithLabelValues(step.Name()).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.SagaSteps.WithLabelValues(step.Name(), "error").Inc()
		logger.Error("Step failed, message will be redelivered", "step", step.Name(), "error", err)
		return err
	}
	return nil
}
