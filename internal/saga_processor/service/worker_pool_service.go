package service

import (
	"context"
	"log/slog"

	"github.com/panjf2000/ants/v2"
	"github.com/sarabank-saga/internal/domain/events"
)

// WorkerPoolProcessingService bounds how many steps run at once across all consumers
type WorkerPoolProcessingService struct {
	baseService ProcessingService
	pool        *ants.Pool
	logger      *slog.Logger
}

type WorkerPoolConfig struct {
	Size int
}

func NewWorkerPoolProcessingService(
	baseService ProcessingService,
	config WorkerPoolConfig,
	logger *slog.Logger,
) (*WorkerPoolProcessingService, error) {
	pool, err := ants.NewPool(config.Size)
	if err != nil {
		return nil, err
	}

	return &WorkerPoolProcessingService{
		baseService: baseService,
		pool:        pool,
		logger:      logger,
	}, nil
}

// ProcessEvent submits evt to the pool and waits for the step result,
// so the caller still decides between ack and redelivery.
func (s *WorkerPoolProcessingService) ProcessEvent(ctx context.Context, evt events.Event) error {
	logger := s.logger.With("correlation_id", evt.CorrelationID().String())

	resultChan := make(chan error, 1)

	err := s.pool.Submit(func() {
		resultChan <- s.baseService.ProcessEvent(ctx, evt)
	})
	if err != nil {
		logger.Error("Failed to submit event to worker pool",
			"event_type", string(evt.EventType()),
			"error", err,
		)
		return err
	}

	select {
	case err := <-resultChan:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown gracefully shuts down the worker pool.
func (s *WorkerPoolProcessingService) Shutdown() {
	s.logger.Info("Shutting down worker pool", "running_workers", s.pool.Running())
	s.pool.Release()
}

// Running returns the number of running workers in the pool.
func (s *WorkerPoolProcessingService) Running() int {
	return s.pool.Running()
}

// Capacity returns the capacity of the worker pool.
func (s *WorkerPoolProcessingService) Capacity() int {
	return s.pool.Cap()
}
