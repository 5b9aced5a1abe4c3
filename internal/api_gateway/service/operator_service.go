package service

import (
	"context"
	"log/slog"

	"github.com/sarabank-saga/internal/domain/outbox"
	"github.com/sarabank-saga/internal/domain/saga"
)

// OperatorServiceImpl implements the OperatorService interface
type OperatorServiceImpl struct {
	outboxRepo outbox.Repository
	sagaRepo   saga.Repository
	logger     *slog.Logger
}

// NewOperatorService creates a new operator service
func NewOperatorService(logger *slog.Logger, outboxRepo outbox.Repository, sagaRepo saga.Repository) OperatorService {
	return &OperatorServiceImpl{
		outboxRepo: outboxRepo,
		sagaRepo:   sagaRepo,
		logger:     logger,
	}
}

func (s *OperatorServiceImpl) ListDeadLetters(ctx context.Context, page, perPage int) ([]*outbox.Message, int64, error) {
	offset := (page - 1) * perPage

	messages, err := s.outboxRepo.ListDeadLettered(ctx, perPage, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.outboxRepo.CountDeadLettered(ctx)
	if err != nil {
		return nil, 0, err
	}
	return messages, total, nil
}

// ReplayDeadLetter returns a parked message to the dispatcher
func (s *OperatorServiceImpl) ReplayDeadLetter(ctx context.Context, id int64) error {
	if err := s.outboxRepo.Replay(ctx, id); err != nil {
		return err
	}
	s.logger.Warn("Dead-lettered outbox message replayed by operator", "outbox_id", id)
	return nil
}

func (s *OperatorServiceImpl) ListStalledSagas(ctx context.Context, page, perPage int) ([]*saga.Saga, error) {
	return s.sagaRepo.ListStalled(ctx, perPage, (page-1)*perPage)
}
