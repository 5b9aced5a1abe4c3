package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sarabank-saga/internal/domain/account"
	"github.com/sarabank-saga/internal/domain/events"
	"github.com/sarabank-saga/internal/domain/saga"
	"github.com/sarabank-saga/internal/platform/persistence"
	"github.com/shopspring/decimal"
)

// ErrSameAccount is returned when source and destination are the same account
var ErrSameAccount = errors.New("source and destination accounts must differ")

// TransferServiceImpl implements the TransferService interface
type TransferServiceImpl struct {
	db          persistence.TxRunner
	accountRepo account.Repository
	sagaRepo    saga.Repository
	auditRepo   saga.AuditRepository
	outbox      OutboxWriter
	logger      *slog.Logger
}

// NewTransferService creates a new transfer service. auditRepo may be nil.
func NewTransferService(
	logger *slog.Logger,
	db persistence.TxRunner,
	accountRepo account.Repository,
	sagaRepo saga.Repository,
	auditRepo saga.AuditRepository,
	outbox OutboxWriter,
) TransferService {
	return &TransferServiceImpl{
		db:          db,
		accountRepo: accountRepo,
		sagaRepo:    sagaRepo,
		auditRepo:   auditRepo,
		outbox:      outbox,
		logger:      logger,
	}
}

// InitiateTransfer only accepts or rejects the request. Funds are checked by the debit step.
func (s *TransferServiceImpl) InitiateTransfer(ctx context.Context, from, to uuid.UUID, amount decimal.Decimal) (*saga.Saga, error) {
	if from == to {
		return nil, ErrSameAccount
	}
	if err := account.ValidateAmount(amount); err != nil {
		return nil, err
	}

	for _, id := range []uuid.UUID{from, to} {
		if _, err := s.accountRepo.GetByID(ctx, id); err != nil {
			return nil, err
		}
	}

	sg := saga.New(from, to, amount)
	err := s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		if err := s.sagaRepo.WithTx(tx).Create(ctx, sg); err != nil {
			return err
		}
		_, err := s.outbox.Enqueue(ctx, tx, &events.TransferInitiated{
			SagaID:      sg.ID,
			FromAccount: from,
			ToAccount:   to,
			Amount:      amount,
		})
		return err
	})
	if err != nil {
		s.logger.Error("Failed to initiate transfer", "from_account_id", from.String(), "to_account_id", to.String(), "error", err)
		return nil, err
	}

	s.logger.Info("Transfer initiated",
		"saga_id", sg.ID.String(),
		"from_account_id", from.String(),
		"to_account_id", to.String(),
		"amount", amount.String(),
	)
	return sg, nil
}

// GetTransfer returns the saga and its timeline. A timeline read failure degrades to an empty timeline.
func (s *TransferServiceImpl) GetTransfer(ctx context.Context, id uuid.UUID) (*saga.Saga, []*saga.AuditRecord, error) {
	sg, err := s.sagaRepo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	if s.auditRepo == nil {
		return sg, nil, nil
	}

	timeline, err := s.auditRepo.ListBySaga(ctx, id)
	if err != nil {
		s.logger.Warn("Failed to read saga timeline", "saga_id", id.String(), "error", err)
		return sg, nil, nil
	}
	return sg, timeline, nil
}
