package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sarabank-saga/internal/domain/account"
	"github.com/sarabank-saga/internal/domain/events"
	"github.com/sarabank-saga/internal/domain/ledger"
	"github.com/sarabank-saga/internal/platform/persistence"
	"github.com/shopspring/decimal"
)

// ErrUnsupportedMovement is returned for a movement type other than deposit or withdrawal
type ErrUnsupportedMovement struct {
	Type events.MovementType
}

func (e ErrUnsupportedMovement) Error() string {
	return "unsupported movement type: " + string(e.Type)
}

// AccountServiceImpl implements the AccountService interface
type AccountServiceImpl struct {
	db          persistence.TxRunner
	accountRepo account.Repository
	ledgerRepo  ledger.Repository
	outbox      OutboxWriter
	logger      *slog.Logger
}

// NewAccountService creates a new account service
func NewAccountService(
	logger *slog.Logger,
	db persistence.TxRunner,
	accountRepo account.Repository,
	ledgerRepo ledger.Repository,
	outbox OutboxWriter,
) AccountService {
	return &AccountServiceImpl{
		db:          db,
		accountRepo: accountRepo,
		ledgerRepo:  ledgerRepo,
		outbox:      outbox,
		logger:      logger,
	}
}

// GetAccountByID retrieves an account by its ID, returns ErrAccountNotFound if not found
func (s *AccountServiceImpl) GetAccountByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	return s.accountRepo.GetByID(ctx, id)
}

// GetStatement retrieves a page of entries for an existing account
func (s *AccountServiceImpl) GetStatement(ctx context.Context, accountID uuid.UUID, page, perPage int) ([]*ledger.Entry, int64, error) {
	if _, err := s.accountRepo.GetByID(ctx, accountID); err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * perPage

	entries, err := s.ledgerRepo.ListByAccount(ctx, accountID, perPage, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.ledgerRepo.CountByAccount(ctx, accountID)
	if err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}

// RequestMovement validates the command and enqueues it. The balance changes when
// the saga processor applies the movement.
func (s *AccountServiceImpl) RequestMovement(ctx context.Context, accountID uuid.UUID, kind events.MovementType, amount decimal.Decimal, description string) (uuid.UUID, error) {
	if kind != events.MovementDeposit && kind != events.MovementWithdrawal {
		return uuid.Nil, ErrUnsupportedMovement{Type: kind}
	}
	if err := account.ValidateAmount(amount); err != nil {
		return uuid.Nil, err
	}

	if _, err := s.accountRepo.GetByID(ctx, accountID); err != nil {
		return uuid.Nil, err
	}

	evt := &events.MovementRequested{
		MovementID:  uuid.New(),
		AccountID:   accountID,
		Amount:      amount,
		Type:        kind,
		Description: description,
	}

	err := s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		_, err := s.outbox.Enqueue(ctx, tx, evt)
		return err
	})
	if err != nil {
		s.logger.Error("Failed to enqueue movement", "account_id", accountID.String(), "type", string(kind), "error", err)
		return uuid.Nil, err
	}

	s.logger.Info("Movement requested",
		"movement_id", evt.MovementID.String(),
		"account_id", accountID.String(),
		"type", string(kind),
		"amount", amount.String(),
	)
	return evt.MovementID, nil
}
