package components

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/sarabank-saga/internal/domain/account"
	"github.com/sarabank-saga/internal/domain/ledger"
	"github.com/sarabank-saga/internal/saga_processor/service"
)

// ErrUnsupportedKind is returned for a ledger kind the manager cannot apply
type ErrUnsupportedKind struct {
	Kind ledger.Kind
}

func (e ErrUnsupportedKind) Error() string {
	return "unsupported ledger kind: " + string(e.Kind)
}

// AccountManagerImpl implements the AccountManager interface
type AccountManagerImpl struct {
	accountRepo account.Repository
	ledgerRepo  ledger.Repository
	logger      *slog.Logger
}

// NewAccountManager creates a new AccountManagerImpl
func NewAccountManager(accountRepo account.Repository, ledgerRepo ledger.Repository, logger *slog.Logger) service.AccountManager {
	return &AccountManagerImpl{
		accountRepo: accountRepo,
		ledgerRepo:  ledgerRepo,
		logger:      logger,
	}
}

// ApplyEntry locks the account, applies the movement in memory, persists the new
// balance and appends the ledger entry, all through tx. Business errors
// (ErrAccountNotFound, ErrInsufficientFunds, ErrInvalidAmount) are returned unwrapped.
func (m *AccountManagerImpl) ApplyEntry(ctx context.Context, tx pgx.Tx, mv service.Movement) (*account.Account, error) {
	logger := m.logger.With("correlation_id", mv.CorrelationID.String(), "acc_id", mv.AccountID.String(), "kind", string(mv.Kind))

	accountRepoTx := m.accountRepo.WithTx(tx)

	lockedAccount, err := accountRepoTx.LockForUpdate(ctx, mv.AccountID)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound{AccountID: mv.AccountID}) {
			logger.Warn("Account not found for lock")
			return nil, err
		}
		logger.Error("Failed to lock account", "error", err)
		return nil, fmt.Errorf("failed to lock account %s: %w", mv.AccountID.String(), err)
	}
	logger.Debug("Account locked", "bal", lockedAccount.Balance.String(), "ver", lockedAccount.Version)

	switch mv.Kind {
	case ledger.KindDebit:
		err = lockedAccount.Debit(mv.Amount)
	case ledger.KindCredit, ledger.KindReversal:
		err = lockedAccount.Credit(mv.Amount)
	default:
		return nil, ErrUnsupportedKind{Kind: mv.Kind}
	}
	if err != nil {
		logger.Warn("Movement refused by account", "error", err, "bal", lockedAccount.Balance.String(), "amt", mv.Amount.String())
		return nil, err
	}

	if err = accountRepoTx.Update(ctx, lockedAccount); err != nil {
		if errors.Is(err, account.ErrConcurrentModification{AccountID: lockedAccount.ID}) {
			logger.Warn("Concurrent modification on account update")
		} else {
			logger.Error("Failed to update account in DB", "error", err)
		}
		return nil, err
	}

	entry := ledger.NewEntry(mv.AccountID, mv.Kind, mv.Amount, mv.Reason, mv.CorrelationID)
	if err = m.ledgerRepo.WithTx(tx).Insert(ctx, entry); err != nil {
		logger.Error("Failed to insert ledger entry", "error", err)
		return nil, err
	}
	logger.Info("Ledger entry applied", "entry_id", entry.ID.String(), "new_bal", lockedAccount.Balance.String())

	return lockedAccount, nil
}
