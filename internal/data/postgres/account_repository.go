// Package postgres provides PostgreSQL implementations of the domain repositories.
// Every repository can be bound to an explicit transaction with WithTx so that
// balance changes, ledger entries, saga state and outbox rows commit together.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sarabank-saga/internal/domain/account"
	"github.com/sarabank-saga/internal/platform/persistence"
)

const accountColumns = `id, owner_id, balance, version, created_at, updated_at`

// AccountRepository implements the account.Repository interface for PostgreSQL
type AccountRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewAccountRepository creates a new PostgreSQL account repository.
func NewAccountRepository(logger *slog.Logger, querier persistence.Querier) account.Repository {
	return &AccountRepository{
		querier: querier,
		logger:  logger,
	}
}

// WithTx returns a repository staging every operation into tx
func (r *AccountRepository) WithTx(tx pgx.Tx) account.Repository {
	return &AccountRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new account
func (r *AccountRepository) Create(ctx context.Context, acc *account.Account) error {
	query := `
		INSERT INTO accounts (id, owner_id, balance, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.querier.Exec(ctx, query,
		acc.ID,
		acc.OwnerID,
		acc.Balance,
		acc.Version,
		acc.CreatedAt,
		acc.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create account", "owner_id", acc.OwnerID.String(), "error", err)
		return fmt.Errorf("failed to create account: %w", err)
	}

	return nil
}

// GetByID retrieves an account by its ID
func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return r.getOne(ctx, "get account", query, id)
}

// LockForUpdate reads the account under a row lock held until the transaction ends
func (r *AccountRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 FOR UPDATE`
	return r.getOne(ctx, "lock account for update", query, id)
}

func (r *AccountRepository) getOne(ctx context.Context, op, query string, id uuid.UUID) (*account.Account, error) {
	var acc account.Account
	err := r.querier.QueryRow(ctx, query, id).Scan(
		&acc.ID,
		&acc.OwnerID,
		&acc.Balance,
		&acc.Version,
		&acc.CreatedAt,
		&acc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, account.ErrAccountNotFound{AccountID: id}
		}
		r.logger.Error("Failed to "+op, "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}

	return &acc, nil
}

// Update persists the balance, checking the previous version for optimistic locking
func (r *AccountRepository) Update(ctx context.Context, acc *account.Account) error {
	query := `
		UPDATE accounts
		SET balance = $1, version = $2, updated_at = $3
		WHERE id = $4 AND version = $5
	`

	result, err := r.querier.Exec(ctx, query,
		acc.Balance,
		acc.Version,
		acc.UpdatedAt,
		acc.ID,
		acc.Version-1,
	)
	if err != nil {
		r.logger.Error("Failed to update account", "id", acc.ID.String(), "error", err)
		return fmt.Errorf("failed to update account: %w", err)
	}

	if result.RowsAffected() == 0 {
		return account.ErrConcurrentModification{AccountID: acc.ID, ExpectedVersion: acc.Version - 1}
	}

	return nil
}
