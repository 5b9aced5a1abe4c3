package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sarabank-saga/internal/domain/ledger"
	"github.com/sarabank-saga/internal/platform/persistence"
)

const ledgerColumns = `id, account_id, amount, kind, reason, saga_id, created_at`

// LedgerRepository implements the ledger.Repository interface for PostgreSQL
type LedgerRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewLedgerRepository creates a new PostgreSQL ledger repository
func NewLedgerRepository(logger *slog.Logger, querier persistence.Querier) ledger.Repository {
	return &LedgerRepository{
		querier: querier,
		logger:  logger,
	}
}

func (r *LedgerRepository) WithTx(tx pgx.Tx) ledger.Repository {
	return &LedgerRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Insert appends an entry. A second entry of the same kind for one saga violates
// the (saga_id, kind) unique index and is reported as ErrDuplicateEntry.
func (r *LedgerRepository) Insert(ctx context.Context, entry *ledger.Entry) error {
	query := `
		INSERT INTO ledger_entries (` + ledgerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.querier.Exec(ctx, query,
		entry.ID,
		entry.AccountID,
		entry.Amount,
		entry.Kind,
		entry.Reason,
		entry.SagaID,
		entry.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) && entry.SagaID != nil {
			return ledger.ErrDuplicateEntry{SagaID: *entry.SagaID, Kind: entry.Kind}
		}
		r.logger.Error("Failed to insert ledger entry",
			"account_id", entry.AccountID.String(),
			"kind", string(entry.Kind),
			"error", err)
		return fmt.Errorf("failed to insert ledger entry: %w", err)
	}

	return nil
}

// ExistsForSaga is the idempotency witness query
func (r *LedgerRepository) ExistsForSaga(ctx context.Context, sagaID uuid.UUID, kind ledger.Kind) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM ledger_entries WHERE saga_id = $1 AND kind = $2)`

	var exists bool
	if err := r.querier.QueryRow(ctx, query, sagaID, kind).Scan(&exists); err != nil {
		r.logger.Error("Failed to check ledger entry existence",
			"saga_id", sagaID.String(),
			"kind", string(kind),
			"error", err)
		return false, fmt.Errorf("failed to check ledger entry existence: %w", err)
	}

	return exists, nil
}

// ListBySaga returns every entry tagged with the saga id, oldest first
func (r *LedgerRepository) ListBySaga(ctx context.Context, sagaID uuid.UUID) ([]*ledger.Entry, error) {
	query := `SELECT ` + ledgerColumns + ` FROM ledger_entries WHERE saga_id = $1 ORDER BY created_at ASC`

	rows, err := r.querier.Query(ctx, query, sagaID)
	if err != nil {
		r.logger.Error("Failed to list ledger entries by saga", "saga_id", sagaID.String(), "error", err)
		return nil, fmt.Errorf("failed to list ledger entries by saga: %w", err)
	}
	return r.scanEntries(rows)
}

// ListByAccount returns a page of an account's statement, newest first
func (r *LedgerRepository) ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*ledger.Entry, error) {
	query := `
		SELECT ` + ledgerColumns + `
		FROM ledger_entries
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.querier.Query(ctx, query, accountID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list ledger entries by account", "account_id", accountID.String(), "error", err)
		return nil, fmt.Errorf("failed to list ledger entries by account: %w", err)
	}
	return r.scanEntries(rows)
}

// CountByAccount counts an account's statement lines
func (r *LedgerRepository) CountByAccount(ctx context.Context, accountID uuid.UUID) (int64, error) {
	query := `SELECT COUNT(*) FROM ledger_entries WHERE account_id = $1`

	var count int64
	if err := r.querier.QueryRow(ctx, query, accountID).Scan(&count); err != nil {
		r.logger.Error("Failed to count ledger entries", "account_id", accountID.String(), "error", err)
		return 0, fmt.Errorf("failed to count ledger entries: %w", err)
	}
	return count, nil
}

func (r *LedgerRepository) scanEntries(rows pgx.Rows) ([]*ledger.Entry, error) {
	defer rows.Close()

	entries := make([]*ledger.Entry, 0)
	for rows.Next() {
		var entry ledger.Entry
		err := rows.Scan(
			&entry.ID,
			&entry.AccountID,
			&entry.Amount,
			&entry.Kind,
			&entry.Reason,
			&entry.SagaID,
			&entry.CreatedAt,
		)
		if err != nil {
			r.logger.Error("Failed to scan ledger entry", "error", err)
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over ledger entries", "error", err)
		return nil, fmt.Errorf("error iterating over ledger entries: %w", err)
	}

	return entries, nil
}
