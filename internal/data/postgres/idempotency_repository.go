package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/sarabank-saga/internal/domain/idempotency"
	"github.com/sarabank-saga/internal/platform/persistence"
)

// IdempotencyRepository implements the idempotency.Repository interface for PostgreSQL
type IdempotencyRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewIdempotencyRepository creates a new PostgreSQL request-id repository
func NewIdempotencyRepository(logger *slog.Logger, querier persistence.Querier) idempotency.Repository {
	return &IdempotencyRepository{
		querier: querier,
		logger:  logger,
	}
}

func (r *IdempotencyRepository) WithTx(tx pgx.Tx) idempotency.Repository {
	return &IdempotencyRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Exists reports whether the request id was already recorded
func (r *IdempotencyRepository) Exists(ctx context.Context, requestID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM idempotency_records WHERE request_id = $1)`

	var exists bool
	if err := r.querier.QueryRow(ctx, query, requestID).Scan(&exists); err != nil {
		r.logger.Error("Failed to check request id", "request_id", requestID, "error", err)
		return false, fmt.Errorf("failed to check request id: %w", err)
	}
	return exists, nil
}

// Save records the request id. A concurrent duplicate surfaces as ErrAlreadyProcessed.
func (r *IdempotencyRepository) Save(ctx context.Context, record *idempotency.Record) error {
	query := `
		INSERT INTO idempotency_records (request_id, command, processed_at)
		VALUES ($1, $2, $3)
	`

	_, err := r.querier.Exec(ctx, query, record.RequestID, record.Command, record.ProcessedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return idempotency.ErrAlreadyProcessed{RequestID: record.RequestID}
		}
		r.logger.Error("Failed to save request id", "request_id", record.RequestID, "error", err)
		return fmt.Errorf("failed to save request id: %w", err)
	}
	return nil
}
