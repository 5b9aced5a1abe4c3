package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sarabank-saga/internal/domain/saga"
	"github.com/sarabank-saga/internal/platform/persistence"
)

const sagaColumns = `id, from_account_id, to_account_id, amount, state, reason, created_at, updated_at, stalled_at`

// SagaRepository implements the saga.Repository interface for PostgreSQL
type SagaRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewSagaRepository creates a new PostgreSQL saga repository
func NewSagaRepository(logger *slog.Logger, querier persistence.Querier) saga.Repository {
	return &SagaRepository{
		querier: querier,
		logger:  logger,
	}
}

func (r *SagaRepository) WithTx(tx pgx.Tx) saga.Repository {
	return &SagaRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new saga record
func (r *SagaRepository) Create(ctx context.Context, s *saga.Saga) error {
	query := `
		INSERT INTO sagas (id, from_account_id, to_account_id, amount, state, reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.querier.Exec(ctx, query,
		s.ID,
		s.FromAccount,
		s.ToAccount,
		s.Amount,
		s.State,
		s.Reason,
		s.CreatedAt,
		s.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create saga", "saga_id", s.ID.String(), "error", err)
		return fmt.Errorf("failed to create saga: %w", err)
	}

	return nil
}

// GetByID retrieves a saga by its ID
func (r *SagaRepository) GetByID(ctx context.Context, id uuid.UUID) (*saga.Saga, error) {
	query := `SELECT ` + sagaColumns + ` FROM sagas WHERE id = $1`
	return r.getOne(ctx, "get saga", query, id)
}

// LockForUpdate serializes concurrent deliveries of the same saga step
func (r *SagaRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*saga.Saga, error) {
	query := `SELECT ` + sagaColumns + ` FROM sagas WHERE id = $1 FOR UPDATE`
	return r.getOne(ctx, "lock saga for update", query, id)
}

func (r *SagaRepository) getOne(ctx context.Context, op, query string, id uuid.UUID) (*saga.Saga, error) {
	var s saga.Saga
	err := r.querier.QueryRow(ctx, query, id).Scan(
		&s.ID,
		&s.FromAccount,
		&s.ToAccount,
		&s.Amount,
		&s.State,
		&s.Reason,
		&s.CreatedAt,
		&s.UpdatedAt,
		&s.StalledAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, saga.ErrSagaNotFound{SagaID: id}
		}
		r.logger.Error("Failed to "+op, "saga_id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
	return &s, nil
}

// UpdateState persists a transition. Moving a saga clears any stall flag.
func (r *SagaRepository) UpdateState(ctx context.Context, s *saga.Saga) error {
	query := `
		UPDATE sagas
		SET state = $1, reason = $2, updated_at = $3, stalled_at = NULL
		WHERE id = $4
	`

	result, err := r.querier.Exec(ctx, query, s.State, s.Reason, s.UpdatedAt, s.ID)
	if err != nil {
		r.logger.Error("Failed to update saga state", "saga_id", s.ID.String(), "state", string(s.State), "error", err)
		return fmt.Errorf("failed to update saga state: %w", err)
	}

	if result.RowsAffected() == 0 {
		return saga.ErrSagaNotFound{SagaID: s.ID}
	}

	s.StalledAt = nil
	return nil
}

// FindStalled returns non-terminal sagas idle since olderThan that are not yet flagged
func (r *SagaRepository) FindStalled(ctx context.Context, olderThan time.Time, limit int) ([]*saga.Saga, error) {
	query := `
		SELECT ` + sagaColumns + `
		FROM sagas
		WHERE state = ANY($1) AND updated_at < $2 AND stalled_at IS NULL
		ORDER BY updated_at ASC
		LIMIT $3
	`

	rows, err := r.querier.Query(ctx, query, nonTerminalStates(), olderThan, limit)
	if err != nil {
		r.logger.Error("Failed to find stalled sagas", "error", err)
		return nil, fmt.Errorf("failed to find stalled sagas: %w", err)
	}
	return r.scanSagas(rows)
}

// MarkStalled flags a saga for operator attention
func (r *SagaRepository) MarkStalled(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `UPDATE sagas SET stalled_at = $1 WHERE id = $2 AND stalled_at IS NULL`

	result, err := r.querier.Exec(ctx, query, at, id)
	if err != nil {
		r.logger.Error("Failed to mark saga stalled", "saga_id", id.String(), "error", err)
		return fmt.Errorf("failed to mark saga stalled: %w", err)
	}

	if result.RowsAffected() == 0 {
		return saga.ErrSagaNotFound{SagaID: id}
	}
	return nil
}

// ListStalled returns flagged sagas still in a non-terminal state
func (r *SagaRepository) ListStalled(ctx context.Context, limit, offset int) ([]*saga.Saga, error) {
	query := `
		SELECT ` + sagaColumns + `
		FROM sagas
		WHERE stalled_at IS NOT NULL AND state = ANY($1)
		ORDER BY stalled_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.querier.Query(ctx, query, nonTerminalStates(), limit, offset)
	if err != nil {
		r.logger.Error("Failed to list stalled sagas", "error", err)
		return nil, fmt.Errorf("failed to list stalled sagas: %w", err)
	}
	return r.scanSagas(rows)
}

func (r *SagaRepository) scanSagas(rows pgx.Rows) ([]*saga.Saga, error) {
	defer rows.Close()

	sagas := make([]*saga.Saga, 0)
	for rows.Next() {
		var s saga.Saga
		err := rows.Scan(
			&s.ID,
			&s.FromAccount,
			&s.ToAccount,
			&s.Amount,
			&s.State,
			&s.Reason,
			&s.CreatedAt,
			&s.UpdatedAt,
			&s.StalledAt,
		)
		if err != nil {
			r.logger.Error("Failed to scan saga", "error", err)
			return nil, fmt.Errorf("failed to scan saga: %w", err)
		}
		sagas = append(sagas, &s)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over sagas", "error", err)
		return nil, fmt.Errorf("error iterating over sagas: %w", err)
	}

	return sagas, nil
}

func nonTerminalStates() []string {
	states := saga.NonTerminalStates()
	out := make([]string, len(states))
	for i, s := range states {
		out[i] = string(s)
	}
	return out
}
