package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/sarabank-saga/internal/domain/outbox"
	"github.com/sarabank-saga/internal/platform/persistence"
)

const outboxColumns = `id, event_type, topic, saga_id, payload, attempts, processed, created_at, processed_at, last_failure_at, last_error, dead_lettered_at`

// OutboxRepository implements the outbox.Repository interface for PostgreSQL
type OutboxRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewOutboxRepository creates a new PostgreSQL outbox repository
func NewOutboxRepository(logger *slog.Logger, querier persistence.Querier) outbox.Repository {
	return &OutboxRepository{
		querier: querier,
		logger:  logger,
	}
}

// WithTx binds the repository to tx so the row commits with the state change it announces
func (r *OutboxRepository) WithTx(tx pgx.Tx) outbox.Repository {
	return &OutboxRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new unprocessed message
func (r *OutboxRepository) Create(ctx context.Context, message *outbox.Message) error {
	query := `
		INSERT INTO outbox_messages (event_type, topic, saga_id, payload, attempts, processed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	err := r.querier.QueryRow(ctx, query,
		message.EventType,
		message.Topic,
		message.SagaID,
		message.Payload,
		message.Attempts,
		message.Processed,
		message.CreatedAt,
	).Scan(&message.ID)
	if err != nil {
		r.logger.Error("Failed to create outbox message",
			"event_type", string(message.EventType),
			"error", err,
		)
		return fmt.Errorf("failed to create outbox message: %w", err)
	}

	return nil
}

// GetPending retrieves the oldest messages eligible for dispatch
func (r *OutboxRepository) GetPending(ctx context.Context, limit, maxAttempts int) ([]*outbox.Message, error) {
	query := `
		SELECT ` + outboxColumns + `
		FROM outbox_messages
		WHERE processed = FALSE AND attempts < $1 AND dead_lettered_at IS NULL
		ORDER BY created_at ASC, id ASC
		LIMIT $2
	`

	rows, err := r.querier.Query(ctx, query, maxAttempts, limit)
	if err != nil {
		r.logger.Error("Failed to get pending outbox messages", "error", err)
		return nil, fmt.Errorf("failed to get pending outbox messages: %w", err)
	}
	return r.scanMessages(rows)
}

// GetByID retrieves a single message
func (r *OutboxRepository) GetByID(ctx context.Context, id int64) (*outbox.Message, error) {
	query := `SELECT ` + outboxColumns + ` FROM outbox_messages WHERE id = $1`

	rows, err := r.querier.Query(ctx, query, id)
	if err != nil {
		r.logger.Error("Failed to get outbox message", "id", id, "error", err)
		return nil, fmt.Errorf("failed to get outbox message: %w", err)
	}
	messages, err := r.scanMessages(rows)
	if err != nil {
		return nil, err
	}
	if len(messages) == 0 {
		return nil, outbox.ErrMessageNotFound{ID: id}
	}
	return messages[0], nil
}

// MarkProcessed flags a message as published
func (r *OutboxRepository) MarkProcessed(ctx context.Context, id int64) error {
	query := `
		UPDATE outbox_messages
		SET processed = TRUE, processed_at = NOW()
		WHERE id = $1
	`
	return r.execOne(ctx, "mark outbox message processed", query, id)
}

// RecordFailure counts one failed dispatch cycle. Reaching maxAttempts sets the
// dead-letter mark in the same UPDATE, so a row never leaves the pending set unmarked.
func (r *OutboxRepository) RecordFailure(ctx context.Context, id int64, reason string, maxAttempts int) (outbox.FailureOutcome, error) {
	query := `
		UPDATE outbox_messages
		SET attempts = attempts + 1,
			last_failure_at = NOW(),
			last_error = $1,
			dead_lettered_at = CASE
				WHEN attempts + 1 >= $3 THEN COALESCE(dead_lettered_at, NOW())
				ELSE dead_lettered_at
			END
		WHERE id = $2
		RETURNING attempts, dead_lettered_at IS NOT NULL
	`

	var outcome outbox.FailureOutcome
	err := r.querier.QueryRow(ctx, query, reason, id, maxAttempts).Scan(&outcome.Attempts, &outcome.DeadLettered)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return outbox.FailureOutcome{}, outbox.ErrMessageNotFound{ID: id}
		}
		r.logger.Error("Failed to record outbox failure", "id", id, "error", err)
		return outbox.FailureOutcome{}, fmt.Errorf("failed to record outbox failure: %w", err)
	}

	return outcome, nil
}

// ListDeadLettered returns parked messages, most recent first
func (r *OutboxRepository) ListDeadLettered(ctx context.Context, limit, offset int) ([]*outbox.Message, error) {
	query := `
		SELECT ` + outboxColumns + `
		FROM outbox_messages
		WHERE dead_lettered_at IS NOT NULL
		ORDER BY dead_lettered_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.querier.Query(ctx, query, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list dead-lettered outbox messages", "error", err)
		return nil, fmt.Errorf("failed to list dead-lettered outbox messages: %w", err)
	}
	return r.scanMessages(rows)
}

// CountDeadLettered counts parked messages
func (r *OutboxRepository) CountDeadLettered(ctx context.Context) (int64, error) {
	query := `SELECT COUNT(*) FROM outbox_messages WHERE dead_lettered_at IS NOT NULL`

	var count int64
	if err := r.querier.QueryRow(ctx, query).Scan(&count); err != nil {
		r.logger.Error("Failed to count dead-lettered outbox messages", "error", err)
		return 0, fmt.Errorf("failed to count dead-lettered outbox messages: %w", err)
	}
	return count, nil
}

// Replay returns a parked message to the dispatch queue with a fresh attempt budget
func (r *OutboxRepository) Replay(ctx context.Context, id int64) error {
	query := `
		UPDATE outbox_messages
		SET attempts = 0, dead_lettered_at = NULL, last_error = ''
		WHERE id = $1 AND dead_lettered_at IS NOT NULL AND processed = FALSE
	`

	result, err := r.querier.Exec(ctx, query, id)
	if err != nil {
		r.logger.Error("Failed to replay outbox message", "id", id, "error", err)
		return fmt.Errorf("failed to replay outbox message: %w", err)
	}

	if result.RowsAffected() == 0 {
		return outbox.ErrNotDeadLettered{ID: id}
	}

	return nil
}

func (r *OutboxRepository) execOne(ctx context.Context, op, query string, id int64) error {
	result, err := r.querier.Exec(ctx, query, id)
	if err != nil {
		r.logger.Error("Failed to "+op, "id", id, "error", err)
		return fmt.Errorf("failed to %s: %w", op, err)
	}

	if result.RowsAffected() == 0 {
		return outbox.ErrMessageNotFound{ID: id}
	}

	return nil
}

func (r *OutboxRepository) scanMessages(rows pgx.Rows) ([]*outbox.Message, error) {
	defer rows.Close()

	messages := make([]*outbox.Message, 0)
	for rows.Next() {
		var message outbox.Message
		err := rows.Scan(
			&message.ID,
			&message.EventType,
			&message.Topic,
			&message.SagaID,
			&message.Payload,
			&message.Attempts,
			&message.Processed,
			&message.CreatedAt,
			&message.ProcessedAt,
			&message.LastFailureAt,
			&message.LastError,
			&message.DeadLetteredAt,
		)
		if err != nil {
			r.logger.Error("Failed to scan outbox message", "error", err)
			return nil, fmt.Errorf("failed to scan outbox message: %w", err)
		}
		messages = append(messages, &message)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over outbox messages", "error", err)
		return nil, fmt.Errorf("error iterating over outbox messages: %w", err)
	}

	return messages, nil
}
