package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sarabank-saga/internal/domain/user"
	"github.com/sarabank-saga/internal/platform/persistence"
)

// UserRepository implements the user.Repository interface for PostgreSQL
type UserRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewUserRepository creates a new PostgreSQL user repository
func NewUserRepository(logger *slog.Logger, querier persistence.Querier) user.Repository {
	return &UserRepository{
		querier: querier,
		logger:  logger,
	}
}

func (r *UserRepository) WithTx(tx pgx.Tx) user.Repository {
	return &UserRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a user; a taken CPF is reported as ErrDuplicateCPF
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	query := `
		INSERT INTO users (id, name, cpf, email, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.querier.Exec(ctx, query, u.ID, u.Name, u.CPF, u.Email, u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return user.ErrDuplicateCPF{CPF: u.CPF}
		}
		r.logger.Error("Failed to create user", "user_id", u.ID.String(), "error", err)
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by its ID
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	query := `SELECT id, name, cpf, email, created_at FROM users WHERE id = $1`

	var u user.User
	err := r.querier.QueryRow(ctx, query, id).Scan(&u.ID, &u.Name, &u.CPF, &u.Email, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrUserNotFound{UserID: id}
		}
		r.logger.Error("Failed to get user", "user_id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &u, nil
}

// ExistsByCPF reports whether the document is already registered
func (r *UserRepository) ExistsByCPF(ctx context.Context, cpf string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM users WHERE cpf = $1)`

	var exists bool
	if err := r.querier.QueryRow(ctx, query, cpf).Scan(&exists); err != nil {
		r.logger.Error("Failed to check user CPF", "error", err)
		return false, fmt.Errorf("failed to check user CPF: %w", err)
	}
	return exists, nil
}
