package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sarabank-saga/internal/domain/account"
	"github.com/sarabank-saga/internal/domain/events"
	"github.com/sarabank-saga/internal/domain/ledger"
	"github.com/sarabank-saga/internal/domain/outbox"
	"github.com/sarabank-saga/internal/domain/saga"
	"github.com/sarabank-saga/internal/domain/user"
	"github.com/shopspring/decimal"
)

// OutboxWriter stages events into an open ledger transaction
type OutboxWriter interface {
	Enqueue(ctx context.Context, tx pgx.Tx, evt events.Event) (*outbox.Message, error)
}

// RegisterUserInput carries a validated registration command
type RegisterUserInput struct {
	Name           string
	CPF            string
	Email          string
	InitialBalance decimal.Decimal
}

// Registration is the synchronous outcome of a registration
type Registration struct {
	User    *user.User
	Account *account.Account
}

// UserService defines the interface for user registration
type UserService interface {
	// Register creates the user and an empty account, and enqueues UserRegistered.
	// Returns ErrAlreadyProcessed for a repeated request id and ErrDuplicateCPF for a taken document.
	Register(ctx context.Context, requestID string, in RegisterUserInput) (*Registration, error)
}

// AccountService defines the interface for account operations
type AccountService interface {
	// GetAccountByID retrieves an account by its ID
	// Returns ErrAccountNotFound if the account doesn't exist
	GetAccountByID(ctx context.Context, id uuid.UUID) (*account.Account, error)

	// GetStatement returns a page of ledger entries, newest first, and the total count
	GetStatement(ctx context.Context, accountID uuid.UUID, page, perPage int) ([]*ledger.Entry, int64, error)

	// RequestMovement enqueues a deposit or withdrawal and returns its movement id
	RequestMovement(ctx context.Context, accountID uuid.UUID, kind events.MovementType, amount decimal.Decimal, description string) (uuid.UUID, error)
}

// TransferService defines the interface for transfer sagas
type TransferService interface {
	// InitiateTransfer records an INITIATED saga and enqueues TransferInitiated
	InitiateTransfer(ctx context.Context, from, to uuid.UUID, amount decimal.Decimal) (*saga.Saga, error)

	// GetTransfer returns the saga and its audit timeline
	GetTransfer(ctx context.Context, id uuid.UUID) (*saga.Saga, []*saga.AuditRecord, error)
}

// OperatorService exposes the dead-letter and stalled-saga surfaces
type OperatorService interface {
	ListDeadLetters(ctx context.Context, page, perPage int) ([]*outbox.Message, int64, error)
	ReplayDeadLetter(ctx context.Context, id int64) error
	ListStalledSagas(ctx context.Context, page, perPage int) ([]*saga.Saga, error)
}
