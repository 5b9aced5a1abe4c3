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
	"github.com/shopspring/decimal"
)

// ProcessingService routes a decoded event to the step that owns it.
// A nil return acknowledges the message; an error asks for redelivery.
type ProcessingService interface {
	ProcessEvent(ctx context.Context, evt events.Event) error
}

// StepHandler applies one step of the transfer saga or of the movement flow
type StepHandler interface {
	Name() string
	Handle(ctx context.Context, evt events.Event) error
}

// IdempotencyGuard reports whether a ledger effect was already applied for a correlation id.
// It reads through tx so the check and the mutation share one transaction.
type IdempotencyGuard interface {
	AlreadyApplied(ctx context.Context, tx pgx.Tx, correlationID uuid.UUID, kind ledger.Kind) (bool, error)
}

// AccountManager locks an account, applies a ledger movement to it and records the entry
type AccountManager interface {
	ApplyEntry(ctx context.Context, tx pgx.Tx, movement Movement) (*account.Account, error)
}

// Movement describes one balance change and the ledger entry that witnesses it
type Movement struct {
	AccountID     uuid.UUID
	Kind          ledger.Kind
	Amount        decimal.Decimal
	Reason        string
	CorrelationID uuid.UUID
}

// OutboxWriter stages events into an open ledger transaction
type OutboxWriter interface {
	Enqueue(ctx context.Context, tx pgx.Tx, evt events.Event) (*outbox.Message, error)
}

// Auditor appends entries to the saga timeline. Failures are logged, never returned.
type Auditor interface {
	Record(ctx context.Context, record *saga.AuditRecord)
}
