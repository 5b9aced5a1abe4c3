package account

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrAccountNotFound is returned by reads of an unknown account id.
// errors.Is with a zero AccountID matches any missing account.
type ErrAccountNotFound struct {
	AccountID uuid.UUID
}

func (e ErrAccountNotFound) Error() string {
	return "account not found: " + e.AccountID.String()
}

func (e ErrAccountNotFound) Is(target error) bool {
	t, ok := target.(ErrAccountNotFound)
	return ok && (t.AccountID == uuid.Nil || t.AccountID == e.AccountID)
}

// ErrConcurrentModification means the stored version moved past ExpectedVersion
type ErrConcurrentModification struct {
	AccountID       uuid.UUID
	ExpectedVersion int
}

func (e ErrConcurrentModification) Error() string {
	return "account " + e.AccountID.String() + " was modified concurrently"
}

func (e ErrConcurrentModification) Is(target error) bool {
	t, ok := target.(ErrConcurrentModification)
	return ok && (t.AccountID == uuid.Nil || t.AccountID == e.AccountID)
}

// Repository stores accounts. Balance writes happen inside the saga step
// transaction, so callers lock first and then Update through the same tx.
type Repository interface {
	Create(ctx context.Context, acc *Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)
	LockForUpdate(ctx context.Context, id uuid.UUID) (*Account, error)
	Update(ctx context.Context, acc *Account) error
	WithTx(tx pgx.Tx) Repository
}
