package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository manages ledger entry persistence. Entries are never updated or deleted.
type Repository interface {
	Insert(ctx context.Context, entry *Entry) error

	// ExistsForSaga reports whether an entry of kind exists for the correlation id
	ExistsForSaga(ctx context.Context, sagaID uuid.UUID, kind Kind) (bool, error)
	ListBySaga(ctx context.Context, sagaID uuid.UUID) ([]*Entry, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*Entry, error)
	CountByAccount(ctx context.Context, accountID uuid.UUID) (int64, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrDuplicateEntry indicates a second entry of the same kind for one correlation id
type ErrDuplicateEntry struct {
	SagaID uuid.UUID
	Kind   Kind
}

func (e ErrDuplicateEntry) Error() string {
	return "duplicate " + string(e.Kind) + " ledger entry for saga: " + e.SagaID.String()
}

// Is implements the errors.Is interface for ErrDuplicateEntry
func (e ErrDuplicateEntry) Is(target error) bool {
	t, ok := target.(ErrDuplicateEntry)
	if !ok {
		return false
	}
	// If the target SagaID is empty, consider it a match for any ErrDuplicateEntry
	if t.SagaID == uuid.Nil {
		return true
	}
	return e.SagaID == t.SagaID && e.Kind == t.Kind
}
