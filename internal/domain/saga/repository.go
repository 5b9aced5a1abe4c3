package saga

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository persists saga records in the ledger store
type Repository interface {
	Create(ctx context.Context, s *Saga) error
	GetByID(ctx context.Context, id uuid.UUID) (*Saga, error)

	// LockForUpdate reads the saga holding a row lock until the transaction ends
	LockForUpdate(ctx context.Context, id uuid.UUID) (*Saga, error)
	UpdateState(ctx context.Context, s *Saga) error

	// FindStalled returns non-terminal, unflagged sagas not updated since olderThan
	FindStalled(ctx context.Context, olderThan time.Time, limit int) ([]*Saga, error)
	MarkStalled(ctx context.Context, id uuid.UUID, at time.Time) error
	ListStalled(ctx context.Context, limit, offset int) ([]*Saga, error)
	WithTx(tx pgx.Tx) Repository
}

// AuditRepository stores the saga timeline in the document store
type AuditRepository interface {
	Append(ctx context.Context, record *AuditRecord) error
	ListBySaga(ctx context.Context, sagaID uuid.UUID) ([]*AuditRecord, error)
}
