package outbox

import (
	"context"
	"strconv"

	"github.com/jackc/pgx/v5"
)

// Repository manages transactional outbox message persistence
type Repository interface {
	Create(ctx context.Context, message *Message) error
	// GetPending returns unprocessed, non dead-lettered rows with attempts below maxAttempts, oldest first
	GetPending(ctx context.Context, limit, maxAttempts int) ([]*Message, error)
	GetByID(ctx context.Context, id int64) (*Message, error)
	MarkProcessed(ctx context.Context, id int64) error
	// RecordFailure adds one to attempts and stamps the failure time. The row is
	// dead-lettered in the same statement once attempts reaches maxAttempts.
	RecordFailure(ctx context.Context, id int64, reason string, maxAttempts int) (FailureOutcome, error)
	ListDeadLettered(ctx context.Context, limit, offset int) ([]*Message, error)
	CountDeadLettered(ctx context.Context) (int64, error)
	// Replay clears the dead-letter mark and resets attempts so the dispatcher picks the row up again
	Replay(ctx context.Context, id int64) error
	WithTx(tx pgx.Tx) Repository
}

// FailureOutcome is the row state after a failed dispatch cycle
type FailureOutcome struct {
	Attempts     int
	DeadLettered bool
}

// ErrMessageNotFound indicates missing outbox message
type ErrMessageNotFound struct {
	ID int64
}

func (e ErrMessageNotFound) Error() string {
	return "outbox message not found: " + strconv.FormatInt(e.ID, 10)
}

// ErrNotDeadLettered is returned when replaying a message that is not parked
type ErrNotDeadLettered struct {
	ID int64
}

func (e ErrNotDeadLettered) Error() string {
	return "outbox message is not dead-lettered: " + strconv.FormatInt(e.ID, 10)
}
