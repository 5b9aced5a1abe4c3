// Package idempotency guards synchronous commands against client retries.
package idempotency

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

// Record is written once per client request id
type Record struct {
	RequestID   string    `json:"request_id"`
	Command     string    `json:"command"`
	ProcessedAt time.Time `json:"processed_at"`
}

// NewRecord stamps a request id with the command it executed
func NewRecord(requestID, command string) *Record {
	return &Record{
		RequestID:   requestID,
		Command:     command,
		ProcessedAt: time.Now().UTC(),
	}
}

// Repository stores request records in the ledger store
type Repository interface {
	Exists(ctx context.Context, requestID string) (bool, error)
	Save(ctx context.Context, record *Record) error
	WithTx(tx pgx.Tx) Repository
}

// ErrAlreadyProcessed is returned when a request id was seen before
type ErrAlreadyProcessed struct {
	RequestID string
}

func (e ErrAlreadyProcessed) Error() string {
	return "operation already processed"
}

// Is matches any ErrAlreadyProcessed when the target RequestID is empty
func (e ErrAlreadyProcessed) Is(target error) bool {
	t, ok := target.(ErrAlreadyProcessed)
	if !ok {
		return false
	}
	return t.RequestID == "" || t.RequestID == e.RequestID
}
