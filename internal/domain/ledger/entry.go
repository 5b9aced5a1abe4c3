package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Kind classifies a ledger movement
type Kind string

const (
	KindDebit    Kind = "DEBIT"
	KindCredit   Kind = "CREDIT"
	KindReversal Kind = "REVERSAL"
)

// Entry is an immutable, append-only balance movement. Amount is signed:
// debits are negative, credits and reversals positive.
type Entry struct {
	ID        uuid.UUID       `json:"id"`
	AccountID uuid.UUID       `json:"account_id"`
	Amount    decimal.Decimal `json:"amount"`
	Kind      Kind            `json:"kind"`
	Reason    string          `json:"reason"`
	SagaID    *uuid.UUID      `json:"saga_id,omitempty"` // Saga or movement correlation id
	CreatedAt time.Time       `json:"created_at"`
}

// NewEntry builds an entry for a positive amount, applying the sign of kind
func NewEntry(accountID uuid.UUID, kind Kind, amount decimal.Decimal, reason string, correlationID uuid.UUID) *Entry {
	signed := amount.Abs()
	if kind == KindDebit {
		signed = signed.Neg()
	}

	entry := &Entry{
		ID:        uuid.New(),
		AccountID: accountID,
		Amount:    signed,
		Kind:      kind,
		Reason:    reason,
		CreatedAt: time.Now().UTC(),
	}
	if correlationID != uuid.Nil {
		id := correlationID
		entry.SagaID = &id
	}
	return entry
}
