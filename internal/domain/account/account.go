package account

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Common errors
var (
	ErrInsufficientFunds = errors.New("insufficient funds for debit")
	ErrInvalidAmount     = errors.New("amount must be positive with at most two decimal places")
)

// MoneyScale is the number of decimal places stored for balances and ledger entries
const MoneyScale = 2

// HasMoneyScale reports whether amount is representable in cents without rounding
func HasMoneyScale(amount decimal.Decimal) bool {
	return amount.Equal(amount.Truncate(MoneyScale))
}

// ValidateAmount accepts strictly positive amounts of whole cents
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() || !HasMoneyScale(amount) {
		return ErrInvalidAmount
	}
	return nil
}

// Account represents a bank account owned by a registered user
type Account struct {
	ID        uuid.UUID       `json:"id"`
	OwnerID   uuid.UUID       `json:"owner_id"`
	Balance   decimal.Decimal `json:"balance"`
	Version   int             `json:"version"` // For optimistic locking
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// NewAccount opens an empty account for the given owner
func NewAccount(ownerID uuid.UUID) *Account {
	now := time.Now().UTC()
	return &Account{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Balance:   decimal.Zero,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Credit adds amount to the balance
func (a *Account) Credit(amount decimal.Decimal) error {
	if err := ValidateAmount(amount); err != nil {
		return err
	}

	a.Balance = a.Balance.Add(amount)
	a.touch()
	return nil
}

// Debit subtracts amount from the balance. The balance never goes negative.
func (a *Account) Debit(amount decimal.Decimal) error {
	if err := ValidateAmount(amount); err != nil {
		return err
	}
	if !a.CanDebit(amount) {
		return ErrInsufficientFunds
	}

	a.Balance = a.Balance.Sub(amount)
	a.touch()
	return nil
}

// CanDebit checks if the account holds at least amount
func (a *Account) CanDebit(amount decimal.Decimal) bool {
	return a.Balance.GreaterThanOrEqual(amount)
}

func (a *Account) touch() {
	a.UpdatedAt = time.Now().UTC()
	a.Version++
}
