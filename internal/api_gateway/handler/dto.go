package handler

import "github.com/shopspring/decimal"

// RegisterUserRequest represents a request to register a new user.
// Amounts travel as decimal strings.
type RegisterUserRequest struct {
	Name           string          `json:"name" binding:"required"`
	CPF            string          `json:"cpf" binding:"required"`
	Email          string          `json:"email" binding:"required,email"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
}

// UserResponse represents a registered user and the account opened for them
type UserResponse struct {
	UserID    string `json:"user_id"`
	AccountID string `json:"account_id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at"`
}

// AccountResponse represents an account in API responses
type AccountResponse struct {
	ID        string `json:"id"`
	OwnerID   string `json:"owner_id"`
	Balance   string `json:"balance"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// MovementRequest represents a deposit or withdrawal request
type MovementRequest struct {
	Type        string          `json:"type" binding:"required,oneof=DEPOSITO SAQUE"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description" binding:"max=255"`
}

// MovementAcceptedResponse acknowledges an enqueued movement
type MovementAcceptedResponse struct {
	MovementID string `json:"movement_id"`
	AccountID  string `json:"account_id"`
	Status     string `json:"status"`
}

// StatementEntryResponse represents a ledger entry in a statement
type StatementEntryResponse struct {
	ID            string `json:"id"`
	Kind          string `json:"kind"`
	Amount        string `json:"amount"`
	Reason        string `json:"reason"`
	CorrelationID string `json:"correlation_id,omitempty"`
	CreatedAt     string `json:"created_at"`
}

// CreateTransferRequest represents a request to move funds between accounts
type CreateTransferRequest struct {
	FromAccountID string          `json:"from_account_id" binding:"required,uuid"`
	ToAccountID   string          `json:"to_account_id" binding:"required,uuid"`
	Amount        decimal.Decimal `json:"amount"`
}

// TransferResponse represents a transfer saga in API responses
type TransferResponse struct {
	SagaID        string                  `json:"saga_id"`
	FromAccountID string                  `json:"from_account_id"`
	ToAccountID   string                  `json:"to_account_id"`
	Amount        string                  `json:"amount"`
	State         string                  `json:"state"`
	Reason        string                  `json:"reason,omitempty"`
	CreatedAt     string                  `json:"created_at"`
	UpdatedAt     string                  `json:"updated_at"`
	StalledAt     string                  `json:"stalled_at,omitempty"`
	Timeline      []TimelineEntryResponse `json:"timeline,omitempty"`
}

// TimelineEntryResponse is one audit record of a saga
type TimelineEntryResponse struct {
	Step       string         `json:"step"`
	State      string         `json:"state"`
	EventType  string         `json:"event_type,omitempty"`
	Message    string         `json:"message"`
	Details    map[string]any `json:"details,omitempty"`
	RecordedAt string         `json:"recorded_at"`
}

// DeadLetterResponse represents a parked outbox message
type DeadLetterResponse struct {
	ID             int64  `json:"id"`
	EventType      string `json:"event_type"`
	Topic          string `json:"topic"`
	SagaID         string `json:"saga_id,omitempty"`
	Attempts       int    `json:"attempts"`
	LastError      string `json:"last_error,omitempty"`
	CreatedAt      string `json:"created_at"`
	LastFailureAt  string `json:"last_failure_at,omitempty"`
	DeadLetteredAt string `json:"dead_lettered_at,omitempty"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=10" binding:"min=1,max=100"`
}
