// Package events defines the closed set of domain events exchanged between the saga
// steps, the wire envelope they travel in, and the routing of event types to topics.
package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Type is the wire tag of an event. The set is closed; see decoders.
type Type string

const (
	TypeUserRegistered    Type = "UsuarioCadastrado"
	TypeMovementRequested Type = "NovaMovimentacao"
	TypeTransferInitiated Type = "TransferenciaIniciada"
	TypeBalanceDebited    Type = "SaldoDebitado"
	TypeTransferCancelled Type = "TransferenciaCancelada"
	TypeCreditFailed      Type = "FalhaNoCredito"
	TypeTransferCompleted Type = "TransferenciaConcluida"
)

// Event is implemented by every payload that can be enqueued in the outbox.
type Event interface {
	EventType() Type
	// CorrelationID is the saga id for transfer events, the movement or user id otherwise
	CorrelationID() uuid.UUID
}

// MovementType distinguishes deposits from withdrawals
type MovementType string

const (
	MovementDeposit    MovementType = "DEPOSITO"
	MovementWithdrawal MovementType = "SAQUE"
)

// UserRegistered announces a new user and their empty account
type UserRegistered struct {
	UserID         uuid.UUID       `json:"UsuarioId"`
	Name           string          `json:"Nome"`
	Email          string          `json:"Email"`
	AccountID      uuid.UUID       `json:"ContaId"`
	InitialBalance decimal.Decimal `json:"SaldoInicial"`
	CreatedAt      time.Time       `json:"DataCriacao"`
}

func (e *UserRegistered) EventType() Type          { return TypeUserRegistered }
func (e *UserRegistered) CorrelationID() uuid.UUID { return e.UserID }

// MovementRequested asks for a single-account deposit or withdrawal
type MovementRequested struct {
	MovementID  uuid.UUID       `json:"MovimentacaoId"`
	AccountID   uuid.UUID       `json:"ContaId"`
	Amount      decimal.Decimal `json:"Valor"`
	Type        MovementType    `json:"Tipo"`
	Description string          `json:"Descricao"`
}

func (e *MovementRequested) EventType() Type          { return TypeMovementRequested }
func (e *MovementRequested) CorrelationID() uuid.UUID { return e.MovementID }

// TransferInitiated starts a transfer saga
type TransferInitiated struct {
	SagaID      uuid.UUID       `json:"SagaId"`
	FromAccount uuid.UUID       `json:"ContaOrigemId"`
	ToAccount   uuid.UUID       `json:"ContaDestinoId"`
	Amount      decimal.Decimal `json:"Valor"`
}

func (e *TransferInitiated) EventType() Type          { return TypeTransferInitiated }
func (e *TransferInitiated) CorrelationID() uuid.UUID { return e.SagaID }

// BalanceDebited reports that the source account was debited
type BalanceDebited struct {
	SagaID      uuid.UUID       `json:"SagaId"`
	FromAccount uuid.UUID       `json:"ContaOrigemId"`
	ToAccount   uuid.UUID       `json:"ContaDestinoId"`
	Amount      decimal.Decimal `json:"Valor"`
}

func (e *BalanceDebited) EventType() Type          { return TypeBalanceDebited }
func (e *BalanceDebited) CorrelationID() uuid.UUID { return e.SagaID }

// TransferCancelled ends a saga before any money moved
type TransferCancelled struct {
	SagaID      uuid.UUID `json:"SagaId"`
	FromAccount uuid.UUID `json:"ContaOrigemId"`
	Reason      string    `json:"Motivo"`
}

func (e *TransferCancelled) EventType() Type          { return TypeTransferCancelled }
func (e *TransferCancelled) CorrelationID() uuid.UUID { return e.SagaID }

// CreditFailed requests compensation of an applied debit
type CreditFailed struct {
	SagaID      uuid.UUID       `json:"SagaId"`
	FromAccount uuid.UUID       `json:"ContaOrigemId"`
	Amount      decimal.Decimal `json:"Valor"`
	Reason      string          `json:"Motivo"`
}

func (e *CreditFailed) EventType() Type          { return TypeCreditFailed }
func (e *CreditFailed) CorrelationID() uuid.UUID { return e.SagaID }

// TransferCompleted is the terminal event of a successful saga
type TransferCompleted struct {
	SagaID      uuid.UUID `json:"SagaId"`
	CompletedAt time.Time `json:"ConcluidoEm"`
}

func (e *TransferCompleted) EventType() Type          { return TypeTransferCompleted }
func (e *TransferCompleted) CorrelationID() uuid.UUID { return e.SagaID }

// IsSagaEvent reports whether t belongs to the transfer saga
func IsSagaEvent(t Type) bool {
	switch t {
	case TypeTransferInitiated, TypeBalanceDebited, TypeTransferCancelled, TypeCreditFailed, TypeTransferCompleted:
		return true
	}
	return false
}
