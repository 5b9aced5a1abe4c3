package steps

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sarabank-saga/internal/domain/events"
	"github.com/sarabank-saga/internal/platform/metrics"
)

// InitialDepositDescription is the ledger reason of the opening deposit
const InitialDepositDescription = "Depósito inicial"

// UserRegisteredStep turns a positive initial balance into a deposit movement
type UserRegisteredStep struct {
	base
}

func NewUserRegisteredStep(deps Dependencies) *UserRegisteredStep {
	return &UserRegisteredStep{base{name: "user_registered", deps: deps}}
}

func (s *UserRegisteredStep) Handle(ctx context.Context, evt events.Event) error {
	e, ok := evt.(*events.UserRegistered)
	if !ok {
		return ErrUnexpectedEvent{Step: s.name, Type: evt.EventType()}
	}
	logger := s.deps.Logger.With("step", s.name, "user_id", e.UserID.String(), "account_id", e.AccountID.String())

	if !e.InitialBalance.IsPositive() {
		metrics.SagaSteps.WithLabelValues(s.name, outcomeSkipped).Inc()
		logger.Info("User registered without initial balance")
		return nil
	}

	deposit := &events.MovementRequested{
		MovementID:  InitialDepositID(e.UserID),
		AccountID:   e.AccountID,
		Amount:      e.InitialBalance,
		Type:        events.MovementDeposit,
		Description: InitialDepositDescription,
	}
	err := s.deps.DB.ExecuteTx(ctx, func(tx pgx.Tx) error {
		_, err := s.deps.Outbox.Enqueue(ctx, tx, deposit)
		return err
	})
	if err != nil {
		return err
	}

	metrics.SagaSteps.WithLabelValues(s.name, outcomeApplied).Inc()
	logger.Info("Initial deposit requested", "movement_id", deposit.MovementID.String(), "amount", e.InitialBalance.String())
	return nil
}

// InitialDepositID derives the opening deposit id from the user id, so a redelivered
// registration produces the same movement and the ledger guard drops the duplicate.
func InitialDepositID(userID uuid.UUID) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("initial-deposit:"+userID.String()))
}
