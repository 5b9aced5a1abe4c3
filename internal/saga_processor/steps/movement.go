package steps

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sarabank-saga/internal/domain/account"
	"github.com/sarabank-saga/internal/domain/events"
	"github.com/sarabank-saga/internal/domain/ledger"
	"github.com/sarabank-saga/internal/platform/metrics"
	"github.com/sarabank-saga/internal/saga_processor/service"
)

// MovementStep applies a single-account deposit or withdrawal
type MovementStep struct {
	base
}

func NewMovementStep(deps Dependencies) *MovementStep {
	return &MovementStep{base{name: "movement", deps: deps}}
}

// Handle acknowledges business rejections (missing account, insufficient funds,
// invalid amount) after logging them; only infrastructure errors are returned.
func (s *MovementStep) Handle(ctx context.Context, evt events.Event) error {
	e, ok := evt.(*events.MovementRequested)
	if !ok {
		return ErrUnexpectedEvent{Step: s.name, Type: evt.EventType()}
	}
	logger := s.deps.Logger.With("step", s.name, "movement_id", e.MovementID.String(), "account_id", e.AccountID.String())

	kind, err := movementKind(e.Type)
	if err != nil {
		metrics.SagaSteps.WithLabelValues(s.name, outcomeRejected).Inc()
		logger.Warn("Movement rejected", "type", string(e.Type), "error", err)
		return nil
	}

	outcome := outcomeApplied
	var rejection error
	err = s.deps.DB.ExecuteTx(ctx, func(tx pgx.Tx) error {
		done, err := s.deps.Guard.AlreadyApplied(ctx, tx, e.MovementID, kind)
		if err != nil {
			return err
		}
		if done {
			outcome = outcomeSkipped
			return nil
		}

		_, err = s.deps.Accounts.ApplyEntry(ctx, tx, service.Movement{
			AccountID:     e.AccountID,
			Kind:          kind,
			Amount:        e.Amount,
			Reason:        e.Description,
			CorrelationID: e.MovementID,
		})
		if isBusinessRejection(err) {
			outcome = outcomeRejected
			rejection = err
			return nil
		}
		return err
	})
	if err != nil {
		return err
	}

	metrics.SagaSteps.WithLabelValues(s.name, outcome).Inc()
	switch outcome {
	case outcomeSkipped:
		logger.Info("Movement already applied, skipping")
	case outcomeRejected:
		logger.Warn("Movement rejected", "type", string(e.Type), "amount", e.Amount.String(), "error", rejection)
	default:
		logger.Info("Movement applied", "type", string(e.Type), "amount", e.Amount.String())
	}
	return nil
}

// ErrUnknownMovementType is returned for a movement that is neither deposit nor withdrawal
type ErrUnknownMovementType struct {
	Type events.MovementType
}

func (e ErrUnknownMovementType) Error() string {
	return "unknown movement type: " + string(e.Type)
}

func movementKind(t events.MovementType) (ledger.Kind, error) {
	switch t {
	case events.MovementDeposit:
		return ledger.KindCredit, nil
	case events.MovementWithdrawal:
		return ledger.KindDebit, nil
	}
	return "", ErrUnknownMovementType{Type: t}
}

func isBusinessRejection(err error) bool {
	return errors.Is(err, account.ErrAccountNotFound{AccountID: uuid.Nil}) ||
		errors.Is(err, account.ErrInsufficientFunds) ||
		errors.Is(err, account.ErrInvalidAmount)
}
