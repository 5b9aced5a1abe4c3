package steps

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/sarabank-saga/internal/domain/account"
	"github.com/sarabank-saga/internal/domain/events"
	"github.com/sarabank-saga/internal/domain/ledger"
	"github.com/sarabank-saga/internal/domain/saga"
	"github.com/sarabank-saga/internal/logger"
	"github.com/sarabank-saga/internal/saga_processor/service"
)

// CompensationStep consumes CreditFailed and re-credits the source account
type CompensationStep struct {
	base
}

func NewCompensationStep(deps Dependencies) *CompensationStep {
	return &CompensationStep{base{name: "compensate", deps: deps}}
}

// Handle reverses the debit. A missing source account cannot be reconciled
// automatically: it is logged as critical and returned so the message is redelivered
// and eventually parked in the DLQ.
func (s *CompensationStep) Handle(ctx context.Context, evt events.Event) error {
	e, ok := evt.(*events.CreditFailed)
	if !ok {
		return ErrUnexpectedEvent{Step: s.name, Type: evt.EventType()}
	}
	log := s.logger(e.SagaID)
	log.Warn("Starting compensation", "from_account", e.FromAccount.String(), "reason", e.Reason)

	var res result
	err := s.deps.DB.ExecuteTx(ctx, func(tx pgx.Tx) error {
		current, err := s.lockSaga(ctx, tx, e.SagaID)
		if err != nil {
			return err
		}
		if current.State != saga.StateCompensationRequested {
			res = skipped(current.State, "Saga not awaiting compensation, skipping")
			return nil
		}

		done, err := s.deps.Guard.AlreadyApplied(ctx, tx, e.SagaID, ledger.KindReversal)
		if err != nil {
			return err
		}
		if done {
			res = skipped(current.State, "Reversal already applied, skipping")
			return nil
		}

		_, err = s.deps.Accounts.ApplyEntry(ctx, tx, service.Movement{
			AccountID:     e.FromAccount,
			Kind:          ledger.KindReversal,
			Amount:        e.Amount,
			Reason:        "Estorno de transferência " + e.SagaID.String() + ". Motivo: " + e.Reason,
			CorrelationID: e.SagaID,
		})
		if errors.Is(err, account.ErrAccountNotFound{}) {
			logger.Critical(ctx, log, "Source account not found for reversal, saga needs manual reconciliation",
				"from_account", e.FromAccount.String(),
				"amount", e.Amount.String(),
			)
			return saga.ErrUnrecoverableState{SagaID: e.SagaID, AccountID: e.FromAccount, Reason: "source account not found for reversal"}
		}
		if err != nil {
			return err
		}

		if err := s.advance(ctx, tx, current, saga.StateCompensated, e.Reason); err != nil {
			return err
		}
		res = applied(saga.StateCompensated, "Debit reversed on source account")
		return nil
	})
	if err != nil {
		return err
	}

	s.finish(ctx, log, e.SagaID, evt, res)
	return nil
}
