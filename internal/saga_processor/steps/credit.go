package steps

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/sarabank-saga/internal/domain/account"
	"github.com/sarabank-saga/internal/domain/events"
	"github.com/sarabank-saga/internal/domain/ledger"
	"github.com/sarabank-saga/internal/domain/saga"
	"github.com/sarabank-saga/internal/saga_processor/service"
)

// CreditStep consumes BalanceDebited and credits the destination account
type CreditStep struct {
	base
}

func NewCreditStep(deps Dependencies) *CreditStep {
	return &CreditStep{base{name: "credit", deps: deps}}
}

func (s *CreditStep) Handle(ctx context.Context, evt events.Event) error {
	e, ok := evt.(*events.BalanceDebited)
	if !ok {
		return ErrUnexpectedEvent{Step: s.name, Type: evt.EventType()}
	}
	logger := s.logger(e.SagaID)
	logger.Info("Processing credit", "to_account", e.ToAccount.String(), "amount", e.Amount.String())

	var res result
	err := s.deps.DB.ExecuteTx(ctx, func(tx pgx.Tx) error {
		current, err := s.lockSaga(ctx, tx, e.SagaID)
		if err != nil {
			return err
		}
		if current.State != saga.StateDebited {
			res = skipped(current.State, "Saga not awaiting credit, skipping")
			return nil
		}

		done, err := s.deps.Guard.AlreadyApplied(ctx, tx, e.SagaID, ledger.KindCredit)
		if err != nil {
			return err
		}
		if done {
			res = skipped(current.State, "Credit already applied, skipping")
			return nil
		}

		_, err = s.deps.Accounts.ApplyEntry(ctx, tx, service.Movement{
			AccountID:     e.ToAccount,
			Kind:          ledger.KindCredit,
			Amount:        e.Amount,
			Reason:        "Transferência " + e.SagaID.String(),
			CorrelationID: e.SagaID,
		})
		switch {
		case errors.Is(err, account.ErrAccountNotFound{}):
			return s.requestCompensation(ctx, tx, current, e, ReasonDestinationMissing, &res)
		case errors.Is(err, account.ErrInvalidAmount):
			return s.requestCompensation(ctx, tx, current, e, ReasonInvalidAmount, &res)
		case err != nil:
			return err
		}

		if _, err := s.deps.Outbox.Enqueue(ctx, tx, &events.TransferCompleted{
			SagaID:      e.SagaID,
			CompletedAt: time.Now().UTC(),
		}); err != nil {
			return err
		}
		if err := s.advance(ctx, tx, current, saga.StateCompleted, ""); err != nil {
			return err
		}
		res = applied(saga.StateCompleted, "Destination account credited")
		return nil
	})
	if err != nil {
		return err
	}

	s.finish(ctx, logger, e.SagaID, evt, res)
	return nil
}

// requestCompensation leaves the destination untouched and asks for the debit to be reversed
func (s *CreditStep) requestCompensation(ctx context.Context, tx pgx.Tx, current *saga.Saga, e *events.BalanceDebited, reason string, res *result) error {
	if _, err := s.deps.Outbox.Enqueue(ctx, tx, &events.CreditFailed{
		SagaID:      e.SagaID,
		FromAccount: e.FromAccount,
		Amount:      e.Amount,
		Reason:      reason,
	}); err != nil {
		return err
	}
	if err := s.advance(ctx, tx, current, saga.StateCompensationRequested, reason); err != nil {
		return err
	}
	*res = rejected(saga.StateCompensationRequested, reason)
	return nil
}
