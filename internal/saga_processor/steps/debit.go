package steps

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/sarabank-saga/internal/domain/account"
	"github.com/sarabank-saga/internal/domain/events"
	"github.com/sarabank-saga/internal/domain/ledger"
	"github.com/sarabank-saga/internal/domain/saga"
	"github.com/sarabank-saga/internal/saga_processor/service"
)

// DebitStep consumes TransferInitiated and debits the source account
type DebitStep struct {
	base
}

func NewDebitStep(deps Dependencies) *DebitStep {
	return &DebitStep{base{name: "debit", deps: deps}}
}

func (s *DebitStep) Handle(ctx context.Context, evt events.Event) error {
	e, ok := evt.(*events.TransferInitiated)
	if !ok {
		return ErrUnexpectedEvent{Step: s.name, Type: evt.EventType()}
	}
	logger := s.logger(e.SagaID)
	logger.Info("Processing debit", "from_account", e.FromAccount.String(), "amount", e.Amount.String())

	var res result
	err := s.deps.DB.ExecuteTx(ctx, func(tx pgx.Tx) error {
		current, err := s.lockOrCreate(ctx, tx, e)
		if err != nil {
			return err
		}
		if current.State != saga.StateInitiated {
			res = skipped(current.State, "Saga already past debit, skipping")
			return nil
		}

		done, err := s.deps.Guard.AlreadyApplied(ctx, tx, e.SagaID, ledger.KindDebit)
		if err != nil {
			return err
		}
		if done {
			res = skipped(current.State, "Debit already applied, skipping")
			return nil
		}

		_, err = s.deps.Accounts.ApplyEntry(ctx, tx, service.Movement{
			AccountID:     e.FromAccount,
			Kind:          ledger.KindDebit,
			Amount:        e.Amount,
			Reason:        "Transferência " + e.SagaID.String(),
			CorrelationID: e.SagaID,
		})
		switch {
		case errors.Is(err, account.ErrAccountNotFound{}):
			return s.cancel(ctx, tx, current, e, ReasonSourceMissing, &res)
		case errors.Is(err, account.ErrInsufficientFunds):
			return s.cancel(ctx, tx, current, e, ReasonInsufficientFunds, &res)
		case errors.Is(err, account.ErrInvalidAmount):
			return s.cancel(ctx, tx, current, e, ReasonInvalidAmount, &res)
		case err != nil:
			return err
		}

		if _, err := s.deps.Outbox.Enqueue(ctx, tx, &events.BalanceDebited{
			SagaID:      e.SagaID,
			FromAccount: e.FromAccount,
			ToAccount:   e.ToAccount,
			Amount:      e.Amount,
		}); err != nil {
			return err
		}
		if err := s.advance(ctx, tx, current, saga.StateDebited, ""); err != nil {
			return err
		}
		res = applied(saga.StateDebited, "Source account debited")
		return nil
	})
	if err != nil {
		return err
	}

	s.finish(ctx, logger, e.SagaID, evt, res)
	return nil
}

// cancel ends the saga without touching any balance
func (s *DebitStep) cancel(ctx context.Context, tx pgx.Tx, current *saga.Saga, e *events.TransferInitiated, reason string, res *result) error {
	if _, err := s.deps.Outbox.Enqueue(ctx, tx, &events.TransferCancelled{
		SagaID:      e.SagaID,
		FromAccount: e.FromAccount,
		Reason:      reason,
	}); err != nil {
		return err
	}
	if err := s.advance(ctx, tx, current, saga.StateCancelled, reason); err != nil {
		return err
	}
	*res = rejected(saga.StateCancelled, reason)
	return nil
}

// lockOrCreate tolerates a TransferInitiated whose saga row was not written by this service
func (s *DebitStep) lockOrCreate(ctx context.Context, tx pgx.Tx, e *events.TransferInitiated) (*saga.Saga, error) {
	current, err := s.lockSaga(ctx, tx, e.SagaID)
	if err == nil {
		return current, nil
	}
	if !errors.Is(err, saga.ErrSagaNotFound{}) {
		return nil, err
	}

	current = saga.New(e.FromAccount, e.ToAccount, e.Amount)
	current.ID = e.SagaID
	if err := s.deps.Sagas.WithTx(tx).Create(ctx, current); err != nil {
		return nil, err
	}
	return current, nil
}
