// Package steps holds the saga step handlers and the single-account movement handlers.
// Every mutating step runs in one ledger transaction that checks idempotency, applies
// the balance change, writes the ledger entry, moves the saga and stages the next event.
package steps

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sarabank-saga/internal/domain/events"
	"github.com/sarabank-saga/internal/domain/saga"
	"github.com/sarabank-saga/internal/platform/metrics"
	"github.com/sarabank-saga/internal/platform/persistence"
	"github.com/sarabank-saga/internal/saga_processor/service"
)

// Cancellation and compensation reasons carried in the outgoing events
const (
	ReasonSourceMissing      = "Conta de origem inexistente."
	ReasonInsufficientFunds  = "Saldo insuficiente."
	ReasonInvalidAmount      = "Valor inválido."
	ReasonDestinationMissing = "Conta destino inválida ou inexistente"
)

// step outcomes, used as metric labels
const (
	outcomeApplied  = "applied"
	outcomeSkipped  = "skipped"
	outcomeRejected = "rejected"
)

// ErrUnexpectedEvent is returned when a step receives an event it does not own
type ErrUnexpectedEvent struct {
	Step string
	Type events.Type
}

func (e ErrUnexpectedEvent) Error() string {
	return fmt.Sprintf("step %s cannot handle event type %s", e.Step, e.Type)
}

// Dependencies are shared by every step
type Dependencies struct {
	DB       persistence.TxRunner
	Sagas    saga.Repository
	Accounts service.AccountManager
	Guard    service.IdempotencyGuard
	Outbox   service.OutboxWriter
	Auditor  service.Auditor
	Logger   *slog.Logger
}

// result is what a step decided inside its transaction
type result struct {
	outcome string
	state   saga.State
	message string
	reason  string
}

func applied(state saga.State, message string) result {
	return result{outcome: outcomeApplied, state: state, message: message}
}

func skipped(state saga.State, message string) result {
	return result{outcome: outcomeSkipped, state: state, message: message}
}

func rejected(state saga.State, reason string) result {
	return result{outcome: outcomeRejected, state: state, message: "Step rejected", reason: reason}
}

type base struct {
	name string
	deps Dependencies
}

func (b *base) Name() string {
	return b.name
}

func (b *base) logger(correlationID uuid.UUID) *slog.Logger {
	return b.deps.Logger.With("step", b.name, "saga_id", correlationID.String())
}

// lockSaga reads the saga row under lock for the rest of tx
func (b *base) lockSaga(ctx context.Context, tx pgx.Tx, sagaID uuid.UUID) (*saga.Saga, error) {
	s, err := b.deps.Sagas.WithTx(tx).LockForUpdate(ctx, sagaID)
	if err != nil {
		if errors.Is(err, saga.ErrSagaNotFound{SagaID: sagaID}) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to lock saga %s: %w", sagaID, err)
	}
	return s, nil
}

// advance moves the saga to next and persists it in tx
func (b *base) advance(ctx context.Context, tx pgx.Tx, s *saga.Saga, next saga.State, reason string) error {
	if err := s.Transition(next, reason); err != nil {
		return err
	}
	return b.deps.Sagas.WithTx(tx).UpdateState(ctx, s)
}

// finish records the outcome after the transaction committed
func (b *base) finish(ctx context.Context, logger *slog.Logger, sagaID uuid.UUID, evt events.Event, res result) {
	metrics.SagaSteps.WithLabelValues(b.name, res.outcome).Inc()

	switch res.outcome {
	case outcomeSkipped:
		logger.Info(res.message, "state", string(res.state))
	case outcomeRejected:
		logger.Warn(res.message, "state", string(res.state), "reason", res.reason)
	default:
		logger.Info(res.message, "state", string(res.state))
	}

	if res.outcome == outcomeSkipped || b.deps.Auditor == nil {
		return
	}

	record := &saga.AuditRecord{
		SagaID:     sagaID,
		Step:       b.name,
		State:      res.state,
		EventType:  string(evt.EventType()),
		Message:    res.message,
		RecordedAt: time.Now().UTC(),
	}
	if res.reason != "" {
		record.Details = map[string]any{"reason": res.reason}
	}
	b.deps.Auditor.Record(ctx, record)
}
