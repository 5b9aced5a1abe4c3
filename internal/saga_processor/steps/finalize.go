package steps

import (
	"context"

	"github.com/sarabank-saga/internal/domain/events"
	"github.com/sarabank-saga/internal/domain/saga"
)

// FinalizeStep consumes the terminal events. It only logs and audits; the saga
// state was already moved by the step that emitted the event.
type FinalizeStep struct {
	base
}

func NewFinalizeStep(deps Dependencies) *FinalizeStep {
	return &FinalizeStep{base{name: "finalize", deps: deps}}
}

func (s *FinalizeStep) Handle(ctx context.Context, evt events.Event) error {
	switch e := evt.(type) {
	case *events.TransferCompleted:
		s.finish(ctx, s.logger(e.SagaID), e.SagaID, evt, applied(saga.StateCompleted, "Transfer completed"))
	case *events.TransferCancelled:
		res := applied(saga.StateCancelled, "Transfer cancelled")
		res.reason = e.Reason
		s.finish(ctx, s.logger(e.SagaID).With("from_account", e.FromAccount.String(), "reason", e.Reason), e.SagaID, evt, res)
	default:
		return ErrUnexpectedEvent{Step: s.name, Type: evt.EventType()}
	}
	return nil
}
