package saga

import (
	"fmt"

	"github.com/google/uuid"
)

// ErrSagaNotFound indicates missing saga
type ErrSagaNotFound struct {
	SagaID uuid.UUID
}

func (e ErrSagaNotFound) Error() string {
	return "saga not found: " + e.SagaID.String()
}

// Is matches any ErrSagaNotFound when the target SagaID is uuid.Nil
func (e ErrSagaNotFound) Is(target error) bool {
	t, ok := target.(ErrSagaNotFound)
	if !ok {
		return false
	}
	return t.SagaID == uuid.Nil || t.SagaID == e.SagaID
}

// ErrInvalidTransition is returned when a step would break the state machine
type ErrInvalidTransition struct {
	SagaID uuid.UUID
	From   State
	To     State
}

func (e ErrInvalidTransition) Error() string {
	return fmt.Sprintf("saga %s cannot move from %s to %s", e.SagaID, e.From, e.To)
}

// ErrUnrecoverableState marks a saga that no automated step can reconcile
type ErrUnrecoverableState struct {
	SagaID    uuid.UUID
	AccountID uuid.UUID
	Reason    string
}

func (e ErrUnrecoverableState) Error() string {
	return fmt.Sprintf("unrecoverable saga state for %s (account %s): %s", e.SagaID, e.AccountID, e.Reason)
}

// Is matches any ErrUnrecoverableState when the target SagaID is uuid.Nil
func (e ErrUnrecoverableState) Is(target error) bool {
	t, ok := target.(ErrUnrecoverableState)
	if !ok {
		return false
	}
	return t.SagaID == uuid.Nil || t.SagaID == e.SagaID
}
