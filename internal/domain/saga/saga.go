package saga

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// State is the lifecycle position of a transfer saga
type State string

const (
	StateInitiated             State = "INITIATED"
	StateDebited               State = "DEBITED"
	StateCompleted             State = "COMPLETED"
	StateCancelled             State = "CANCELLED"
	StateCompensationRequested State = "COMPENSATION_REQUESTED"
	StateCompensated           State = "COMPENSATED"
)

// Terminal reports whether no further step can run for s
func (s State) Terminal() bool {
	switch s {
	case StateCompleted, StateCancelled, StateCompensated:
		return true
	}
	return false
}

// NonTerminalStates are the states the watchdog scans
func NonTerminalStates() []State {
	return []State{StateInitiated, StateDebited, StateCompensationRequested}
}

var transitions = map[State][]State{
	StateInitiated:             {StateDebited, StateCancelled},
	StateDebited:               {StateCompleted, StateCompensationRequested},
	StateCompensationRequested: {StateCompensated},
}

// CanTransition reports whether the state machine allows from -> to
func CanTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Saga tracks one transfer across its steps
type Saga struct {
	ID          uuid.UUID       `json:"id"`
	FromAccount uuid.UUID       `json:"from_account_id"`
	ToAccount   uuid.UUID       `json:"to_account_id"`
	Amount      decimal.Decimal `json:"amount"`
	State       State           `json:"state"`
	Reason      string          `json:"reason,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	StalledAt   *time.Time      `json:"stalled_at,omitempty"`
}

// New starts a saga in the INITIATED state
func New(from, to uuid.UUID, amount decimal.Decimal) *Saga {
	now := time.Now().UTC()
	return &Saga{
		ID:          uuid.New(),
		FromAccount: from,
		ToAccount:   to,
		Amount:      amount,
		State:       StateInitiated,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Transition moves the saga to next, returning ErrInvalidTransition if the machine forbids it
func (s *Saga) Transition(next State, reason string) error {
	if !CanTransition(s.State, next) {
		return ErrInvalidTransition{SagaID: s.ID, From: s.State, To: next}
	}
	s.State = next
	if reason != "" {
		s.Reason = reason
	}
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// AuditRecord is one entry in a saga's timeline
type AuditRecord struct {
	SagaID     uuid.UUID      `json:"saga_id" bson:"saga_id"`
	Step       string         `json:"step" bson:"step"`
	State      State          `json:"state" bson:"state"`
	EventType  string         `json:"event_type,omitempty" bson:"event_type,omitempty"`
	Message    string         `json:"message" bson:"message"`
	Details    map[string]any `json:"details,omitempty" bson:"details,omitempty"`
	RecordedAt time.Time      `json:"recorded_at" bson:"recorded_at"`
}
