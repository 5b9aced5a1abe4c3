package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/sarabank-saga/internal/domain/events"
)

// Message is a pending domain event persisted in the same transaction as the
// state change that produced it.
type Message struct {
	ID             int64           `json:"id"`
	EventType      events.Type     `json:"event_type"`
	Topic          string          `json:"topic"`
	SagaID         *uuid.UUID      `json:"saga_id,omitempty"`
	Payload        json.RawMessage `json:"payload"`
	Attempts       int             `json:"attempts"`
	Processed      bool            `json:"processed"`
	CreatedAt      time.Time       `json:"created_at"`
	ProcessedAt    *time.Time      `json:"processed_at,omitempty"`
	LastFailureAt  *time.Time      `json:"last_failure_at,omitempty"`
	LastError      string          `json:"last_error,omitempty"`
	DeadLetteredAt *time.Time      `json:"dead_lettered_at,omitempty"`
}

// NewMessage serializes evt and stamps it with its destination topic.
// Saga events carry their saga id; other events leave it empty.
func NewMessage(evt events.Event, topic string) (*Message, error) {
	payload, err := events.Marshal(evt)
	if err != nil {
		return nil, err
	}

	msg := &Message{
		EventType: evt.EventType(),
		Topic:     topic,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}
	if events.IsSagaEvent(evt.EventType()) {
		id := evt.CorrelationID()
		msg.SagaID = &id
	}
	return msg, nil
}

// Envelope wraps the stored payload into the wire format
func (m *Message) Envelope() events.Envelope {
	return events.NewEnvelope(m.EventType, m.SagaID, m.Payload)
}

// Key is the partition key: the saga id when present, so a saga's events stay ordered
func (m *Message) Key() []byte {
	if m.SagaID != nil {
		return []byte(m.SagaID.String())
	}
	return nil
}

// Exhausted reports whether the message has used up its dispatch cycles
func (m *Message) Exhausted(maxAttempts int) bool {
	return m.Attempts >= maxAttempts
}

// DeadLettered reports whether the message was parked for operator action
func (m *Message) DeadLettered() bool {
	return m.DeadLetteredAt != nil
}
