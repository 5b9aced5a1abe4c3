package events

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// ErrUnknownEventType is returned when a tag has no entry in the decode table
type ErrUnknownEventType struct {
	Type Type
}

func (e ErrUnknownEventType) Error() string {
	return "unknown event type: " + string(e.Type)
}

// Is matches any ErrUnknownEventType when the target type is empty
func (e ErrUnknownEventType) Is(target error) bool {
	t, ok := target.(ErrUnknownEventType)
	if !ok {
		return false
	}
	return t.Type == "" || t.Type == e.Type
}

// ErrMalformedEnvelope wraps JSON failures on the envelope or its inner payload
type ErrMalformedEnvelope struct {
	Err error
}

func (e ErrMalformedEnvelope) Error() string {
	return "malformed event envelope: " + e.Err.Error()
}

func (e ErrMalformedEnvelope) Unwrap() error {
	return e.Err
}

// Envelope is the wire format shared by the dispatcher and the consumers.
// Payload carries the inner event serialized as a JSON string.
type Envelope struct {
	EventType Type       `json:"TipoEvento"`
	SagaID    *uuid.UUID `json:"SagaId,omitempty"`
	Payload   string     `json:"Payload"`
}

type decodeFunc func(payload []byte) (Event, error)

func decodeInto[T any, P interface {
	*T
	Event
}]() decodeFunc {
	return func(payload []byte) (Event, error) {
		var evt T
		if err := json.Unmarshal(payload, &evt); err != nil {
			return nil, err
		}
		return P(&evt), nil
	}
}

// decoders is the closed decode table. Adding an event type means adding it here.
var decoders = map[Type]decodeFunc{
	TypeUserRegistered:    decodeInto[UserRegistered](),
	TypeMovementRequested: decodeInto[MovementRequested](),
	TypeTransferInitiated: decodeInto[TransferInitiated](),
	TypeBalanceDebited:    decodeInto[BalanceDebited](),
	TypeTransferCancelled: decodeInto[TransferCancelled](),
	TypeCreditFailed:      decodeInto[CreditFailed](),
	TypeTransferCompleted: decodeInto[TransferCompleted](),
}

// KnownTypes lists every decodable event type
func KnownTypes() []Type {
	return []Type{
		TypeUserRegistered,
		TypeMovementRequested,
		TypeTransferInitiated,
		TypeBalanceDebited,
		TypeTransferCancelled,
		TypeCreditFailed,
		TypeTransferCompleted,
	}
}

// Decode turns a tagged payload into its concrete event
func Decode(t Type, payload []byte) (Event, error) {
	decode, ok := decoders[t]
	if !ok {
		return nil, ErrUnknownEventType{Type: t}
	}
	evt, err := decode(payload)
	if err != nil {
		return nil, ErrMalformedEnvelope{Err: fmt.Errorf("decode %s payload: %w", t, err)}
	}
	return evt, nil
}

// Marshal serializes the inner event for storage in the outbox
func Marshal(evt Event) ([]byte, error) {
	if _, ok := decoders[evt.EventType()]; !ok {
		return nil, ErrUnknownEventType{Type: evt.EventType()}
	}
	return json.Marshal(evt)
}

// NewEnvelope wraps an already serialized inner payload
func NewEnvelope(t Type, sagaID *uuid.UUID, payload []byte) Envelope {
	return Envelope{
		EventType: t,
		SagaID:    sagaID,
		Payload:   string(payload),
	}
}

// ParseEnvelope decodes the wire envelope and its inner event
func ParseEnvelope(data []byte) (Envelope, Event, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, nil, ErrMalformedEnvelope{Err: err}
	}
	evt, err := Decode(env.EventType, []byte(env.Payload))
	if err != nil {
		return env, nil, err
	}
	return env, evt, nil
}
