package outbox

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sarabank-saga/internal/domain/events"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMessage(t *testing.T) {
	t.Run("SagaEventCarriesSagaID", func(t *testing.T) {
		evt := &events.BalanceDebited{
			SagaID:      uuid.New(),
			FromAccount: uuid.New(),
			ToAccount:   uuid.New(),
			Amount:      decimal.NewFromInt(150),
		}

		before := time.Now().UTC()
		msg, err := NewMessage(evt, "sara-bank-transferencias-debitadas")
		require.NoError(t, err)

		assert.Equal(t, events.TypeBalanceDebited, msg.EventType)
		assert.Equal(t, "sara-bank-transferencias-debitadas", msg.Topic)
		require.NotNil(t, msg.SagaID)
		assert.Equal(t, evt.SagaID, *msg.SagaID)
		assert.Equal(t, 0, msg.Attempts)
		assert.False(t, msg.Processed)
		assert.Nil(t, msg.DeadLetteredAt)
		assert.False(t, msg.CreatedAt.Before(before))

		var decoded events.BalanceDebited
		require.NoError(t, json.Unmarshal(msg.Payload, &decoded))
		assert.True(t, evt.Amount.Equal(decoded.Amount))
	})

	t.Run("NonSagaEventHasNoSagaID", func(t *testing.T) {
		evt := &events.MovementRequested{MovementID: uuid.New(), AccountID: uuid.New(), Amount: decimal.NewFromInt(10), Type: events.MovementDeposit}

		msg, err := NewMessage(evt, "sara-bank-movimentacoes")
		require.NoError(t, err)

		assert.Nil(t, msg.SagaID)
		assert.Nil(t, msg.Key())
	})
}

func TestMessage_Envelope(t *testing.T) {
	sagaID := uuid.New()
	msg := &Message{
		EventType: events.TypeTransferCompleted,
		SagaID:    &sagaID,
		Payload:   json.RawMessage(`{"SagaId":"` + sagaID.String() + `"}`),
	}

	wire, err := json.Marshal(msg.Envelope())
	require.NoError(t, err)

	env, evt, err := events.ParseEnvelope(wire)
	require.NoError(t, err)
	assert.Equal(t, events.TypeTransferCompleted, env.EventType)
	assert.Equal(t, sagaID, evt.CorrelationID())
	assert.Equal(t, []byte(sagaID.String()), msg.Key())
}

func TestMessage_Exhausted(t *testing.T) {
	tests := []struct {
		name     string
		attempts int
		want     bool
	}{
		{"fresh", 0, false},
		{"one left", 4, false},
		{"at limit", 5, true},
		{"past limit", 6, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := &Message{Attempts: tt.attempts}
			assert.Equal(t, tt.want, msg.Exhausted(5))
		})
	}
}

func TestMessage_DeadLettered(t *testing.T) {
	msg := &Message{}
	assert.False(t, msg.DeadLettered())

	now := time.Now()
	msg.DeadLetteredAt = &now
	assert.True(t, msg.DeadLettered())
}
