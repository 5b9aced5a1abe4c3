package service

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/sarabank-saga/internal/domain/events"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockStepHandler struct {
	mock.Mock
}

func (m *MockStepHandler) Name() string {
	return m.Called().String(0)
}

func (m *MockStepHandler) Handle(ctx context.Context, evt events.Event) error {
	args := m.Called(ctx, evt)
	return args.Error(0)
}

func TestProcessingService_ProcessEvent(t *testing.T) {
	logger := slog.Default()
	initiated := &events.TransferInitiated{SagaID: uuid.New(), FromAccount: uuid.New(), ToAccount: uuid.New(), Amount: decimal.NewFromInt(200)}
	debited := &events.BalanceDebited{SagaID: initiated.SagaID}

	tests := []struct {
		name          string
		event         events.Event
		setupMocks    func(debit *MockStepHandler)
		expectedError error
	}{
		{
			name:  "routes to registered step",
			event: initiated,
			setupMocks: func(debit *MockStepHandler) {
				debit.On("Name").Return("debit")
				debit.On("Handle", mock.Anything, initiated).Return(nil).Once()
			},
		},
		{
			name:  "propagates infrastructure failure",
			event: initiated,
			setupMocks: func(debit *MockStepHandler) {
				debit.On("Name").Return("debit")
				debit.On("Handle", mock.Anything, initiated).Return(errors.New("connection reset")).Once()
			},
			expectedError: errors.New("connection reset"),
		},
		{
			name:          "no step for event type",
			event:         debited,
			setupMocks:    func(debit *MockStepHandler) {},
			expectedError: ErrNoStepHandler{Type: events.TypeBalanceDebited},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			debit := &MockStepHandler{}
			tt.setupMocks(debit)

			svc := NewProcessingService(map[events.Type]StepHandler{
				events.TypeTransferInitiated: debit,
			}, logger)

			err := svc.ProcessEvent(context.Background(), tt.event)

			if tt.expectedError != nil {
				assert.EqualError(t, err, tt.expectedError.Error())
			} else {
				assert.NoError(t, err)
			}
			debit.AssertExpectations(t)
		})
	}
}
