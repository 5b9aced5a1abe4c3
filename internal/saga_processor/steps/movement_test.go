package steps

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/sarabank-saga/internal/domain/account"
	"github.com/sarabank-saga/internal/domain/events"
	"github.com/sarabank-saga/internal/domain/ledger"
	"github.com/sarabank-saga/internal/saga_processor/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestMovementStep_Handle(t *testing.T) {
	movementID := uuid.New()
	accountID := uuid.New()
	amount := decimal.RequireFromString("75.50")

	movement := func(t events.MovementType) *events.MovementRequested {
		return &events.MovementRequested{MovementID: movementID, AccountID: accountID, Amount: amount, Type: t, Description: "caixa"}
	}
	ofKind := func(kind ledger.Kind) interface{} {
		return mock.MatchedBy(func(mv service.Movement) bool {
			return mv.Kind == kind && mv.AccountID == accountID && mv.CorrelationID == movementID && mv.Reason == "caixa"
		})
	}

	tests := []struct {
		name            string
		event           *events.MovementRequested
		setupMocks      func(d *testDeps)
		expectedError   error
		expectedCommits int
	}{
		{
			name:  "deposit credits account",
			event: movement(events.MovementDeposit),
			setupMocks: func(d *testDeps) {
				d.guard.On("AlreadyApplied", mock.Anything, mock.Anything, movementID, ledger.KindCredit).Return(false, nil)
				d.accounts.On("ApplyEntry", mock.Anything, mock.Anything, ofKind(ledger.KindCredit)).Return(&account.Account{}, nil)
			},
			expectedCommits: 1,
		},
		{
			name:  "withdrawal debits account",
			event: movement(events.MovementWithdrawal),
			setupMocks: func(d *testDeps) {
				d.guard.On("AlreadyApplied", mock.Anything, mock.Anything, movementID, ledger.KindDebit).Return(false, nil)
				d.accounts.On("ApplyEntry", mock.Anything, mock.Anything, ofKind(ledger.KindDebit)).Return(&account.Account{}, nil)
			},
			expectedCommits: 1,
		},
		{
			name:  "insufficient funds is acknowledged",
			event: movement(events.MovementWithdrawal),
			setupMocks: func(d *testDeps) {
				d.guard.On("AlreadyApplied", mock.Anything, mock.Anything, movementID, ledger.KindDebit).Return(false, nil)
				d.accounts.On("ApplyEntry", mock.Anything, mock.Anything, ofKind(ledger.KindDebit)).Return(nil, account.ErrInsufficientFunds)
			},
			expectedCommits: 1,
		},
		{
			name:  "missing account is acknowledged",
			event: movement(events.MovementDeposit),
			setupMocks: func(d *testDeps) {
				d.guard.On("AlreadyApplied", mock.Anything, mock.Anything, movementID, ledger.KindCredit).Return(false, nil)
				d.accounts.On("ApplyEntry", mock.Anything, mock.Anything, ofKind(ledger.KindCredit)).Return(nil, account.ErrAccountNotFound{AccountID: accountID})
			},
			expectedCommits: 1,
		},
		{
			name:  "redelivered movement is skipped",
			event: movement(events.MovementDeposit),
			setupMocks: func(d *testDeps) {
				d.guard.On("AlreadyApplied", mock.Anything, mock.Anything, movementID, ledger.KindCredit).Return(true, nil)
			},
			expectedCommits: 1,
		},
		{
			name:            "unknown movement type is acknowledged",
			event:           movement(events.MovementType("PIX")),
			setupMocks:      func(d *testDeps) {},
			expectedCommits: 0,
		},
		{
			name:  "store failure propagates",
			event: movement(events.MovementDeposit),
			setupMocks: func(d *testDeps) {
				d.guard.On("AlreadyApplied", mock.Anything, mock.Anything, movementID, ledger.KindCredit).Return(false, errors.New("too many connections"))
			},
			expectedError: errors.New("too many connections"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDeps()
			tt.setupMocks(d)

			err := NewMovementStep(d.build()).Handle(context.Background(), tt.event)

			if tt.expectedError != nil {
				assert.EqualError(t, err, tt.expectedError.Error())
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.expectedCommits, d.db.commits)
			d.assertExpectations(t)
		})
	}
}
