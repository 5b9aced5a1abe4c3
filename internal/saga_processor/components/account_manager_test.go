package components

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sarabank-saga/internal/domain/account"
	"github.com/sarabank-saga/internal/domain/ledger"
	"github.com/sarabank-saga/internal/saga_processor/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockAccountRepo struct {
	mock.Mock
}

func (m *MockAccountRepo) Create(ctx context.Context, acc *account.Account) error {
	args := m.Called(ctx, acc)
	return args.Error(0)
}

func (m *MockAccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *MockAccountRepo) Update(ctx context.Context, acc *account.Account) error {
	args := m.Called(ctx, acc)
	return args.Error(0)
}

func (m *MockAccountRepo) LockForUpdate(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *MockAccountRepo) WithTx(tx pgx.Tx) account.Repository {
	args := m.Called(tx)
	return args.Get(0).(account.Repository)
}

type MockLedgerRepo struct {
	mock.Mock
}

func (m *MockLedgerRepo) Insert(ctx context.Context, entry *ledger.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockLedgerRepo) ExistsForSaga(ctx context.Context, sagaID uuid.UUID, kind ledger.Kind) (bool, error) {
	args := m.Called(ctx, sagaID, kind)
	return args.Bool(0), args.Error(1)
}

func (m *MockLedgerRepo) ListBySaga(ctx context.Context, sagaID uuid.UUID) ([]*ledger.Entry, error) {
	args := m.Called(ctx, sagaID)
	return args.Get(0).([]*ledger.Entry), args.Error(1)
}

func (m *MockLedgerRepo) ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*ledger.Entry, error) {
	args := m.Called(ctx, accountID, limit, offset)
	return args.Get(0).([]*ledger.Entry), args.Error(1)
}

func (m *MockLedgerRepo) CountByAccount(ctx context.Context, accountID uuid.UUID) (int64, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerRepo) WithTx(tx pgx.Tx) ledger.Repository {
	args := m.Called(tx)
	return args.Get(0).(ledger.Repository)
}

func TestAccountManager_ApplyEntry(t *testing.T) {
	logger := slog.Default()
	sagaID := uuid.New()
	accountID := uuid.New()

	tests := []struct {
		name            string
		movement        service.Movement
		setupMocks      func(accounts *MockAccountRepo, entries *MockLedgerRepo)
		expectedError   error
		expectedBalance string
	}{
		{
			name:     "debit writes negative entry",
			movement: service.Movement{AccountID: accountID, Kind: ledger.KindDebit, Amount: decimal.NewFromInt(200), Reason: "transfer", CorrelationID: sagaID},
			setupMocks: func(accounts *MockAccountRepo, entries *MockLedgerRepo) {
				accounts.On("LockForUpdate", mock.Anything, accountID).Return(&account.Account{ID: accountID, Balance: decimal.NewFromInt(1000), Version: 1}, nil)
				accounts.On("Update", mock.Anything, mock.MatchedBy(func(a *account.Account) bool {
					return a.Balance.Equal(decimal.NewFromInt(800)) && a.Version == 2
				})).Return(nil)
				entries.On("Insert", mock.Anything, mock.MatchedBy(func(e *ledger.Entry) bool {
					return e.Kind == ledger.KindDebit && e.Amount.Equal(decimal.NewFromInt(-200)) && *e.SagaID == sagaID
				})).Return(nil)
			},
			expectedBalance: "800",
		},
		{
			name:     "reversal credits account",
			movement: service.Movement{AccountID: accountID, Kind: ledger.KindReversal, Amount: decimal.NewFromInt(200), CorrelationID: sagaID},
			setupMocks: func(accounts *MockAccountRepo, entries *MockLedgerRepo) {
				accounts.On("LockForUpdate", mock.Anything, accountID).Return(&account.Account{ID: accountID, Balance: decimal.NewFromInt(800), Version: 2}, nil)
				accounts.On("Update", mock.Anything, mock.Anything).Return(nil)
				entries.On("Insert", mock.Anything, mock.MatchedBy(func(e *ledger.Entry) bool {
					return e.Kind == ledger.KindReversal && e.Amount.Equal(decimal.NewFromInt(200))
				})).Return(nil)
			},
			expectedBalance: "1000",
		},
		{
			name:     "insufficient funds leaves account untouched",
			movement: service.Movement{AccountID: accountID, Kind: ledger.KindDebit, Amount: decimal.NewFromInt(200), CorrelationID: sagaID},
			setupMocks: func(accounts *MockAccountRepo, entries *MockLedgerRepo) {
				accounts.On("LockForUpdate", mock.Anything, accountID).Return(&account.Account{ID: accountID, Balance: decimal.NewFromInt(50), Version: 1}, nil)
			},
			expectedError: account.ErrInsufficientFunds,
		},
		{
			name:     "account not found",
			movement: service.Movement{AccountID: accountID, Kind: ledger.KindCredit, Amount: decimal.NewFromInt(10)},
			setupMocks: func(accounts *MockAccountRepo, entries *MockLedgerRepo) {
				accounts.On("LockForUpdate", mock.Anything, accountID).Return(nil, account.ErrAccountNotFound{AccountID: accountID})
			},
			expectedError: account.ErrAccountNotFound{AccountID: accountID},
		},
		{
			name:     "concurrent modification",
			movement: service.Movement{AccountID: accountID, Kind: ledger.KindCredit, Amount: decimal.NewFromInt(10)},
			setupMocks: func(accounts *MockAccountRepo, entries *MockLedgerRepo) {
				accounts.On("LockForUpdate", mock.Anything, accountID).Return(&account.Account{ID: accountID, Balance: decimal.Zero, Version: 4}, nil)
				accounts.On("Update", mock.Anything, mock.Anything).Return(account.ErrConcurrentModification{AccountID: accountID})
			},
			expectedError: account.ErrConcurrentModification{AccountID: accountID},
		},
		{
			name:     "duplicate ledger entry",
			movement: service.Movement{AccountID: accountID, Kind: ledger.KindCredit, Amount: decimal.NewFromInt(10), CorrelationID: sagaID},
			setupMocks: func(accounts *MockAccountRepo, entries *MockLedgerRepo) {
				accounts.On("LockForUpdate", mock.Anything, accountID).Return(&account.Account{ID: accountID, Balance: decimal.Zero, Version: 1}, nil)
				accounts.On("Update", mock.Anything, mock.Anything).Return(nil)
				entries.On("Insert", mock.Anything, mock.Anything).Return(ledger.ErrDuplicateEntry{SagaID: sagaID, Kind: ledger.KindCredit})
			},
			expectedError: ledger.ErrDuplicateEntry{},
		},
		{
			name:     "unsupported kind",
			movement: service.Movement{AccountID: accountID, Kind: ledger.Kind("FEE"), Amount: decimal.NewFromInt(10)},
			setupMocks: func(accounts *MockAccountRepo, entries *MockLedgerRepo) {
				accounts.On("LockForUpdate", mock.Anything, accountID).Return(&account.Account{ID: accountID, Balance: decimal.NewFromInt(10), Version: 1}, nil)
			},
			expectedError: ErrUnsupportedKind{Kind: "FEE"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			accounts := &MockAccountRepo{}
			entries := &MockLedgerRepo{}
			accounts.On("WithTx", mock.Anything).Return(accounts)
			entries.On("WithTx", mock.Anything).Return(entries).Maybe()
			tt.setupMocks(accounts, entries)

			manager := NewAccountManager(accounts, entries, logger)
			acc, err := manager.ApplyEntry(context.Background(), nil, tt.movement)

			if tt.expectedError != nil {
				assert.True(t, errors.Is(err, tt.expectedError), "got %v", err)
				assert.Nil(t, acc)
			} else {
				assert.NoError(t, err)
				assert.True(t, decimal.RequireFromString(tt.expectedBalance).Equal(acc.Balance))
			}
			accounts.AssertExpectations(t)
			entries.AssertExpectations(t)
		})
	}
}
