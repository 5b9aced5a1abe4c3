package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sarabank-saga/internal/domain/account"
	"github.com/sarabank-saga/internal/domain/events"
	"github.com/sarabank-saga/internal/domain/idempotency"
	"github.com/sarabank-saga/internal/domain/ledger"
	"github.com/sarabank-saga/internal/domain/outbox"
	"github.com/sarabank-saga/internal/domain/saga"
	"github.com/sarabank-saga/internal/domain/user"
	"github.com/stretchr/testify/mock"
)

type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) Create(ctx context.Context, acc *account.Account) error {
	args := m.Called(ctx, acc)
	return args.Error(0)
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *MockAccountRepository) Update(ctx context.Context, acc *account.Account) error {
	args := m.Called(ctx, acc)
	return args.Error(0)
}

func (m *MockAccountRepository) WithTx(tx pgx.Tx) account.Repository {
	args := m.Called(tx)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(account.Repository)
}

func (m *MockAccountRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

type MockLedgerRepository struct {
	mock.Mock
}

func (m *MockLedgerRepository) Insert(ctx context.Context, entry *ledger.Entry) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *MockLedgerRepository) ExistsForSaga(ctx context.Context, sagaID uuid.UUID, kind ledger.Kind) (bool, error) {
	args := m.Called(ctx, sagaID, kind)
	return args.Bool(0), args.Error(1)
}

func (m *MockLedgerRepository) ListBySaga(ctx context.Context, sagaID uuid.UUID) ([]*ledger.Entry, error) {
	args := m.Called(ctx, sagaID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.Entry), args.Error(1)
}

func (m *MockLedgerRepository) ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*ledger.Entry, error) {
	args := m.Called(ctx, accountID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.Entry), args.Error(1)
}

func (m *MockLedgerRepository) CountByAccount(ctx context.Context, accountID uuid.UUID) (int64, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerRepository) WithTx(tx pgx.Tx) ledger.Repository {
	return m.Called(tx).Get(0).(ledger.Repository)
}

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, u *user.User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserRepository) ExistsByCPF(ctx context.Context, cpf string) (bool, error) {
	args := m.Called(ctx, cpf)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) WithTx(tx pgx.Tx) user.Repository {
	return m.Called(tx).Get(0).(user.Repository)
}

type MockIdempotencyRepository struct {
	mock.Mock
}

func (m *MockIdempotencyRepository) Exists(ctx context.Context, requestID string) (bool, error) {
	args := m.Called(ctx, requestID)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyRepository) Save(ctx context.Context, record *idempotency.Record) error {
	return m.Called(ctx, record).Error(0)
}

func (m *MockIdempotencyRepository) WithTx(tx pgx.Tx) idempotency.Repository {
	return m.Called(tx).Get(0).(idempotency.Repository)
}

type MockSagaRepository struct {
	mock.Mock
}

func (m *MockSagaRepository) Create(ctx context.Context, s *saga.Saga) error {
	return m.Called(ctx, s).Error(0)
}

func (m *MockSagaRepository) GetByID(ctx context.Context, id uuid.UUID) (*saga.Saga, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*saga.Saga), args.Error(1)
}

func (m *MockSagaRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*saga.Saga, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*saga.Saga), args.Error(1)
}

func (m *MockSagaRepository) UpdateState(ctx context.Context, s *saga.Saga) error {
	return m.Called(ctx, s).Error(0)
}

func (m *MockSagaRepository) FindStalled(ctx context.Context, olderThan time.Time, limit int) ([]*saga.Saga, error) {
	args := m.Called(ctx, olderThan, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*saga.Saga), args.Error(1)
}

func (m *MockSagaRepository) MarkStalled(ctx context.Context, id uuid.UUID, at time.Time) error {
	return m.Called(ctx, id, at).Error(0)
}

func (m *MockSagaRepository) ListStalled(ctx context.Context, limit, offset int) ([]*saga.Saga, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*saga.Saga), args.Error(1)
}

func (m *MockSagaRepository) WithTx(tx pgx.Tx) saga.Repository {
	return m.Called(tx).Get(0).(saga.Repository)
}

type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) Append(ctx context.Context, record *saga.AuditRecord) error {
	return m.Called(ctx, record).Error(0)
}

func (m *MockAuditRepository) ListBySaga(ctx context.Context, sagaID uuid.UUID) ([]*saga.AuditRecord, error) {
	args := m.Called(ctx, sagaID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*saga.AuditRecord), args.Error(1)
}

type MockOutboxRepository struct {
	mock.Mock
}

func (m *MockOutboxRepository) Create(ctx context.Context, message *outbox.Message) error {
	return m.Called(ctx, message).Error(0)
}

func (m *MockOutboxRepository) GetPending(ctx context.Context, limit, maxAttempts int) ([]*outbox.Message, error) {
	args := m.Called(ctx, limit, maxAttempts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*outbox.Message), args.Error(1)
}

func (m *MockOutboxRepository) GetByID(ctx context.Context, id int64) (*outbox.Message, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*outbox.Message), args.Error(1)
}

func (m *MockOutboxRepository) MarkProcessed(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockOutboxRepository) RecordFailure(ctx context.Context, id int64, reason string, maxAttempts int) (outbox.FailureOutcome, error) {
	args := m.Called(ctx, id, reason, maxAttempts)
	return args.Get(0).(outbox.FailureOutcome), args.Error(1)
}

func (m *MockOutboxRepository) ListDeadLettered(ctx context.Context, limit, offset int) ([]*outbox.Message, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*outbox.Message), args.Error(1)
}

func (m *MockOutboxRepository) CountDeadLettered(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockOutboxRepository) Replay(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockOutboxRepository) WithTx(tx pgx.Tx) outbox.Repository {
	return m.Called(tx).Get(0).(outbox.Repository)
}

type MockOutboxWriter struct {
	mock.Mock
}

func (m *MockOutboxWriter) Enqueue(ctx context.Context, tx pgx.Tx, evt events.Event) (*outbox.Message, error) {
	args := m.Called(ctx, tx, evt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*outbox.Message), args.Error(1)
}

// fakeTxRunner runs fn with a nil tx and reports whether it would have committed
type fakeTxRunner struct {
	commits   int
	rollbacks int
}

func (r *fakeTxRunner) ExecuteTx(_ context.Context, fn func(tx pgx.Tx) error) error {
	if err := fn(nil); err != nil {
		r.rollbacks++
		return err
	}
	r.commits++
	return nil
}
