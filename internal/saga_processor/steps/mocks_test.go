package steps

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sarabank-saga/internal/domain/account"
	"github.com/sarabank-saga/internal/domain/events"
	"github.com/sarabank-saga/internal/domain/ledger"
	"github.com/sarabank-saga/internal/domain/outbox"
	"github.com/sarabank-saga/internal/domain/saga"
	"github.com/sarabank-saga/internal/saga_processor/service"
	"github.com/stretchr/testify/mock"
)

type MockSagaRepo struct {
	mock.Mock
}

func (m *MockSagaRepo) Create(ctx context.Context, s *saga.Saga) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockSagaRepo) GetByID(ctx context.Context, id uuid.UUID) (*saga.Saga, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*saga.Saga), args.Error(1)
}

func (m *MockSagaRepo) LockForUpdate(ctx context.Context, id uuid.UUID) (*saga.Saga, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*saga.Saga), args.Error(1)
}

func (m *MockSagaRepo) UpdateState(ctx context.Context, s *saga.Saga) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockSagaRepo) FindStalled(ctx context.Context, olderThan time.Time, limit int) ([]*saga.Saga, error) {
	args := m.Called(ctx, olderThan, limit)
	return args.Get(0).([]*saga.Saga), args.Error(1)
}

func (m *MockSagaRepo) MarkStalled(ctx context.Context, id uuid.UUID, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *MockSagaRepo) ListStalled(ctx context.Context, limit, offset int) ([]*saga.Saga, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]*saga.Saga), args.Error(1)
}

func (m *MockSagaRepo) WithTx(tx pgx.Tx) saga.Repository {
	args := m.Called(tx)
	return args.Get(0).(saga.Repository)
}

type MockAccountManager struct {
	mock.Mock
}

func (m *MockAccountManager) ApplyEntry(ctx context.Context, tx pgx.Tx, mv service.Movement) (*account.Account, error) {
	args := m.Called(ctx, tx, mv)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

type MockGuard struct {
	mock.Mock
}

func (m *MockGuard) AlreadyApplied(ctx context.Context, tx pgx.Tx, correlationID uuid.UUID, kind ledger.Kind) (bool, error) {
	args := m.Called(ctx, tx, correlationID, kind)
	return args.Bool(0), args.Error(1)
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

type MockAuditor struct {
	mock.Mock
}

func (m *MockAuditor) Record(ctx context.Context, record *saga.AuditRecord) {
	m.Called(ctx, record)
}

// fakeTxRunner runs fn with a nil tx and counts how the transaction ended
type fakeTxRunner struct {
	commits   int
	rollbacks int
}

func (r *fakeTxRunner) ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	if err := fn(nil); err != nil {
		r.rollbacks++
		return err
	}
	r.commits++
	return nil
}

type testDeps struct {
	db       *fakeTxRunner
	sagas    *MockSagaRepo
	accounts *MockAccountManager
	guard    *MockGuard
	outbox   *MockOutboxWriter
	auditor  *MockAuditor
}

func newTestDeps() *testDeps {
	return &testDeps{
		db:       &fakeTxRunner{},
		sagas:    &MockSagaRepo{},
		accounts: &MockAccountManager{},
		guard:    &MockGuard{},
		outbox:   &MockOutboxWriter{},
		auditor:  &MockAuditor{},
	}
}

func (d *testDeps) build() Dependencies {
	d.sagas.On("WithTx", mock.Anything).Return(d.sagas).Maybe()
	return Dependencies{
		DB:       d.db,
		Sagas:    d.sagas,
		Accounts: d.accounts,
		Guard:    d.guard,
		Outbox:   d.outbox,
		Auditor:  d.auditor,
		Logger:   slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})),
	}
}

func (d *testDeps) assertExpectations(t mock.TestingT) {
	d.sagas.AssertExpectations(t)
	d.accounts.AssertExpectations(t)
	d.guard.AssertExpectations(t)
	d.outbox.AssertExpectations(t)
	d.auditor.AssertExpectations(t)
}

func sagaIn(id uuid.UUID, state saga.State) *saga.Saga {
	s := saga.New(uuid.New(), uuid.New(), ledgerAmount)
	s.ID = id
	s.State = state
	return s
}
