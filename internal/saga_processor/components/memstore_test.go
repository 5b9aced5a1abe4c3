package components

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sarabank-saga/internal/domain/account"
	"github.com/sarabank-saga/internal/domain/ledger"
	"github.com/sarabank-saga/internal/domain/outbox"
	"github.com/sarabank-saga/internal/domain/saga"
)

// memStore is an in-memory ledger store used to drive whole sagas through the steps
type memStore struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*account.Account
	entries  []*ledger.Entry
	sagas    map[uuid.UUID]*saga.Saga
	messages []*outbox.Message
}

func newMemStore() *memStore {
	return &memStore{
		accounts: make(map[uuid.UUID]*account.Account),
		sagas:    make(map[uuid.UUID]*saga.Saga),
	}
}

type memTxRunner struct{}

func (memTxRunner) ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return fn(nil)
}

type memAccounts struct{ s *memStore }

func (r memAccounts) Create(ctx context.Context, acc *account.Account) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *acc
	r.s.accounts[acc.ID] = &cp
	return nil
}

func (r memAccounts) GetByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	acc, ok := r.s.accounts[id]
	if !ok {
		return nil, account.ErrAccountNotFound{AccountID: id}
	}
	cp := *acc
	return &cp, nil
}

func (r memAccounts) LockForUpdate(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	return r.GetByID(ctx, id)
}

func (r memAccounts) Update(ctx context.Context, acc *account.Account) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	current, ok := r.s.accounts[acc.ID]
	if !ok || current.Version != acc.Version-1 {
		return account.ErrConcurrentModification{AccountID: acc.ID}
	}
	cp := *acc
	r.s.accounts[acc.ID] = &cp
	return nil
}

func (r memAccounts) WithTx(tx pgx.Tx) account.Repository { return r }

type memLedger struct{ s *memStore }

func (r memLedger) Insert(ctx context.Context, entry *ledger.Entry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, e := range r.s.entries {
		if e.SagaID != nil && entry.SagaID != nil && *e.SagaID == *entry.SagaID && e.Kind == entry.Kind {
			return ledger.ErrDuplicateEntry{SagaID: *entry.SagaID, Kind: entry.Kind}
		}
	}
	r.s.entries = append(r.s.entries, entry)
	return nil
}

func (r memLedger) ExistsForSaga(ctx context.Context, sagaID uuid.UUID, kind ledger.Kind) (bool, error) {
	entries, _ := r.ListBySaga(ctx, sagaID)
	for _, e := range entries {
		if e.Kind == kind {
			return true, nil
		}
	}
	return false, nil
}

func (r memLedger) ListBySaga(ctx context.Context, sagaID uuid.UUID) ([]*ledger.Entry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*ledger.Entry
	for _, e := range r.s.entries {
		if e.SagaID != nil && *e.SagaID == sagaID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r memLedger) ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*ledger.Entry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*ledger.Entry
	for _, e := range r.s.entries {
		if e.AccountID == accountID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r memLedger) CountByAccount(ctx context.Context, accountID uuid.UUID) (int64, error) {
	entries, _ := r.ListByAccount(ctx, accountID, 0, 0)
	return int64(len(entries)), nil
}

func (r memLedger) WithTx(tx pgx.Tx) ledger.Repository { return r }

type memSagas struct{ s *memStore }

func (r memSagas) Create(ctx context.Context, sg *saga.Saga) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *sg
	r.s.sagas[sg.ID] = &cp
	return nil
}

func (r memSagas) GetByID(ctx context.Context, id uuid.UUID) (*saga.Saga, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sg, ok := r.s.sagas[id]
	if !ok {
		return nil, saga.ErrSagaNotFound{SagaID: id}
	}
	cp := *sg
	return &cp, nil
}

func (r memSagas) LockForUpdate(ctx context.Context, id uuid.UUID) (*saga.Saga, error) {
	return r.GetByID(ctx, id)
}

func (r memSagas) UpdateState(ctx context.Context, sg *saga.Saga) error {
	return r.Create(ctx, sg)
}

func (r memSagas) FindStalled(ctx context.Context, olderThan time.Time, limit int) ([]*saga.Saga, error) {
	return nil, nil
}

func (r memSagas) MarkStalled(ctx context.Context, id uuid.UUID, at time.Time) error { return nil }

func (r memSagas) ListStalled(ctx context.Context, limit, offset int) ([]*saga.Saga, error) {
	return nil, nil
}

func (r memSagas) WithTx(tx pgx.Tx) saga.Repository { return r }

type memOutbox struct{ s *memStore }

func (r memOutbox) Create(ctx context.Context, msg *outbox.Message) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	msg.ID = int64(len(r.s.messages) + 1)
	r.s.messages = append(r.s.messages, msg)
	return nil
}

func (r memOutbox) GetPending(ctx context.Context, limit, maxAttempts int) ([]*outbox.Message, error) {
	return nil, nil
}

func (r memOutbox) GetByID(ctx context.Context, id int64) (*outbox.Message, error) {
	return nil, outbox.ErrMessageNotFound{ID: id}
}

func (r memOutbox) MarkProcessed(ctx context.Context, id int64) error { return nil }

func (r memOutbox) RecordFailure(ctx context.Context, id int64, reason string, maxAttempts int) (outbox.FailureOutcome, error) {
	return outbox.FailureOutcome{}, nil
}

func (r memOutbox) ListDeadLettered(ctx context.Context, limit, offset int) ([]*outbox.Message, error) {
	return nil, nil
}

func (r memOutbox) CountDeadLettered(ctx context.Context) (int64, error) { return 0, nil }

func (r memOutbox) Replay(ctx context.Context, id int64) error { return nil }

func (r memOutbox) WithTx(tx pgx.Tx) outbox.Repository { return r }

func (s *memStore) repositories() Repositories {
	return Repositories{
		Accounts: memAccounts{s},
		Ledger:   memLedger{s},
		Sagas:    memSagas{s},
		Outbox:   memOutbox{s},
	}
}

// drain returns every staged message, oldest first, and clears the outbox
func (s *memStore) drain() []*outbox.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.messages
	s.messages = nil
	return out
}
