package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sarabank-saga/internal/api_gateway/service"
	"github.com/sarabank-saga/internal/domain/account"
	"github.com/sarabank-saga/internal/domain/events"
	"github.com/sarabank-saga/internal/domain/ledger"
	"github.com/sarabank-saga/internal/domain/outbox"
	"github.com/sarabank-saga/internal/domain/saga"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) Register(ctx context.Context, requestID string, in service.RegisterUserInput) (*service.Registration, error) {
	args := m.Called(ctx, requestID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Registration), args.Error(1)
}

type MockAccountService struct {
	mock.Mock
}

func (m *MockAccountService) GetAccountByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *MockAccountService) GetStatement(ctx context.Context, accountID uuid.UUID, page, perPage int) ([]*ledger.Entry, int64, error) {
	args := m.Called(ctx, accountID, page, perPage)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*ledger.Entry), args.Get(1).(int64), args.Error(2)
}

func (m *MockAccountService) RequestMovement(ctx context.Context, accountID uuid.UUID, kind events.MovementType, amount decimal.Decimal, description string) (uuid.UUID, error) {
	args := m.Called(ctx, accountID, kind, amount, description)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

type MockTransferService struct {
	mock.Mock
}

func (m *MockTransferService) InitiateTransfer(ctx context.Context, from, to uuid.UUID, amount decimal.Decimal) (*saga.Saga, error) {
	args := m.Called(ctx, from, to, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*saga.Saga), args.Error(1)
}

func (m *MockTransferService) GetTransfer(ctx context.Context, id uuid.UUID) (*saga.Saga, []*saga.AuditRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	var timeline []*saga.AuditRecord
	if args.Get(1) != nil {
		timeline = args.Get(1).([]*saga.AuditRecord)
	}
	return args.Get(0).(*saga.Saga), timeline, args.Error(2)
}

type MockOperatorService struct {
	mock.Mock
}

func (m *MockOperatorService) ListDeadLetters(ctx context.Context, page, perPage int) ([]*outbox.Message, int64, error) {
	args := m.Called(ctx, page, perPage)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*outbox.Message), args.Get(1).(int64), args.Error(2)
}

func (m *MockOperatorService) ReplayDeadLetter(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOperatorService) ListStalledSagas(ctx context.Context, page, perPage int) ([]*saga.Saga, error) {
	args := m.Called(ctx, page, perPage)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*saga.Saga), args.Error(1)
}

var (
	_ service.UserService     = (*MockUserService)(nil)
	_ service.AccountService  = (*MockAccountService)(nil)
	_ service.TransferService = (*MockTransferService)(nil)
	_ service.OperatorService = (*MockOperatorService)(nil)
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	return r
}

func decimalEq(want string) interface{} {
	expected := decimal.RequireFromString(want)
	return mock.MatchedBy(func(d decimal.Decimal) bool { return d.Equal(expected) })
}

func doRequest(router *gin.Engine, method, path string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewBuffer(body)
	}
	req, _ := http.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

// decodeData unmarshals the data field of a standard response into out
func decodeData(t *testing.T, rr *httptest.ResponseRecorder, out interface{}) Response {
	t.Helper()
	var top Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &top))
	if out != nil {
		require.NotNil(t, top.Data, "'data' field should not be nil")
		dataBytes, err := json.Marshal(top.Data)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(dataBytes, out))
	}
	return top
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) *ErrorInfo {
	t.Helper()
	var top Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &top))
	require.NotNil(t, top.Error, "Error field in response should not be nil")
	return top.Error
}
