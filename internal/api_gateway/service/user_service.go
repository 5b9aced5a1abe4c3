package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/sarabank-saga/internal/domain/account"
	"github.com/sarabank-saga/internal/domain/events"
	"github.com/sarabank-saga/internal/domain/idempotency"
	"github.com/sarabank-saga/internal/domain/user"
	"github.com/sarabank-saga/internal/platform/persistence"
)

const registerUserCommand = "CadastrarUsuario"

// ErrMissingRequestID is returned when a command arrives without a client request id
var ErrMissingRequestID = errors.New("request id is required")

// UserServiceImpl implements the UserService interface
type UserServiceImpl struct {
	db          persistence.TxRunner
	userRepo    user.Repository
	accountRepo account.Repository
	requests    idempotency.Repository
	outbox      OutboxWriter
	logger      *slog.Logger
}

// NewUserService creates a new user service
func NewUserService(
	logger *slog.Logger,
	db persistence.TxRunner,
	userRepo user.Repository,
	accountRepo account.Repository,
	requests idempotency.Repository,
	outbox OutboxWriter,
) UserService {
	return &UserServiceImpl{
		db:          db,
		userRepo:    userRepo,
		accountRepo: accountRepo,
		requests:    requests,
		outbox:      outbox,
		logger:      logger,
	}
}

// Register runs the whole registration in one transaction
func (s *UserServiceImpl) Register(ctx context.Context, requestID string, in RegisterUserInput) (*Registration, error) {
	if requestID == "" {
		return nil, ErrMissingRequestID
	}
	if in.InitialBalance.IsNegative() || !account.HasMoneyScale(in.InitialBalance) {
		return nil, account.ErrInvalidAmount
	}

	u := user.NewUser(in.Name, in.CPF, in.Email)
	acc := account.NewAccount(u.ID)

	err := s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		requests := s.requests.WithTx(tx)

		seen, err := requests.Exists(ctx, requestID)
		if err != nil {
			return err
		}
		if seen {
			return idempotency.ErrAlreadyProcessed{RequestID: requestID}
		}
		if err := requests.Save(ctx, idempotency.NewRecord(requestID, registerUserCommand)); err != nil {
			return err
		}

		users := s.userRepo.WithTx(tx)
		taken, err := users.ExistsByCPF(ctx, u.CPF)
		if err != nil {
			return err
		}
		if taken {
			return user.ErrDuplicateCPF{CPF: u.CPF}
		}

		if err := users.Create(ctx, u); err != nil {
			return err
		}
		if err := s.accountRepo.WithTx(tx).Create(ctx, acc); err != nil {
			return err
		}

		_, err = s.outbox.Enqueue(ctx, tx, &events.UserRegistered{
			UserID:         u.ID,
			Name:           u.Name,
			Email:          u.Email,
			AccountID:      acc.ID,
			InitialBalance: in.InitialBalance,
			CreatedAt:      u.CreatedAt,
		})
		return err
	})
	if err != nil {
		if errors.Is(err, idempotency.ErrAlreadyProcessed{}) {
			s.logger.Info("Registration already processed", "request_id", requestID)
		} else {
			s.logger.Warn("Registration failed", "request_id", requestID, "error", err)
		}
		return nil, err
	}

	s.logger.Info("User registered",
		"request_id", requestID,
		"user_id", u.ID.String(),
		"account_id", acc.ID.String(),
	)
	return &Registration{User: u, Account: acc}, nil
}
