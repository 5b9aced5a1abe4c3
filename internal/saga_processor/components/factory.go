package components

import (
	"log/slog"

	"github.com/sarabank-saga/internal/config"
	"github.com/sarabank-saga/internal/domain/account"
	"github.com/sarabank-saga/internal/domain/events"
	"github.com/sarabank-saga/internal/domain/ledger"
	"github.com/sarabank-saga/internal/domain/outbox"
	"github.com/sarabank-saga/internal/domain/saga"
	"github.com/sarabank-saga/internal/platform/persistence"
	"github.com/sarabank-saga/internal/saga_processor/service"
	"github.com/sarabank-saga/internal/saga_processor/steps"
)

// Repositories groups the stores the steps write through
type Repositories struct {
	Accounts account.Repository
	Ledger   ledger.Repository
	Sagas    saga.Repository
	Outbox   outbox.Repository
	Audit    saga.AuditRepository
}

// NewSteps registers one step per consumed event type
func NewSteps(db persistence.TxRunner, repos Repositories, topics events.TopicMap, logger *slog.Logger) map[events.Type]service.StepHandler {
	deps := steps.Dependencies{
		DB:       db,
		Sagas:    repos.Sagas,
		Accounts: NewAccountManager(repos.Accounts, repos.Ledger, logger),
		Guard:    NewIdempotencyGuard(repos.Ledger),
		Outbox:   outbox.NewWriter(repos.Outbox, topics),
		Logger:   logger,
	}
	if repos.Audit != nil {
		deps.Auditor = NewAuditor(repos.Audit, logger)
	}

	finalize := steps.NewFinalizeStep(deps)
	return map[events.Type]service.StepHandler{
		events.TypeUserRegistered:    steps.NewUserRegisteredStep(deps),
		events.TypeMovementRequested: steps.NewMovementStep(deps),
		events.TypeTransferInitiated: steps.NewDebitStep(deps),
		events.TypeBalanceDebited:    steps.NewCreditStep(deps),
		events.TypeCreditFailed:      steps.NewCompensationStep(deps),
		events.TypeTransferCompleted: finalize,
		events.TypeTransferCancelled: finalize,
	}
}

// CreateProcessingService creates a new ProcessingService with all its dependencies.
func CreateProcessingService(
	db persistence.TxRunner,
	repos Repositories,
	topics events.TopicMap,
	logger *slog.Logger,
	cfg *config.Config,
) service.ProcessingService {
	baseService := service.NewProcessingService(NewSteps(db, repos, topics, logger), logger)

	workerPoolService, err := service.NewWorkerPoolProcessingService(
		baseService,
		service.WorkerPoolConfig{
			Size: cfg.WorkerPool.Size,
		},
		logger.With("component", "worker_pool"),
	)

	if err != nil {
		logger.Error("Failed to create worker pool service, falling back to base service", "error", err)
		return baseService
	}

	logger.Info("Created worker pool processing service", "pool_size", cfg.WorkerPool.Size)
	return workerPoolService
}
