package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sarabank-saga/internal/api_gateway"
	"github.com/sarabank-saga/internal/api_gateway/service"
	"github.com/sarabank-saga/internal/config"
	"github.com/sarabank-saga/internal/data/mongo"
	"github.com/sarabank-saga/internal/data/postgres"
	"github.com/sarabank-saga/internal/domain/events"
	"github.com/sarabank-saga/internal/domain/outbox"
	"github.com/sarabank-saga/internal/logger"
	"github.com/sarabank-saga/internal/platform/persistence"
)

func main() {
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("api_gateway")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	pool := postgresDB.Pool()
	accountRepo := postgres.NewAccountRepository(log, pool)
	ledgerRepo := postgres.NewLedgerRepository(log, pool)
	userRepo := postgres.NewUserRepository(log, pool)
	sagaRepo := postgres.NewSagaRepository(log, pool)
	outboxRepo := postgres.NewOutboxRepository(log, pool)
	requestRepo := postgres.NewIdempotencyRepository(log, pool)
	auditRepo := mongo.NewSagaAuditRepository(log, mongoDB.Database())

	// The gateway only stages events; the saga processor publishes them
	outboxWriter := outbox.NewWriter(outboxRepo, events.NewTopicMap(&cfg.Topics))

	server := api_gateway.NewServer(log, cfg, api_gateway.Services{
		Users:     service.NewUserService(log, postgresDB, userRepo, accountRepo, requestRepo, outboxWriter),
		Accounts:  service.NewAccountService(log, postgresDB, accountRepo, ledgerRepo, outboxWriter),
		Transfers: service.NewTransferService(log, postgresDB, accountRepo, sagaRepo, auditRepo, outboxWriter),
		Operator:  service.NewOperatorService(log, outboxRepo, sagaRepo),
		Health: map[string]func(ctx context.Context) error{
			"postgres": postgresDB.Ping,
			"mongodb":  mongoDB.Ping,
		},
	})
	log.Info("REST server initialized")

	errChan := make(chan error, 1)

	go func() {
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	cancelAppCtx()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	var shutdownErr error

	// Drain HTTP first so in-flight commands can still commit
	if err := server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
		shutdownErr = err
	}

	postgresDB.Close()

	if err := mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
		shutdownErr = err
	}

	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if shutdownErr != nil {
		log.Error("Server shutdown completed with errors")
		os.Exit(1)
	}
	log.Info("Server shutdown completed successfully")
}
