package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sarabank-saga/internal/config"
	"github.com/sarabank-saga/internal/data/mongo"
	"github.com/sarabank-saga/internal/data/postgres"
	"github.com/sarabank-saga/internal/domain/events"
	"github.com/sarabank-saga/internal/logger"
	"github.com/sarabank-saga/internal/platform/messaging/consumers"
	"github.com/sarabank-saga/internal/platform/messaging/producers"
	"github.com/sarabank-saga/internal/platform/persistence"
	"github.com/sarabank-saga/internal/saga_processor/components"
	"github.com/sarabank-saga/internal/saga_processor/consumer"
	"github.com/sarabank-saga/internal/saga_processor/outbox_dispatcher"
	"github.com/sarabank-saga/internal/saga_processor/service"
	"github.com/sarabank-saga/internal/saga_processor/watchdog"
)

func main() {
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("saga_processor")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

	log.Info("Starting Saga Processor",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

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

	auditRepo := mongo.NewSagaAuditRepository(log, mongoDB.Database())
	if err := auditRepo.EnsureIndexes(appCtx); err != nil {
		log.Warn("Failed to ensure saga audit indexes", "error", err)
	}

	pool := postgresDB.Pool()
	repos := components.Repositories{
		Accounts: postgres.NewAccountRepository(log, pool),
		Ledger:   postgres.NewLedgerRepository(log, pool),
		Sagas:    postgres.NewSagaRepository(log, pool),
		Outbox:   postgres.NewOutboxRepository(log, pool),
		Audit:    auditRepo,
	}
	topicMap := events.NewTopicMap(&cfg.Topics)
	topics := uniqueTopics(topicMap)

	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}

	// A nil *DLQProducer must not reach the interfaces below as a typed nil
	var consumerDLQ consumers.DeadLetterPublisher
	var outboxDLQ outbox_dispatcher.DeadLetterPublisher
	if dlqProducer != nil {
		consumerDLQ = dlqProducer
		outboxDLQ = dlqProducer
	}

	publisher, err := producers.NewEventPublisher(appCtx, log, &cfg.Kafka, &cfg.CircuitBreaker, topics)
	if err != nil {
		log.Error("Failed to initialize Kafka event publisher", "error", err)
		os.Exit(1)
	}

	processingService := components.CreateProcessingService(postgresDB, repos, topicMap, log, cfg)
	router := consumer.NewEventRouter(log, processingService)

	kafkaConsumers := make([]*consumers.KafkaConsumer, 0, len(topics))
	for _, topic := range topics {
		kafkaConsumers = append(kafkaConsumers,
			consumers.NewKafkaConsumer(appCtx, log.With("topic", topic), &cfg.Kafka, []string{topic}, consumerDLQ))
	}

	dispatcher := outbox_dispatcher.NewDispatcher(&cfg.Outbox, repos.Outbox, publisher, outboxDLQ, log.With("component", "outbox_dispatcher"))
	sagaWatchdog := watchdog.NewWatchdog(&cfg.Saga, repos.Sagas, components.NewAuditor(repos.Audit, log), log.With("component", "watchdog"))

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Metrics.Port),
		Handler:           metricsMux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errChan := make(chan error, len(kafkaConsumers)+1)
	var wg sync.WaitGroup

	for i, c := range kafkaConsumers {
		log.Info("Starting Kafka consumer", "topic", topics[i], "group", cfg.Kafka.ConsumerGroup)
		if err := c.Subscribe(appCtx, router.HandleMessage); err != nil {
			errChan <- fmt.Errorf("kafka consumer error on %s: %w", topics[i], err)
		}
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting Outbox Dispatcher",
			"interval", cfg.Outbox.PollingInterval.String(),
			"batch_size", cfg.Outbox.BatchSize,
			"max_attempts", cfg.Outbox.MaxRetryAttempts,
		)
		dispatcher.Start(appCtx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting Saga Watchdog",
			"interval", cfg.Saga.WatchdogInterval.String(),
			"threshold", cfg.Saga.StallThreshold.String(),
		)
		sagaWatchdog.Start(appCtx)
	}()

	go func() {
		log.Info("Starting metrics listener", "port", cfg.Metrics.Port)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("metrics listener error: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	var serviceErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Service error occurred", "error", err)
		serviceErr = err
	}

	cancelAppCtx()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	var shutdownErr error

	// Stop fetching before draining the pool so no new work is submitted
	for i, c := range kafkaConsumers {
		if err := c.Close(); err != nil {
			log.Error("Error closing Kafka consumer", "topic", topics[i], "error", err)
			shutdownErr = err
		}
	}

	if wpService, ok := processingService.(*service.WorkerPoolProcessingService); ok {
		log.Info("Shutting down worker pool", "running_workers", wpService.Running())
		wpService.Shutdown()
	}

	wgChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(wgChan)
	}()

	select {
	case <-wgChan:
		log.Info("Dispatcher and watchdog stopped")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Error("Error stopping metrics listener", "error", err)
		shutdownErr = err
	}

	if err := publisher.Close(); err != nil {
		log.Error("Error closing Kafka event publisher", "error", err)
		shutdownErr = err
	}

	if dlqProducer != nil {
		if err := dlqProducer.Close(); err != nil {
			log.Error("Error closing DLQ Kafka producer", "error", err)
			shutdownErr = err
		}
	}

	postgresDB.Close()

	if err := mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
		shutdownErr = err
	}

	if serviceErr != nil {
		log.Error("Saga Processor shutdown with errors", "error", serviceErr)
	}
	if shutdownErr != nil {
		log.Error("Saga Processor shutdown completed with errors")
		os.Exit(1)
	}
	log.Info("Saga Processor shutdown completed successfully")
}

// uniqueTopics returns each configured topic once, in a stable order
func uniqueTopics(topicMap events.TopicMap) []string {
	seen := make(map[string]struct{})
	var topics []string
	for _, topic := range topicMap.Topics() {
		if _, ok := seen[topic]; ok {
			continue
		}
		seen[topic] = struct{}{}
		topics = append(topics, topic)
	}
	sort.Strings(topics)
	return topics
}
