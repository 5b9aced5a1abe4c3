// Package config provides configuration structures and validation for the saga engine.
// It covers the HTTP gateway, the saga processor, storage, the event transport and the
// outbox and watchdog loops.
package config

import (
	"errors"
	"strings"
	"time"
)

// Config holds the complete application configuration with settings for all components.
// Each field represents a subsystem's configuration and is validated during startup.
type Config struct {
	Application    ApplicationConfig
	Logging        LoggingConfig
	Server         ServerConfig
	Metrics        MetricsConfig
	Kafka          KafkaConfig
	Topics         TopicsConfig
	Postgres       PostgresConfig
	MongoDB        MongoDBConfig
	Outbox         OutboxConfig
	Saga           SagaConfig
	WorkerPool     WorkerPoolConfig
	CircuitBreaker CircuitBreakerConfig
}

// ApplicationConfig contains general application configuration
type ApplicationConfig struct {
	Env  string
	Name string
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port            int           // Port to listen on
	ShutdownTimeout time.Duration // Grace period for server shutdown
	ReadTimeout     time.Duration // Maximum duration for reading entire request
	WriteTimeout    time.Duration // Maximum duration for writing response
	IdleTimeout     time.Duration // Maximum duration to wait for next request
}

// MetricsConfig contains the Prometheus listener used by the saga processor
type MetricsConfig struct {
	Port int
}

// KafkaConfig contains Kafka connection and consumer configuration
type KafkaConfig struct {
	Brokers           string
	NumPartitions     int // Number of partitions for topics
	ReplicationFactor int // Replication factor for topics
	ConsumerGroup     string
	MinBytes          int
	MaxBytes          int
	MaxWait           time.Duration
	StartOffset       int64
	DLQTopic          string        // Topic for Dead Letter Queue
	MaxRedeliveries   int           // Redeliveries after which a still failing message is logged at ERROR
	RedeliveryBackoff time.Duration // Base delay between handler retries
}

// TopicsConfig maps every event type to the topic it is published on.
// Field names follow the event types; values are topic names.
type TopicsConfig struct {
	UserRegistered    string
	MovementRequested string
	TransferInitiated string
	BalanceDebited    string
	TransferCancelled string
	CreditFailed      string
	TransferCompleted string
}

// ByEventType returns the topic map keyed by the wire event-type tag
func (t TopicsConfig) ByEventType() map[string]string {
	return map[string]string{
		"UsuarioCadastrado":      t.UserRegistered,
		"NovaMovimentacao":       t.MovementRequested,
		"TransferenciaIniciada":  t.TransferInitiated,
		"SaldoDebitado":          t.BalanceDebited,
		"TransferenciaCancelada": t.TransferCancelled,
		"FalhaNoCredito":         t.CreditFailed,
		"TransferenciaConcluida": t.TransferCompleted,
	}
}

// PostgresConfig contains PostgreSQL configuration
type PostgresConfig struct {
	URL             string        // Database connection string
	MaxConns        int32         // Maximum number of open connections
	MinConns        int32         // Maximum number of idle connections
	ConnMaxLifetime time.Duration // Maximum lifetime of a connection
	ConnMaxIdleTime time.Duration // Maximum idle time of a connection
	MigrationsPath  string        // Path to migration files
}

// MongoDBConfig contains MongoDB configuration
type MongoDBConfig struct {
	URI             string
	Database        string
	Timeout         time.Duration
	MaxPoolSize     uint64
	MinPoolSize     uint64
	MaxConnIdleTime time.Duration
}

// OutboxConfig contains outbox dispatch configuration
type OutboxConfig struct {
	PollingInterval  time.Duration
	BatchSize        int
	MaxRetryAttempts int           // Dispatch cycles before a message is dead-lettered
	PublishRetries   int           // Publish tries within a single dispatch cycle
	RetryBaseDelay   time.Duration // First backoff delay, doubled on every retry
}

// SagaConfig contains saga watchdog configuration
type SagaConfig struct {
	WatchdogInterval time.Duration
	StallThreshold   time.Duration
	WatchdogBatch    int
}

// WorkerPoolConfig contains worker pool configuration
type WorkerPoolConfig struct {
	Size int // Maximum number of workers in the pool
}

// CircuitBreakerConfig configures the breaker around broker writes
type CircuitBreakerConfig struct {
	ConsecutiveFailures uint32
	OpenTimeout         time.Duration
	HalfOpenRequests    uint32
}

// validate performs comprehensive validation of all configuration values,
// ensuring they meet minimum requirements and logical constraints
func (c *Config) validate() error {
	var validationErrors []string

	// Validate Server config
	if c.Server.Port <= 0 {
		validationErrors = append(validationErrors, "SERVER_PORT must be greater than 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_SHUTDOWN_TIMEOUT must be greater than 0")
	}
	if c.Server.ReadTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_READ_TIMEOUT must be greater than 0")
	}
	if c.Server.WriteTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_WRITE_TIMEOUT must be greater than 0")
	}
	if c.Server.IdleTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_IDLE_TIMEOUT must be greater than 0")
	}
	if c.Metrics.Port <= 0 {
		validationErrors = append(validationErrors, "METRICS_PORT must be greater than 0")
	}

	// Validate Kafka config
	if len(c.Kafka.Brokers) == 0 {
		validationErrors = append(validationErrors, "KAFKA_BROKERS is required")
	}
	if c.Kafka.ConsumerGroup == "" {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_GROUP is required")
	}
	if c.Kafka.MinBytes <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MIN_BYTES must be greater than 0")
	}
	if c.Kafka.MaxBytes <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MAX_BYTES must be greater than 0")
	}
	if c.Kafka.MaxWait <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MAX_WAIT must be greater than 0")
	}
	if c.Kafka.DLQTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_DLQ_TOPIC is required")
	}
	if c.Kafka.MaxRedeliveries < 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MAX_REDELIVERIES cannot be negative")
	}

	// Every event type must be routable
	for eventType, topic := range c.Topics.ByEventType() {
		if topic == "" {
			validationErrors = append(validationErrors, "topic for event type "+eventType+" is required")
		}
	}

	// Validate PostgreSQL config
	if c.Postgres.URL == "" {
		validationErrors = append(validationErrors, "POSTGRES_URL is required")
	}
	if c.Postgres.MaxConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONNS must be greater than 0")
	}
	if c.Postgres.MinConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MIN_CONNS must be greater than 0")
	}
	if c.Postgres.ConnMaxLifetime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_LIFETIME must be greater than 0")
	}
	if c.Postgres.ConnMaxIdleTime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_IDLE_TIME must be greater than 0")
	}

	// Validate MongoDB config
	if c.MongoDB.URI == "" {
		validationErrors = append(validationErrors, "MONGO_URI is required")
	}
	if c.MongoDB.Database == "" {
		validationErrors = append(validationErrors, "MONGO_DATABASE is required")
	}
	if c.MongoDB.Timeout <= 0 {
		validationErrors = append(validationErrors, "MONGO_TIMEOUT must be greater than 0")
	}
	if c.MongoDB.MaxPoolSize <= 0 {
		validationErrors = append(validationErrors, "MONGO_MAX_POOL_SIZE must be greater than 0")
	}
	if c.MongoDB.MinPoolSize <= 0 {
		validationErrors = append(validationErrors, "MONGO_MIN_POOL_SIZE must be greater than 0")
	}
	if c.MongoDB.MaxConnIdleTime <= 0 {
		validationErrors = append(validationErrors, "MONGO_MAX_CONN_IDLE_TIME must be greater than 0")
	}

	// Validate Outbox config
	if c.Outbox.PollingInterval <= 0 {
		validationErrors = append(validationErrors, "OUTBOX_POLLING_INTERVAL must be greater than 0")
	}
	if c.Outbox.BatchSize <= 0 {
		validationErrors = append(validationErrors, "OUTBOX_BATCH_SIZE must be greater than 0")
	}
	if c.Outbox.MaxRetryAttempts <= 0 {
		validationErrors = append(validationErrors, "OUTBOX_MAX_RETRY_ATTEMPTS must be greater than 0")
	}
	if c.Outbox.PublishRetries <= 0 {
		validationErrors = append(validationErrors, "OUTBOX_PUBLISH_RETRIES must be greater than 0")
	}
	if c.Outbox.RetryBaseDelay < 0 {
		validationErrors = append(validationErrors, "OUTBOX_RETRY_BASE_DELAY cannot be negative")
	}

	// Validate Saga watchdog config
	if c.Saga.WatchdogInterval <= 0 {
		validationErrors = append(validationErrors, "SAGA_WATCHDOG_INTERVAL must be greater than 0")
	}
	if c.Saga.StallThreshold <= 0 {
		validationErrors = append(validationErrors, "SAGA_STALL_THRESHOLD must be greater than 0")
	}
	if c.Saga.WatchdogBatch <= 0 {
		validationErrors = append(validationErrors, "SAGA_WATCHDOG_BATCH_SIZE must be greater than 0")
	}

	// Validate WorkerPool config
	if c.WorkerPool.Size <= 0 {
		validationErrors = append(validationErrors, "WORKER_POOL_SIZE must be greater than 0")
	}

	if c.CircuitBreaker.ConsecutiveFailures == 0 {
		validationErrors = append(validationErrors, "BREAKER_CONSECUTIVE_FAILURES must be greater than 0")
	}
	if c.CircuitBreaker.OpenTimeout <= 0 {
		validationErrors = append(validationErrors, "BREAKER_OPEN_TIMEOUT must be greater than 0")
	}

	if len(validationErrors) > 0 {
		return errors.New(strings.Join(validationErrors, ", "))
	}

	return nil
}
