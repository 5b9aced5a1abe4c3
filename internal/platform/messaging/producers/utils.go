package producers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sarabank-saga/internal/config"
	"github.com/sarabank-saga/internal/platform/backoff"
	"github.com/segmentio/kafka-go"
)

const partitionReadAttempts = 5

var partitionReadDelay = 500 * time.Millisecond

// EnsureTopics creates the given topics on the controller when missing
func EnsureTopics(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig, topics ...string) error {
	conn, err := kafka.DialContext(ctx, "tcp", cfg.Brokers)
	if err != nil {
		return fmt.Errorf("failed to dial kafka: %w", err)
	}
	defer conn.Close()

	for _, topic := range topics {
		if err := createKafkaTopicIfNotExists(ctx, conn, topic, cfg.NumPartitions, cfg.ReplicationFactor, logger); err != nil {
			return fmt.Errorf("failed to ensure topic %s exists: %w", topic, err)
		}
	}
	return nil
}

// createKafkaTopicIfNotExists creates a topic if not found, retrying partition reads with backoff
func createKafkaTopicIfNotExists(ctx context.Context, conn TopicAdmin, topicName string, numPartitions int, replicationFactor int, log *slog.Logger) error {
	var partitions []kafka.Partition
	var err error

	log.Debug("Checking if Kafka topic exists", "topic", topicName)
	for i := 0; i < partitionReadAttempts; i++ {
		partitions, err = conn.ReadPartitions(topicName)
		if err == nil && len(partitions) > 0 {
			break
		}
		if i == partitionReadAttempts-1 {
			break
		}
		log.Warn("Failed to read partitions, retrying...", "topic", topicName, "attempt", i+1, "error", err)
		if sleepErr := backoff.SleepWithContext(ctx, backoff.Exponential(partitionReadDelay, i)); sleepErr != nil {
			return sleepErr
		}
	}

	if len(partitions) > 0 {
		log.Info("Kafka topic already exists", "topic", topicName, "partitions", len(partitions))
		return nil
	}

	topicConfig := kafka.TopicConfig{
		Topic:             topicName,
		NumPartitions:     numPartitions,
		ReplicationFactor: replicationFactor,
	}
	if topicConfig.NumPartitions <= 0 {
		topicConfig.NumPartitions = 1
	}
	if topicConfig.ReplicationFactor <= 0 {
		topicConfig.ReplicationFactor = 1
	}

	log.Info("Kafka topic does not exist, creating it", "topic", topicName, "last_read_error", err)
	if creationErr := conn.CreateTopics(topicConfig); creationErr != nil {
		return fmt.Errorf("failed to create kafka topic %s: %w", topicName, creationErr)
	}
	log.Info("Successfully created Kafka topic", "topic", topicName)
	return nil
}
