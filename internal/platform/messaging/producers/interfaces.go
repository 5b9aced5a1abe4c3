package producers

import (
	"context"

	"github.com/segmentio/kafka-go"
)

// KafkaWriter is the subset of *kafka.Writer the producers use
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// TopicAdmin is the subset of *kafka.Conn used to provision topics
type TopicAdmin interface {
	ReadPartitions(topics ...string) ([]kafka.Partition, error)
	CreateTopics(topics ...kafka.TopicConfig) error
}

var (
	_ KafkaWriter = (*kafka.Writer)(nil)
	_ TopicAdmin  = (*kafka.Conn)(nil)
)
