package outbox_dispatcher

import "context"

// Publisher writes one envelope to a topic
type Publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// DeadLetterPublisher mirrors parked outbox rows to the dead-letter topic
type DeadLetterPublisher interface {
	PublishToDLQ(ctx context.Context, key string, value []byte, reason string) error
}
