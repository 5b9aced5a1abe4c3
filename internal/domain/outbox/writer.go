package outbox

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/sarabank-saga/internal/domain/events"
)

// Writer is the transactional outbox. Enqueue only accepts an open ledger
// transaction, so the message exists if and only if that transaction commits.
type Writer struct {
	repo   Repository
	topics events.TopicMap
}

// NewWriter binds the outbox repository to the injected topic map
func NewWriter(repo Repository, topics events.TopicMap) *Writer {
	return &Writer{
		repo:   repo,
		topics: topics,
	}
}

// Enqueue stages evt into tx. An unmapped event type aborts the transaction.
func (w *Writer) Enqueue(ctx context.Context, tx pgx.Tx, evt events.Event) (*Message, error) {
	topic, err := w.topics.Resolve(evt.EventType())
	if err != nil {
		return nil, err
	}

	msg, err := NewMessage(evt, topic)
	if err != nil {
		return nil, fmt.Errorf("failed to build outbox message for %s: %w", evt.EventType(), err)
	}

	if err := w.repo.WithTx(tx).Create(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}
