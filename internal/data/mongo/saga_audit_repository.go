package mongo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sarabank-saga/internal/domain/saga"
)

const (
	// SagaAuditCollectionName is the name of the saga timeline collection in MongoDB
	SagaAuditCollectionName = "saga_audit"
)

// auditDocument is the stored shape of a timeline record; ids are kept as strings
type auditDocument struct {
	SagaID     string         `bson:"saga_id"`
	Step       string         `bson:"step"`
	State      string         `bson:"state"`
	EventType  string         `bson:"event_type,omitempty"`
	Message    string         `bson:"message"`
	Details    map[string]any `bson:"details,omitempty"`
	RecordedAt time.Time      `bson:"recorded_at"`
}

// SagaAuditRepository implements the saga.AuditRepository interface for MongoDB
type SagaAuditRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewSagaAuditRepository creates a new MongoDB saga audit repository
func NewSagaAuditRepository(logger *slog.Logger, db *mongo.Database) *SagaAuditRepository {
	return &SagaAuditRepository{
		db:     db,
		logger: logger,
	}
}

// EnsureIndexes creates the lookup index used by ListBySaga
func (r *SagaAuditRepository) EnsureIndexes(ctx context.Context) error {
	collection := r.db.Collection(SagaAuditCollectionName)

	_, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "saga_id", Value: 1}, {Key: "recorded_at", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create saga audit index: %w", err)
	}
	return nil
}

// Append stores one timeline record
func (r *SagaAuditRepository) Append(ctx context.Context, record *saga.AuditRecord) error {
	collection := r.db.Collection(SagaAuditCollectionName)

	if record.RecordedAt.IsZero() {
		record.RecordedAt = time.Now().UTC()
	}
	doc := auditDocument{
		SagaID:     record.SagaID.String(),
		Step:       record.Step,
		State:      string(record.State),
		EventType:  record.EventType,
		Message:    record.Message,
		Details:    record.Details,
		RecordedAt: record.RecordedAt,
	}

	if _, err := collection.InsertOne(ctx, doc); err != nil {
		r.logger.Error("Failed to append saga audit record",
			"saga_id", record.SagaID.String(),
			"step", record.Step,
			"error", err)
		return fmt.Errorf("failed to append saga audit record: %w", err)
	}

	return nil
}

// ListBySaga returns the timeline of a saga, oldest first
func (r *SagaAuditRepository) ListBySaga(ctx context.Context, sagaID uuid.UUID) ([]*saga.AuditRecord, error) {
	collection := r.db.Collection(SagaAuditCollectionName)

	filter := bson.M{"saga_id": sagaID.String()}
	opts := options.Find().SetSort(bson.D{{Key: "recorded_at", Value: 1}})

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to get saga audit records",
			"saga_id", sagaID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get saga audit records: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []auditDocument
	if err := cursor.All(ctx, &docs); err != nil {
		r.logger.Error("Failed to decode saga audit records",
			"saga_id", sagaID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to decode saga audit records: %w", err)
	}

	records := make([]*saga.AuditRecord, 0, len(docs))
	for _, doc := range docs {
		records = append(records, &saga.AuditRecord{
			SagaID:     sagaID,
			Step:       doc.Step,
			State:      saga.State(doc.State),
			EventType:  doc.EventType,
			Message:    doc.Message,
			Details:    doc.Details,
			RecordedAt: doc.RecordedAt,
		})
	}

	return records, nil
}
