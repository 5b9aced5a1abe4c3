package components

import (
	"context"
	"log/slog"

	"github.com/sarabank-saga/internal/domain/saga"
	"github.com/sarabank-saga/internal/saga_processor/service"
)

// TimelineAuditor appends step outcomes to the saga timeline in the document store.
// It runs after the ledger commit, so a failure here only loses an audit line.
type TimelineAuditor struct {
	repo   saga.AuditRepository
	logger *slog.Logger
}

func NewAuditor(repo saga.AuditRepository, logger *slog.Logger) service.Auditor {
	return &TimelineAuditor{
		repo:   repo,
		logger: logger,
	}
}

func (a *TimelineAuditor) Record(ctx context.Context, record *saga.AuditRecord) {
	if err := a.repo.Append(ctx, record); err != nil {
		a.logger.Warn("Failed to append saga audit record",
			"saga_id", record.SagaID.String(),
			"step", record.Step,
			"error", err,
		)
	}
}
