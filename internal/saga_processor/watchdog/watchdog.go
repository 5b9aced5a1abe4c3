// Package watchdog flags sagas that stopped making progress.
package watchdog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sarabank-saga/internal/config"
	"github.com/sarabank-saga/internal/domain/saga"
	"github.com/sarabank-saga/internal/platform/metrics"
	"github.com/sarabank-saga/internal/saga_processor/service"
)

const auditStep = "watchdog"

// Watchdog periodically flags non-terminal sagas older than the stall threshold.
// Flagged sagas are surfaced to operators; nothing is rolled back automatically.
type Watchdog struct {
	sagas     saga.Repository
	auditor   service.Auditor
	logger    *slog.Logger
	interval  time.Duration
	threshold time.Duration
	batchSize int
	now       func() time.Time
}

// NewWatchdog builds a watchdog. auditor may be nil.
func NewWatchdog(cfg *config.SagaConfig, sagas saga.Repository, auditor service.Auditor, logger *slog.Logger) *Watchdog {
	return &Watchdog{
		sagas:     sagas,
		auditor:   auditor,
		logger:    logger,
		interval:  cfg.WatchdogInterval,
		threshold: cfg.StallThreshold,
		batchSize: cfg.WatchdogBatch,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Start scans until ctx is cancelled
func (w *Watchdog) Start(ctx context.Context) {
	w.logger.Info("Starting saga watchdog",
		"interval", w.interval.String(),
		"stall_threshold", w.threshold.String(),
	)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Saga watchdog stopping due to context cancellation.")
			return
		case <-ticker.C:
			if _, err := w.scan(ctx); err != nil {
				w.logger.Error("Saga watchdog scan failed", "error", err)
			}
		}
	}
}

// scan flags one batch of stalled sagas and returns how many were flagged
func (w *Watchdog) scan(ctx context.Context) (int, error) {
	now := w.now()
	stalled, err := w.sagas.FindStalled(ctx, now.Add(-w.threshold), w.batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to find stalled sagas: %w", err)
	}

	flagged := 0
	for _, s := range stalled {
		if err := w.sagas.MarkStalled(ctx, s.ID, now); err != nil {
			w.logger.Error("Failed to flag stalled saga", "saga_id", s.ID.String(), "error", err)
			continue
		}
		flagged++
		metrics.SagasStalled.WithLabelValues(string(s.State)).Inc()

		idle := now.Sub(s.UpdatedAt)
		w.logger.Error("Saga stalled",
			"saga_id", s.ID.String(),
			"state", string(s.State),
			"idle", idle.String(),
			"from_account_id", s.FromAccount.String(),
			"to_account_id", s.ToAccount.String(),
		)

		if w.auditor != nil {
			w.auditor.Record(ctx, &saga.AuditRecord{
				SagaID:     s.ID,
				Step:       auditStep,
				State:      s.State,
				Message:    "saga flagged as stalled",
				Details:    map[string]any{"idle_seconds": int64(idle.Seconds())},
				RecordedAt: now,
			})
		}
	}
	return flagged, nil
}
