package components

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sarabank-saga/internal/domain/ledger"
	"github.com/sarabank-saga/internal/saga_processor/service"
)

// LedgerIdempotencyGuard uses the ledger entries themselves as the idempotency witness
type LedgerIdempotencyGuard struct {
	ledgerRepo ledger.Repository
}

func NewIdempotencyGuard(ledgerRepo ledger.Repository) service.IdempotencyGuard {
	return &LedgerIdempotencyGuard{ledgerRepo: ledgerRepo}
}

// AlreadyApplied checks for an entry of kind tagged with correlationID inside tx
func (g *LedgerIdempotencyGuard) AlreadyApplied(ctx context.Context, tx pgx.Tx, correlationID uuid.UUID, kind ledger.Kind) (bool, error) {
	exists, err := g.ledgerRepo.WithTx(tx).ExistsForSaga(ctx, correlationID, kind)
	if err != nil {
		return false, fmt.Errorf("failed to check %s idempotency for %s: %w", kind, correlationID, err)
	}
	return exists, nil
}
