package handler

import (
	"time"

	"github.com/sarabank-saga/internal/domain/account"
	"github.com/sarabank-saga/internal/domain/ledger"
	"github.com/sarabank-saga/internal/domain/outbox"
	"github.com/sarabank-saga/internal/domain/saga"
	"github.com/sarabank-saga/internal/domain/user"
)

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}

func mapUserToResponse(u *user.User, acc *account.Account) UserResponse {
	return UserResponse{
		UserID:    u.ID.String(),
		AccountID: acc.ID.String(),
		Name:      u.Name,
		Email:     u.Email,
		CreatedAt: u.CreatedAt.Format(time.RFC3339),
	}
}

// mapAccountToResponse maps an account entity to an account response DTO
func mapAccountToResponse(acc *account.Account) AccountResponse {
	return AccountResponse{
		ID:        acc.ID.String(),
		OwnerID:   acc.OwnerID.String(),
		Balance:   acc.Balance.StringFixed(2),
		CreatedAt: acc.CreatedAt.Format(time.RFC3339),
		UpdatedAt: acc.UpdatedAt.Format(time.RFC3339),
	}
}

func mapEntryToResponse(e *ledger.Entry) StatementEntryResponse {
	resp := StatementEntryResponse{
		ID:        e.ID.String(),
		Kind:      string(e.Kind),
		Amount:    e.Amount.StringFixed(2),
		Reason:    e.Reason,
		CreatedAt: e.CreatedAt.Format(time.RFC3339),
	}
	if e.SagaID != nil {
		resp.CorrelationID = e.SagaID.String()
	}
	return resp
}

func mapSagaToResponse(s *saga.Saga, timeline []*saga.AuditRecord) TransferResponse {
	resp := TransferResponse{
		SagaID:        s.ID.String(),
		FromAccountID: s.FromAccount.String(),
		ToAccountID:   s.ToAccount.String(),
		Amount:        s.Amount.StringFixed(2),
		State:         string(s.State),
		Reason:        s.Reason,
		CreatedAt:     s.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     s.UpdatedAt.Format(time.RFC3339),
		StalledAt:     formatTime(s.StalledAt),
	}
	for _, r := range timeline {
		resp.Timeline = append(resp.Timeline, TimelineEntryResponse{
			Step:       r.Step,
			State:      string(r.State),
			EventType:  r.EventType,
			Message:    r.Message,
			Details:    r.Details,
			RecordedAt: r.RecordedAt.Format(time.RFC3339),
		})
	}
	return resp
}

func mapDeadLetterToResponse(m *outbox.Message) DeadLetterResponse {
	resp := DeadLetterResponse{
		ID:             m.ID,
		EventType:      string(m.EventType),
		Topic:          m.Topic,
		Attempts:       m.Attempts,
		LastError:      m.LastError,
		CreatedAt:      m.CreatedAt.Format(time.RFC3339),
		LastFailureAt:  formatTime(m.LastFailureAt),
		DeadLetteredAt: formatTime(m.DeadLetteredAt),
	}
	if m.SagaID != nil {
		resp.SagaID = m.SagaID.String()
	}
	return resp
}
