package handler

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sarabank-saga/internal/api_gateway/service"
	"github.com/sarabank-saga/internal/domain/account"
	"github.com/sarabank-saga/internal/domain/saga"
)

// TransferHandler handles HTTP requests for transfer sagas
type TransferHandler struct {
	transferService service.TransferService
	logger          *slog.Logger
}

// NewTransferHandler creates a new transfer handler
func NewTransferHandler(logger *slog.Logger, transferService service.TransferService) *TransferHandler {
	return &TransferHandler{
		transferService: transferService,
		logger:          logger,
	}
}

// Create starts a transfer saga. The response only reports acceptance; the outcome is asynchronous.
func (h *TransferHandler) Create(c *gin.Context) {
	var req CreateTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	from := uuid.MustParse(req.FromAccountID)
	to := uuid.MustParse(req.ToAccountID)

	sg, err := h.transferService.InitiateTransfer(c.Request.Context(), from, to, req.Amount)
	if err != nil {
		var notFound account.ErrAccountNotFound
		switch {
		case errors.As(err, &notFound):
			RespondUnprocessableEntity(c, "Account not found: "+notFound.AccountID.String())
		case errors.Is(err, account.ErrInvalidAmount):
			RespondBadRequest(c, "Amount must be positive")
		case errors.Is(err, service.ErrSameAccount):
			RespondBadRequest(c, err.Error())
		default:
			h.logger.Error("Failed to initiate transfer", "error", err)
			RespondInternalError(c)
		}
		return
	}

	RespondAccepted(c, mapSagaToResponse(sg, nil))
}

// GetByID returns the saga state and its timeline
func (h *TransferHandler) GetByID(c *gin.Context) {
	id, ok := parseUUIDParam(c, h.logger, "id", "Invalid transfer ID")
	if !ok {
		return
	}

	sg, timeline, err := h.transferService.GetTransfer(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, saga.ErrSagaNotFound{}) {
			RespondNotFound(c, "Transfer not found")
			return
		}
		h.logger.Error("Failed to get transfer", "saga_id", id.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapSagaToResponse(sg, timeline))
}
