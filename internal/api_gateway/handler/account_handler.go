package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sarabank-saga/internal/api_gateway/service"
	"github.com/sarabank-saga/internal/domain/account"
	"github.com/sarabank-saga/internal/domain/events"
)

const movementAccepted = "ACCEPTED"

// AccountHandler handles HTTP requests for account operations
type AccountHandler struct {
	accountService service.AccountService
	logger         *slog.Logger
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(logger *slog.Logger, accountService service.AccountService) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
		logger:         logger,
	}
}

// GetByID retrieves an account by its ID, returning 404 if not found
func (h *AccountHandler) GetByID(c *gin.Context) {
	id, ok := parseUUIDParam(c, h.logger, "id", "Invalid account ID")
	if !ok {
		return
	}

	acc, err := h.accountService.GetAccountByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound{}) {
			RespondNotFound(c, "Account not found")
			return
		}
		h.logger.Error("Failed to get account", "id", id.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapAccountToResponse(acc))
}

// GetStatement lists ledger entries for an account, newest first
func (h *AccountHandler) GetStatement(c *gin.Context) {
	id, ok := parseUUIDParam(c, h.logger, "id", "Invalid account ID")
	if !ok {
		return
	}

	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters: "+err.Error())
		return
	}

	entries, total, err := h.accountService.GetStatement(c.Request.Context(), id, pagination.Page, pagination.PerPage)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound{}) {
			RespondNotFound(c, "Account not found")
			return
		}
		h.logger.Error("Failed to get statement", "account_id", id.String(), "error", err)
		RespondInternalError(c)
		return
	}

	response := make([]StatementEntryResponse, 0, len(entries))
	for _, e := range entries {
		response = append(response, mapEntryToResponse(e))
	}
	RespondWithPaginatedData(c, http.StatusOK, response, pagination.Page, pagination.PerPage, int(total))
}

// RequestMovement accepts a deposit or withdrawal for asynchronous processing
func (h *AccountHandler) RequestMovement(c *gin.Context) {
	id, ok := parseUUIDParam(c, h.logger, "id", "Invalid account ID")
	if !ok {
		return
	}

	var req MovementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	movementID, err := h.accountService.RequestMovement(c.Request.Context(), id, events.MovementType(req.Type), req.Amount, req.Description)
	if err != nil {
		var unsupported service.ErrUnsupportedMovement
		switch {
		case errors.Is(err, account.ErrAccountNotFound{}):
			RespondNotFound(c, "Account not found")
		case errors.Is(err, account.ErrInvalidAmount):
			RespondBadRequest(c, "Amount must be positive")
		case errors.As(err, &unsupported):
			RespondBadRequest(c, err.Error())
		default:
			h.logger.Error("Failed to request movement", "account_id", id.String(), "error", err)
			RespondInternalError(c)
		}
		return
	}

	RespondAccepted(c, MovementAcceptedResponse{
		MovementID: movementID.String(),
		AccountID:  id.String(),
		Status:     movementAccepted,
	})
}

// parseUUIDParam responds 400 and returns false when the path parameter is not a UUID
func parseUUIDParam(c *gin.Context, logger *slog.Logger, name, message string) (uuid.UUID, bool) {
	raw := c.Param(name)
	id, err := uuid.Parse(raw)
	if err != nil {
		logger.Warn("Invalid path parameter", "param", name, "value", raw, "error", err)
		RespondBadRequest(c, message)
		return uuid.Nil, false
	}
	return id, true
}
