package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sarabank-saga/internal/api_gateway/service"
	"github.com/sarabank-saga/internal/domain/outbox"
)

// OperatorHandler exposes dead-lettered outbox messages and stalled sagas
type OperatorHandler struct {
	operatorService service.OperatorService
	logger          *slog.Logger
}

// NewOperatorHandler creates a new operator handler
func NewOperatorHandler(logger *slog.Logger, operatorService service.OperatorService) *OperatorHandler {
	return &OperatorHandler{
		operatorService: operatorService,
		logger:          logger,
	}
}

func (h *OperatorHandler) ListDeadLetters(c *gin.Context) {
	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters: "+err.Error())
		return
	}

	messages, total, err := h.operatorService.ListDeadLetters(c.Request.Context(), pagination.Page, pagination.PerPage)
	if err != nil {
		h.logger.Error("Failed to list dead letters", "error", err)
		RespondInternalError(c)
		return
	}

	response := make([]DeadLetterResponse, 0, len(messages))
	for _, m := range messages {
		response = append(response, mapDeadLetterToResponse(m))
	}
	RespondWithPaginatedData(c, http.StatusOK, response, pagination.Page, pagination.PerPage, int(total))
}

// Replay returns a dead-lettered message to the dispatch queue
func (h *OperatorHandler) Replay(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		RespondBadRequest(c, "Invalid outbox message ID")
		return
	}

	if err := h.operatorService.ReplayDeadLetter(c.Request.Context(), id); err != nil {
		var notFound outbox.ErrMessageNotFound
		var notParked outbox.ErrNotDeadLettered
		switch {
		case errors.As(err, &notFound):
			RespondNotFound(c, "Outbox message not found")
		case errors.As(err, &notParked):
			RespondConflict(c, notParked.Error())
		default:
			h.logger.Error("Failed to replay outbox message", "outbox_id", id, "error", err)
			RespondInternalError(c)
		}
		return
	}

	RespondAccepted(c, gin.H{"id": id, "status": "REQUEUED"})
}

func (h *OperatorHandler) ListStalledSagas(c *gin.Context) {
	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters: "+err.Error())
		return
	}

	sagas, err := h.operatorService.ListStalledSagas(c.Request.Context(), pagination.Page, pagination.PerPage)
	if err != nil {
		h.logger.Error("Failed to list stalled sagas", "error", err)
		RespondInternalError(c)
		return
	}

	response := make([]TransferResponse, 0, len(sagas))
	for _, s := range sagas {
		response = append(response, mapSagaToResponse(s, nil))
	}
	RespondOK(c, response)
}
