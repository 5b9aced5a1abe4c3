package handler

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/sarabank-saga/internal/api_gateway/middleware"
	"github.com/sarabank-saga/internal/api_gateway/service"
	"github.com/sarabank-saga/internal/domain/account"
	"github.com/sarabank-saga/internal/domain/idempotency"
	"github.com/sarabank-saga/internal/domain/user"
)

// RequestIDHeader carries the client-generated id that makes registration retry-safe
const RequestIDHeader = middleware.RequestIDHeader

// UserHandler handles HTTP requests for user registration
type UserHandler struct {
	userService service.UserService
	logger      *slog.Logger
}

// NewUserHandler creates a new user handler
func NewUserHandler(logger *slog.Logger, userService service.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
		logger:      logger,
	}
}

// Register creates a user with an empty account; the initial balance arrives as a deposit
func (h *UserHandler) Register(c *gin.Context) {
	requestID := c.GetHeader(RequestIDHeader)
	if requestID == "" {
		RespondBadRequest(c, RequestIDHeader+" header is required")
		return
	}

	var req RegisterUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	reg, err := h.userService.Register(c.Request.Context(), requestID, service.RegisterUserInput{
		Name:           req.Name,
		CPF:            req.CPF,
		Email:          req.Email,
		InitialBalance: req.InitialBalance,
	})
	if err != nil {
		var duplicateCPF user.ErrDuplicateCPF
		switch {
		case errors.Is(err, idempotency.ErrAlreadyProcessed{}):
			RespondConflict(c, "Operation already processed")
		case errors.As(err, &duplicateCPF):
			RespondConflict(c, duplicateCPF.Error())
		case errors.Is(err, service.ErrMissingRequestID):
			RespondBadRequest(c, RequestIDHeader+" header is required")
		case errors.Is(err, account.ErrInvalidAmount):
			RespondBadRequest(c, "Initial balance cannot be negative")
		default:
			h.logger.Error("Failed to register user", "request_id", requestID, "error", err)
			RespondInternalError(c)
		}
		return
	}

	RespondCreated(c, mapUserToResponse(reg.User, reg.Account))
}
