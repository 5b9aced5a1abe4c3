package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sarabank-saga/internal/api_gateway/middleware"
)

// Response is the envelope of every gateway reply. Exactly one of Data and Error is set.
type Response struct {
	Data          any        `json:"data,omitempty"`
	Error         *ErrorInfo `json:"error,omitempty"`
	CorrelationID string     `json:"correlation_id,omitempty"`
	Meta          *MetaInfo  `json:"meta,omitempty"`
}

// ErrorInfo carries a stable machine code and a human message
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MetaInfo describes the page returned by list endpoints
type MetaInfo struct {
	Page       int  `json:"page,omitempty"`
	PerPage    int  `json:"per_page,omitempty"`
	TotalPages int  `json:"total_pages,omitempty"`
	TotalItems int  `json:"total_items,omitempty"`
	HasNext    bool `json:"has_next"`
}

func newMeta(page, perPage, totalItems int) *MetaInfo {
	totalPages := totalItems / perPage
	if totalItems%perPage > 0 {
		totalPages++
	}
	return &MetaInfo{
		Page:       page,
		PerPage:    perPage,
		TotalPages: totalPages,
		TotalItems: totalItems,
		HasNext:    page < totalPages,
	}
}

func respond(c *gin.Context, statusCode int, response *Response) {
	response.CorrelationID = middleware.GetCorrelationID(c)
	c.JSON(statusCode, response)
}

// RespondWithData sends a JSON response with data
func RespondWithData(c *gin.Context, statusCode int, data any) {
	respond(c, statusCode, &Response{Data: data})
}

// RespondWithError sends a JSON response with an error
func RespondWithError(c *gin.Context, statusCode int, code, message string) {
	respond(c, statusCode, &Response{Error: &ErrorInfo{Code: code, Message: message}})
}

// RespondWithPaginatedData sends one page of a list
func RespondWithPaginatedData(c *gin.Context, statusCode int, data any, page, perPage, totalItems int) {
	respond(c, statusCode, &Response{Data: data, Meta: newMeta(page, perPage, totalItems)})
}

func RespondOK(c *gin.Context, data any) {
	RespondWithData(c, http.StatusOK, data)
}

func RespondCreated(c *gin.Context, data any) {
	RespondWithData(c, http.StatusCreated, data)
}

// RespondAccepted acknowledges a command whose effects happen asynchronously
func RespondAccepted(c *gin.Context, data any) {
	RespondWithData(c, http.StatusAccepted, data)
}

func RespondBadRequest(c *gin.Context, message string) {
	RespondWithError(c, http.StatusBadRequest, "BAD_REQUEST", message)
}

func RespondNotFound(c *gin.Context, message string) {
	if message == "" {
		message = "Resource not found"
	}
	RespondWithError(c, http.StatusNotFound, "NOT_FOUND", message)
}

// RespondConflict covers repeated request ids, duplicate documents and replays of live rows
func RespondConflict(c *gin.Context, message string) {
	RespondWithError(c, http.StatusConflict, "CONFLICT", message)
}

// RespondUnprocessableEntity is for well-formed commands that reference state that does not exist
func RespondUnprocessableEntity(c *gin.Context, message string) {
	RespondWithError(c, http.StatusUnprocessableEntity, "UNPROCESSABLE_ENTITY", message)
}

// RespondInternalError hides the cause; handlers log it before calling this
func RespondInternalError(c *gin.Context) {
	RespondWithError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "An internal server error occurred")
}
