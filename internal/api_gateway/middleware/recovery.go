package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
)

// Recovery turns a handler panic into a 500 carrying the request's correlation id.
// It wraps gin's recovery so broken client connections are still detected, and
// logs through slog instead of gin's writer.
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, recovered any) {
		correlationID := GetCorrelationID(c)

		logger.Error("Panic recovered",
			"error", recovered,
			"stack", string(debug.Stack()),
			"path", c.Request.URL.Path,
			"route", c.FullPath(),
			"method", c.Request.Method,
			"correlation_id", correlationID,
		)

		response := gin.H{
			"error": gin.H{
				"code":    "INTERNAL_SERVER_ERROR",
				"message": "An internal server error occurred",
			},
		}
		if correlationID != "" {
			response["correlation_id"] = correlationID
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, response)
	})
}
