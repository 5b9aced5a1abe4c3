package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// CorrelationIDHeader is echoed on every response
	CorrelationIDHeader = "X-Correlation-ID"

	// RequestIDHeader is the client idempotency key; it doubles as correlation id when no explicit one is sent
	RequestIDHeader = "X-Request-ID"

	// CorrelationIDKey is the gin context key
	CorrelationIDKey = "correlation_id"

	maxCorrelationIDLength = 128
)

// CorrelationID picks the request's trace id: the caller's correlation header,
// else its request id, else a fresh UUID. Ids that are too long or contain
// non-printable characters are replaced so they cannot forge log lines.
func CorrelationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationID := ""
		for _, header := range []string{CorrelationIDHeader, RequestIDHeader} {
			if candidate := c.GetHeader(header); validCorrelationID(candidate) {
				correlationID = candidate
				break
			}
		}
		if correlationID == "" {
			correlationID = uuid.NewString()
		}

		c.Header(CorrelationIDHeader, correlationID)
		c.Set(CorrelationIDKey, correlationID)

		c.Next()
	}
}

func validCorrelationID(id string) bool {
	if id == "" || len(id) > maxCorrelationIDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}

// GetCorrelationID returns the id set by CorrelationID, or "" outside that middleware
func GetCorrelationID(c *gin.Context) string {
	return c.GetString(CorrelationIDKey)
}
