package api_gateway

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sarabank-saga/internal/api_gateway/handler"
	"github.com/sarabank-saga/internal/api_gateway/middleware"
)

type handlers struct {
	users     *handler.UserHandler
	accounts  *handler.AccountHandler
	transfers *handler.TransferHandler
	operator  *handler.OperatorHandler
}

// setupRouter configures API routes and middleware for the application
func setupRouter(logger *slog.Logger, r *gin.Engine, h handlers, checks map[string]func(ctx context.Context) error) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CorrelationID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics())

	v1 := r.Group("/api/v1")
	{
		v1.POST("/users", h.users.Register)

		accounts := v1.Group("/accounts")
		{
			accounts.GET("/:id", h.accounts.GetByID)
			accounts.GET("/:id/statement", h.accounts.GetStatement)
			accounts.POST("/:id/movements", h.accounts.RequestMovement)
		}

		transfers := v1.Group("/transfers")
		{
			transfers.POST("", h.transfers.Create)
			transfers.GET("/:id", h.transfers.GetByID)
		}

		operator := v1.Group("/operator")
		{
			operator.GET("/outbox/dead-letters", h.operator.ListDeadLetters)
			operator.POST("/outbox/:id/replay", h.operator.Replay)
			operator.GET("/sagas/stalled", h.operator.ListStalledSagas)
		}
	}

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/health", healthHandler(logger, checks))
}

const healthCheckTimeout = 2 * time.Second

// healthHandler reports 503 when any dependency probe fails
func healthHandler(logger *slog.Logger, checks map[string]func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
		defer cancel()

		status := http.StatusOK
		dependencies := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				logger.Warn("Health check failed", "dependency", name, "error", err)
				dependencies[name] = "down"
				status = http.StatusServiceUnavailable
				continue
			}
			dependencies[name] = "up"
		}

		overall := "ok"
		if status != http.StatusOK {
			overall = "degraded"
		}
		c.JSON(status, gin.H{"status": overall, "dependencies": dependencies, "timestamp": time.Now().UTC()})
	}
}
