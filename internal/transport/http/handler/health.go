package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"edurag/internal/ai"
	"edurag/internal/bootstrap"
	"edurag/internal/platform/database"
	"edurag/internal/platform/rabbitmq"
	redisClient "edurag/internal/platform/redis"
)

type HealthHandler struct {
	app *bootstrap.App
}

type dependencyStatus struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

func NewHealthHandler(app *bootstrap.App) *HealthHandler {
	return &HealthHandler{app: app}
}

// Check reports every dependency. Redis and RabbitMQ are listed only when
// configured.
func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	deps := gin.H{
		"database":  statusOf(database.Ping(ctx, h.app.DB)),
		"embedding": h.checkEmbedding(ctx),
	}
	if h.app.Redis != nil {
		deps["redis"] = statusOf(redisClient.Ping(ctx, h.app.Redis))
	}
	if h.app.MQConn != nil {
		deps["rabbitmq"] = statusOf(rabbitmq.Ping(h.app.MQConn))
	}

	statusCode := http.StatusOK
	for _, v := range deps {
		if !v.(dependencyStatus).OK {
			statusCode = http.StatusServiceUnavailable
			break
		}
	}

	c.JSON(statusCode, gin.H{
		"app":          h.app.Config.App.Name,
		"env":          h.app.Config.App.Env,
		"uptime_sec":   int(time.Since(h.app.StartedAt).Seconds()),
		"dependencies": deps,
	})
}

func (h *HealthHandler) checkEmbedding(ctx context.Context) dependencyStatus {
	err := ai.Ping(ctx, h.app.Provider)
	if errors.Is(err, ai.ErrPingUnsupported) {
		return dependencyStatus{OK: true, Message: "health check not supported"}
	}
	return statusOf(err)
}

func statusOf(err error) dependencyStatus {
	if err != nil {
		return dependencyStatus{OK: false, Message: err.Error()}
	}
	return dependencyStatus{OK: true}
}
