package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthHandler reports process liveness and basic auth-subsystem stats.
type HealthHandler struct {
	startedAt time.Time
	stats     func() map[string]interface{}
}

// NewHealthHandler creates a health handler. stats may be nil.
func NewHealthHandler(stats func() map[string]interface{}) *HealthHandler {
	return &HealthHandler{
		startedAt: time.Now(),
		stats:     stats,
	}
}

// RegisterRoutes registers the health route.
func (h *HealthHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", h.Health)
}

// Health returns liveness information.
func (h *HealthHandler) Health(c *gin.Context) {
	payload := gin.H{
		"status": "ok",
		"uptime": time.Since(h.startedAt).String(),
	}
	if h.stats != nil {
		payload["auth"] = h.stats()
	}
	c.JSON(http.StatusOK, payload)
}
