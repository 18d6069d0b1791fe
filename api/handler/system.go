package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ddevcap/mcu-rankings/store"
)

type SystemHandler struct {
	health *store.HealthChecker
}

func NewSystemHandler(health *store.HealthChecker) *SystemHandler {
	return &SystemHandler{health: health}
}

// HealthLive handles GET /health and always returns 200.
// Used as a liveness probe by container orchestrators.
func (h *SystemHandler) HealthLive(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// HealthReady handles GET /ready.
// Returns 503 while the store is considered unavailable by the health checker.
func (h *SystemHandler) HealthReady(c *gin.Context) {
	status := h.health.Status()
	if !status.Available {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "error": "store unreachable", "store": status})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "store": status})
}
