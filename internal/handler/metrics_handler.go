package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/userflow-api/internal/backend"
	"github.com/noah-isme/userflow-api/internal/service"
)

type pinger interface {
	Ping(ctx context.Context) error
	Mode() backend.Mode
}

// MetricsHandler exposes observability endpoints.
type MetricsHandler struct {
	metrics *service.MetricsService
	backend pinger
}

// NewMetricsHandler constructs a metrics handler.
func NewMetricsHandler(metrics *service.MetricsService, backend pinger) *MetricsHandler {
	return &MetricsHandler{metrics: metrics, backend: backend}
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Health responds with a generic OK payload for readiness/liveness usage.
func (h *MetricsHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready reports whether the selected backend answers.
func (h *MetricsHandler) Ready(c *gin.Context) {
	if h.backend == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	if err := h.backend.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "mode": h.backend.Mode(), "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "mode": h.backend.Mode()})
}
