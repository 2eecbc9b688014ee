package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/userflow-api/internal/dto"
	"github.com/noah-isme/userflow-api/internal/middleware"
	appErrors "github.com/noah-isme/userflow-api/pkg/errors"
	"github.com/noah-isme/userflow-api/pkg/response"
)

type analyticsService interface {
	Overview(ctx context.Context) (*dto.AnalyticsOverview, bool, error)
}

// AnalyticsHandler exposes dashboard-ready analytics endpoints.
type AnalyticsHandler struct {
	analytics analyticsService
}

// NewAnalyticsHandler constructs the analytics handler.
func NewAnalyticsHandler(analytics analyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

// Overview godoc
// @Summary Analytics overview
// @Description Daily activity series, role, status and department distributions and a system snapshot
// @Tags Analytics
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /analytics [get]
func (h *AnalyticsHandler) Overview(c *gin.Context) {
	if h.analytics == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	start := time.Now()
	overview, cacheHit, err := h.analytics.Overview(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	middleware.StampElapsed(c, start)
	response.JSON(c, http.StatusOK, overview, nil, middleware.Meta(c))
}
