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

type dashboardService interface {
	Dashboard(ctx context.Context) (*dto.DashboardResponse, error)
}

// DashboardHandler wires dashboard service to HTTP endpoints.
type DashboardHandler struct {
	service dashboardService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service dashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Dashboard godoc
// @Summary Admin dashboard summary
// @Description Account stats, distributions, the ten most recent audit entries and the backend mode banner
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard [get]
func (h *DashboardHandler) Dashboard(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	start := time.Now()
	summary, err := h.service.Dashboard(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.StampElapsed(c, start)
	response.JSON(c, http.StatusOK, summary, nil, middleware.Meta(c))
}
