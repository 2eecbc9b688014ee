package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/userflow-api/internal/dto"
	"github.com/noah-isme/userflow-api/internal/models"
	"github.com/noah-isme/userflow-api/pkg/response"
)

type setupService interface {
	Status(ctx context.Context) (*dto.SetupStatus, error)
	RunBootstrap(ctx context.Context, actor *models.Actor) (*dto.BootstrapReport, error)
	SeedSampleUsers(ctx context.Context, actor *models.Actor) (*dto.SeedReport, error)
}

// SetupHandler exposes schema status, the bootstrap script and sample seeding.
type SetupHandler struct {
	setup setupService
}

// NewSetupHandler constructs the handler.
func NewSetupHandler(setup setupService) *SetupHandler {
	return &SetupHandler{setup: setup}
}

// Status godoc
// @Summary Backend setup status
// @Tags Setup
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /setup/status [get]
func (h *SetupHandler) Status(c *gin.Context) {
	status, err := h.setup.Status(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// Bootstrap godoc
// @Summary Run the schema bootstrap script
// @Description Executes every statement independently and reports how many succeeded. Unavailable in demo mode.
// @Tags Setup
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 501 {object} response.Envelope
// @Router /setup/bootstrap [post]
func (h *SetupHandler) Bootstrap(c *gin.Context) {
	report, err := h.setup.RunBootstrap(c.Request.Context(), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// SeedSamples godoc
// @Summary Create the sample users
// @Tags Setup
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /setup/seed [post]
func (h *SetupHandler) SeedSamples(c *gin.Context) {
	report, err := h.setup.SeedSampleUsers(c.Request.Context(), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}
