package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/userflow-api/internal/dto"
	"github.com/noah-isme/userflow-api/internal/models"
	"github.com/noah-isme/userflow-api/internal/service"
	"github.com/noah-isme/userflow-api/pkg/response"
)

type auditViewer interface {
	List(ctx context.Context, filter models.AuditFilter) (*service.AuditView, error)
	ForAccount(ctx context.Context, accountID string) ([]models.AuditLogEntry, error)
	Clean(ctx context.Context, actor *models.Actor, days int) (int64, error)
}

// AuditHandler serves the audit viewer and the manual cleanup action.
type AuditHandler struct {
	audits auditViewer
}

// NewAuditHandler constructs the handler.
func NewAuditHandler(audits auditViewer) *AuditHandler {
	return &AuditHandler{audits: audits}
}

// List godoc
// @Summary List audit entries
// @Tags Audit
// @Produce json
// @Param period query string false "today, 7d, 30d, 90d or all"
// @Param action query string false "Action name (All keeps every action)"
// @Param actor query string false "Actor email substring"
// @Param search query string false "Matches target, action and details"
// @Success 200 {object} response.Envelope
// @Router /audit [get]
func (h *AuditHandler) List(c *gin.Context) {
	var filter models.AuditFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, bindError(err, "invalid audit filter"))
		return
	}
	view, err := h.audits.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// ForAccount godoc
// @Summary Activity for one account
// @Tags Audit
// @Produce json
// @Param id path string true "Account ID"
// @Success 200 {object} response.Envelope
// @Router /accounts/{id}/activity [get]
func (h *AuditHandler) ForAccount(c *gin.Context) {
	entries, err := h.audits.ForAccount(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// Clean godoc
// @Summary Delete old audit entries
// @Tags Audit
// @Accept json
// @Produce json
// @Param payload body dto.CleanAuditRequest true "Age threshold in days"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /audit/clean [post]
func (h *AuditHandler) Clean(c *gin.Context) {
	var req dto.CleanAuditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid cleanup payload"))
		return
	}
	removed, err := h.audits.Clean(c.Request.Context(), actorFromContext(c), req.Days)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"removed": removed, "days": req.Days}, nil)
}
