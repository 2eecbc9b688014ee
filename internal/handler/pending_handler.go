package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/userflow-api/internal/models"
	"github.com/noah-isme/userflow-api/internal/service"
	appErrors "github.com/noah-isme/userflow-api/pkg/errors"
	"github.com/noah-isme/userflow-api/pkg/response"
)

type rowActions interface {
	Stage(ctx context.Context, session *models.Session, kind models.PendingKind, accountID string) (*models.PendingAction, *models.Account, error)
	Current(session *models.Session) (*models.PendingAction, bool)
	Cancel(session *models.Session)
	Confirm(ctx context.Context, session *models.Session, actor *models.Actor, edit *models.UpdateAccountRequest) (*models.PendingAction, service.Result)
}

// PendingHandler stages, confirms and cancels per-row actions.
type PendingHandler struct {
	actions rowActions
}

// NewPendingHandler constructs the handler.
func NewPendingHandler(actions rowActions) *PendingHandler {
	return &PendingHandler{actions: actions}
}

// Stage godoc
// @Summary Stage a row action
// @Description Stages edit, reset_password or delete for an account. A newly staged action replaces the previous one.
// @Tags Pending
// @Produce json
// @Param id path string true "Account ID"
// @Param kind path string true "edit, reset_password or delete"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /accounts/{id}/actions/{kind} [post]
func (h *PendingHandler) Stage(c *gin.Context) {
	kind, ok := models.ParsePendingKind(c.Param("kind"))
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown row action"))
		return
	}
	action, account, err := h.actions.Stage(c.Request.Context(), sessionFromContext(c), kind, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"action": action, "account": account}, nil)
}

// Current godoc
// @Summary Show the staged row action
// @Tags Pending
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /pending [get]
func (h *PendingHandler) Current(c *gin.Context) {
	action, ok := h.actions.Current(sessionFromContext(c))
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "No pending action"))
		return
	}
	response.JSON(c, http.StatusOK, action, nil)
}

// Confirm godoc
// @Summary Confirm the staged row action
// @Description Runs the staged action. An edit takes the changes as the request body.
// @Tags Pending
// @Accept json
// @Produce json
// @Param payload body models.UpdateAccountRequest false "Changes for a staged edit"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /pending/confirm [post]
func (h *PendingHandler) Confirm(c *gin.Context) {
	var edit *models.UpdateAccountRequest
	if c.Request.ContentLength > 0 {
		var req models.UpdateAccountRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, bindError(err, "invalid edit payload"))
			return
		}
		edit = &req
	}
	action, res := h.actions.Confirm(c.Request.Context(), sessionFromContext(c), actorFromContext(c), edit)
	if !res.OK {
		response.Error(c, res.Err())
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"action": action, "message": res.Message}, nil)
}

// Cancel godoc
// @Summary Drop the staged row action
// @Tags Pending
// @Success 204 {object} response.Envelope
// @Router /pending [delete]
func (h *PendingHandler) Cancel(c *gin.Context) {
	h.actions.Cancel(sessionFromContext(c))
	response.NoContent(c)
}
