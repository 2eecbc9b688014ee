package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/userflow-api/internal/middleware"
	"github.com/noah-isme/userflow-api/internal/models"
	"github.com/noah-isme/userflow-api/internal/service"
	appErrors "github.com/noah-isme/userflow-api/pkg/errors"
	"github.com/noah-isme/userflow-api/pkg/response"
)

type accountManager interface {
	ListAll(ctx context.Context) ([]models.Account, service.Result)
	GetProfile(ctx context.Context, id string) (*models.Account, service.Result)
	Create(ctx context.Context, actor *models.Actor, req models.CreateAccountRequest, opts ...service.MutationOption) (*models.Account, service.Result)
	Update(ctx context.Context, actor *models.Actor, id string, req models.UpdateAccountRequest, opts ...service.MutationOption) (*models.Account, service.Result)
	Delete(ctx context.Context, actor *models.Actor, id string, opts ...service.MutationOption) service.Result
	SendPasswordResetFor(ctx context.Context, actor *models.Actor, id string, opts ...service.MutationOption) service.Result
	ResetPassword(ctx context.Context, actor *models.Actor, id string, req models.ManualResetRequest) service.Result
	ComputeStats(ctx context.Context) (models.AccountStats, service.Result)
}

// AccountHandler handles account CRUD endpoints for administrators.
type AccountHandler struct {
	accounts accountManager
}

// NewAccountHandler creates a new account handler.
func NewAccountHandler(accounts accountManager) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// List godoc
// @Summary List accounts
// @Description Lists every account matching the search, role and status filters. There is no pagination.
// @Tags Accounts
// @Produce json
// @Param search query string false "Email or full name substring"
// @Param role query string false "Role filter (All keeps every role)"
// @Param status query string false "Status filter (All keeps every status)"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /accounts [get]
func (h *AccountHandler) List(c *gin.Context) {
	var query models.AccountQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, bindError(err, "invalid account filter"))
		return
	}
	all, res := h.accounts.ListAll(c.Request.Context())
	if !res.OK {
		response.Error(c, res.Err())
		return
	}
	filtered := service.FilterAccounts(all, query)
	meta := middleware.Meta(c)
	meta["total"] = len(all)
	meta["matched"] = len(filtered)
	response.JSON(c, http.StatusOK, filtered, nil, meta)
}

// Stats godoc
// @Summary Account statistics
// @Tags Accounts
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /accounts/stats [get]
func (h *AccountHandler) Stats(c *gin.Context) {
	stats, res := h.accounts.ComputeStats(c.Request.Context())
	respondResult(c, http.StatusOK, stats, res)
}

// Get godoc
// @Summary Get account
// @Tags Accounts
// @Produce json
// @Param id path string true "Account ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /accounts/{id} [get]
func (h *AccountHandler) Get(c *gin.Context) {
	account, res := h.accounts.GetProfile(c.Request.Context(), c.Param("id"))
	respondResult(c, http.StatusOK, account, res)
}

// Create godoc
// @Summary Create account
// @Tags Accounts
// @Accept json
// @Produce json
// @Param payload body models.CreateAccountRequest true "Account payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /accounts [post]
func (h *AccountHandler) Create(c *gin.Context) {
	var req models.CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid account payload"))
		return
	}
	account, res := h.accounts.Create(c.Request.Context(), actorFromContext(c), req)
	respondResult(c, http.StatusCreated, account, res)
}

// Update godoc
// @Summary Update account
// @Tags Accounts
// @Accept json
// @Produce json
// @Param id path string true "Account ID"
// @Param payload body models.UpdateAccountRequest true "Fields to change"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /accounts/{id} [patch]
func (h *AccountHandler) Update(c *gin.Context) {
	var req models.UpdateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid account payload"))
		return
	}
	account, res := h.accounts.Update(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	respondResult(c, http.StatusOK, account, res)
}

// Delete godoc
// @Summary Delete account
// @Tags Accounts
// @Param id path string true "Account ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /accounts/{id} [delete]
func (h *AccountHandler) Delete(c *gin.Context) {
	res := h.accounts.Delete(c.Request.Context(), actorFromContext(c), c.Param("id"))
	if !res.OK {
		response.Error(c, res.Err())
		return
	}
	response.NoContent(c)
}

// SendReset godoc
// @Summary Email a password reset link
// @Tags Accounts
// @Param id path string true "Account ID"
// @Success 202 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /accounts/{id}/password-reset [post]
func (h *AccountHandler) SendReset(c *gin.Context) {
	res := h.accounts.SendPasswordResetFor(c.Request.Context(), actorFromContext(c), c.Param("id"))
	respondResult(c, http.StatusAccepted, nil, res)
}

// SetPassword godoc
// @Summary Set a new password manually
// @Tags Accounts
// @Accept json
// @Produce json
// @Param id path string true "Account ID"
// @Param payload body models.ManualResetRequest true "New password"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /accounts/{id}/password [put]
func (h *AccountHandler) SetPassword(c *gin.Context) {
	var req models.ManualResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid password payload"))
		return
	}
	if c.Param("id") == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "account id required"))
		return
	}
	res := h.accounts.ResetPassword(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	respondResult(c, http.StatusOK, nil, res)
}
