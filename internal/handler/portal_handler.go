package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/userflow-api/internal/models"
	"github.com/noah-isme/userflow-api/internal/service"
	appErrors "github.com/noah-isme/userflow-api/pkg/errors"
	"github.com/noah-isme/userflow-api/pkg/response"
)

type portalService interface {
	SignUp(ctx context.Context, req models.SignUpRequest, meta models.SessionMeta) (*models.Account, service.Result)
	Profile(ctx context.Context, accountID string) (*models.Account, service.Result)
	UpdateProfile(ctx context.Context, actor *models.Actor, accountID string, req models.SelfProfileRequest) (*models.Account, service.Result)
	ChangePassword(ctx context.Context, actor *models.Actor, accountID string, req models.ChangePasswordRequest) service.Result
	Preferences(ctx context.Context, accountID string) (*models.Preferences, error)
	SavePreferences(ctx context.Context, actor *models.Actor, accountID string, prefs models.Preferences) (*models.Preferences, error)
	ExportOwnData(ctx context.Context, actor *models.Actor, accountID string) ([]byte, error)
}

type mfaService interface {
	Setup(ctx context.Context, accountID string) (*models.TOTPSetup, error)
	Enable(ctx context.Context, actor *models.Actor, accountID, code string) error
	Disable(ctx context.Context, actor *models.Actor, accountID, code string) error
}

// PortalHandler serves the self-service endpoints under /me. Every call acts
// on the signed-in account.
type PortalHandler struct {
	portal portalService
	mfa    mfaService
}

// NewPortalHandler constructs the handler.
func NewPortalHandler(portal portalService, mfa mfaService) *PortalHandler {
	return &PortalHandler{portal: portal, mfa: mfa}
}

func (h *PortalHandler) owner(c *gin.Context) (*models.Session, bool) {
	session := sessionFromContext(c)
	if session == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return nil, false
	}
	return session, true
}

// SignUp godoc
// @Summary Register a self-service account
// @Tags Portal
// @Accept json
// @Produce json
// @Param payload body models.SignUpRequest true "Registration"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /auth/signup [post]
func (h *PortalHandler) SignUp(c *gin.Context) {
	var req models.SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid sign-up payload"))
		return
	}
	account, res := h.portal.SignUp(c.Request.Context(), req, metaFromContext(c))
	respondResult(c, http.StatusCreated, account, res)
}

// Profile godoc
// @Summary Get own profile
// @Tags Portal
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /me [get]
func (h *PortalHandler) Profile(c *gin.Context) {
	session, ok := h.owner(c)
	if !ok {
		return
	}
	account, res := h.portal.Profile(c.Request.Context(), session.AccountID)
	respondResult(c, http.StatusOK, account, res)
}

// UpdateProfile godoc
// @Summary Update own profile
// @Description Role and status cannot be changed here.
// @Tags Portal
// @Accept json
// @Produce json
// @Param payload body models.SelfProfileRequest true "Profile fields"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /me [patch]
func (h *PortalHandler) UpdateProfile(c *gin.Context) {
	session, ok := h.owner(c)
	if !ok {
		return
	}
	var req models.SelfProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid profile payload"))
		return
	}
	account, res := h.portal.UpdateProfile(c.Request.Context(), actorFromContext(c), session.AccountID, req)
	respondResult(c, http.StatusOK, account, res)
}

// ChangePassword godoc
// @Summary Change own password
// @Tags Portal
// @Accept json
// @Produce json
// @Param payload body models.ChangePasswordRequest true "Old and new password"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /me/password [put]
func (h *PortalHandler) ChangePassword(c *gin.Context) {
	session, ok := h.owner(c)
	if !ok {
		return
	}
	var req models.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid password payload"))
		return
	}
	res := h.portal.ChangePassword(c.Request.Context(), actorFromContext(c), session.AccountID, req)
	respondResult(c, http.StatusOK, nil, res)
}

// Preferences godoc
// @Summary Get own preferences
// @Tags Portal
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /me/preferences [get]
func (h *PortalHandler) Preferences(c *gin.Context) {
	session, ok := h.owner(c)
	if !ok {
		return
	}
	prefs, err := h.portal.Preferences(c.Request.Context(), session.AccountID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, prefs, nil)
}

// SavePreferences godoc
// @Summary Save own preferences
// @Tags Portal
// @Accept json
// @Produce json
// @Param payload body models.Preferences true "Preferences"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /me/preferences [put]
func (h *PortalHandler) SavePreferences(c *gin.Context) {
	session, ok := h.owner(c)
	if !ok {
		return
	}
	var prefs models.Preferences
	if err := c.ShouldBindJSON(&prefs); err != nil {
		response.Error(c, bindError(err, "invalid preferences payload"))
		return
	}
	saved, err := h.portal.SavePreferences(c.Request.Context(), actorFromContext(c), session.AccountID, prefs)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, saved, nil)
}

// ExportOwnData godoc
// @Summary Download own data
// @Description Profile, preferences and activity as a JSON attachment
// @Tags Portal
// @Produce json
// @Success 200 {file} file
// @Router /me/export [get]
func (h *PortalHandler) ExportOwnData(c *gin.Context) {
	session, ok := h.owner(c)
	if !ok {
		return
	}
	payload, err := h.portal.ExportOwnData(c.Request.Context(), actorFromContext(c), session.AccountID)
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := fmt.Sprintf("my_data_%s.json", time.Now().UTC().Format("20060102_150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "application/json", payload)
}

// SetupTOTP godoc
// @Summary Start two-factor setup
// @Description Generates a secret and QR code. Two-factor stays off until a code is verified.
// @Tags Portal
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /me/2fa/setup [post]
func (h *PortalHandler) SetupTOTP(c *gin.Context) {
	session, ok := h.owner(c)
	if !ok {
		return
	}
	setup, err := h.mfa.Setup(c.Request.Context(), session.AccountID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, setup, nil)
}

// EnableTOTP godoc
// @Summary Enable two-factor
// @Tags Portal
// @Accept json
// @Produce json
// @Param payload body models.TOTPCodeRequest true "Authenticator code"
// @Success 204 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /me/2fa/enable [post]
func (h *PortalHandler) EnableTOTP(c *gin.Context) {
	h.totpChange(c, h.mfa.Enable)
}

// DisableTOTP godoc
// @Summary Disable two-factor
// @Tags Portal
// @Accept json
// @Produce json
// @Param payload body models.TOTPCodeRequest true "Authenticator code"
// @Success 204 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /me/2fa/disable [post]
func (h *PortalHandler) DisableTOTP(c *gin.Context) {
	h.totpChange(c, h.mfa.Disable)
}

func (h *PortalHandler) totpChange(c *gin.Context, apply func(context.Context, *models.Actor, string, string) error) {
	session, ok := h.owner(c)
	if !ok {
		return
	}
	var req models.TOTPCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid code payload"))
		return
	}
	if err := apply(c.Request.Context(), actorFromContext(c), session.AccountID, req.Code); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
