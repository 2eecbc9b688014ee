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

type authenticator interface {
	Authenticate(ctx context.Context, req models.SignInRequest, scope models.SignInScope) (*models.Account, service.Result)
	SendPasswordResetEmail(ctx context.Context, actor *models.Actor, email string, opts ...service.MutationOption) service.Result
	ConfirmPasswordReset(ctx context.Context, req models.ConfirmResetRequest, meta models.SessionMeta) service.Result
}

type auditWriter interface {
	Record(ctx context.Context, actor *models.Actor, action, target string, details models.AuditDetails, outcome models.AuditOutcome) bool
}

// AuthHandler wires sign-in, sign-out and the password reset flow.
type AuthHandler struct {
	accounts authenticator
	sessions *service.SessionService
	gate     *middleware.SessionGate
	recorder auditWriter
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(accounts authenticator, sessions *service.SessionService, gate *middleware.SessionGate, recorder auditWriter) *AuthHandler {
	return &AuthHandler{accounts: accounts, sessions: sessions, gate: gate, recorder: recorder}
}

// Login godoc
// @Summary Sign in to the admin dashboard
// @Description Authenticate an administrator by email and password. A TOTP code is required once two-factor is enabled.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.SignInRequest true "Credentials"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	h.signIn(c, models.ScopeAdmin)
}

// PortalLogin godoc
// @Summary Sign in to the self-service portal
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.SignInRequest true "Credentials"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/portal/login [post]
func (h *AuthHandler) PortalLogin(c *gin.Context) {
	h.signIn(c, models.ScopeAny)
}

func (h *AuthHandler) signIn(c *gin.Context, scope models.SignInScope) {
	var req models.SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid login payload"))
		return
	}
	req.IP = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	session, account, err := SignIn(c, h.accounts, h.sessions, h.gate, req, scope)
	if err != nil {
		response.Error(c, err)
		return
	}
	token, expiresAt, err := h.sessions.IssueToken(session)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, models.SignInResponse{AccessToken: token, ExpiresAt: expiresAt, Account: *account}, nil)
}

// SignIn authenticates req, opens a session and stores it in the cookie.
// Pages and the JSON API share it.
func SignIn(c *gin.Context, accounts authenticator, sessions *service.SessionService, gate *middleware.SessionGate, req models.SignInRequest, scope models.SignInScope) (*models.Session, *models.Account, error) {
	account, res := accounts.Authenticate(c.Request.Context(), req, scope)
	if !res.OK {
		return nil, nil, res.Err()
	}
	session, err := sessions.Start(c.Request.Context(), *account, models.SessionMeta{IPAddress: req.IP, UserAgent: req.UserAgent})
	if err != nil {
		return nil, nil, err
	}
	if gate != nil {
		if err := gate.Persist(c, session); err != nil {
			return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store session cookie")
		}
	}
	return session, account, nil
}

// Logout godoc
// @Summary Sign out
// @Description Ends the current session and clears the session cookie
// @Tags Authentication
// @Produce json
// @Success 204 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessionFromContext(c)
	if session == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	SignOut(c, h.sessions, h.gate, h.recorder, session)
	response.NoContent(c)
}

// SignOut records the logout, ends the session and forgets the cookie.
func SignOut(c *gin.Context, sessions *service.SessionService, gate *middleware.SessionGate, recorder auditWriter, session *models.Session) {
	actor := actorFromContext(c)
	accountID := session.AccountID
	sessions.End(c.Request.Context(), session)
	if recorder != nil {
		recorder.Record(c.Request.Context(), actor, models.AuditActionLogout, accountID, nil, models.OutcomeSuccess)
	}
	if gate != nil {
		gate.Forget(c)
	}
}

// Me godoc
// @Summary Current session
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/session [get]
func (h *AuthHandler) Me(c *gin.Context) {
	session := sessionFromContext(c)
	if session == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{
		"account_id": session.AccountID,
		"email":      session.Email,
		"full_name":  session.FullName,
		"role":       session.Role,
		"created_at": session.CreatedAt,
		"expires_at": h.sessions.ExpiresAt(session),
	}, nil)
}

// ForgotPassword godoc
// @Summary Request a password reset link
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.PasswordResetEmailRequest true "Email"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /auth/password/forgot [post]
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req models.PasswordResetEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid reset payload"))
		return
	}
	actor := &models.Actor{Email: req.Email, IPAddress: c.ClientIP(), UserAgent: c.GetHeader("User-Agent")}
	res := h.accounts.SendPasswordResetEmail(c.Request.Context(), actor, req.Email)
	respondResult(c, http.StatusAccepted, nil, res)
}

// ResetPassword godoc
// @Summary Complete a password reset
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.ConfirmResetRequest true "Token and new password"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /auth/password/reset [post]
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req models.ConfirmResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid reset payload"))
		return
	}
	res := h.accounts.ConfirmPasswordReset(c.Request.Context(), req, metaFromContext(c))
	respondResult(c, http.StatusOK, nil, res)
}
