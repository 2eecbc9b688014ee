package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/userflow-api/internal/dto"
	"github.com/noah-isme/userflow-api/internal/middleware"
	"github.com/noah-isme/userflow-api/internal/models"
	"github.com/noah-isme/userflow-api/internal/service"
	appErrors "github.com/noah-isme/userflow-api/pkg/errors"
)

type pageAccounts interface {
	accountManager
	authenticator
}

// PageChrome is rendered on every page.
type PageChrome struct {
	Title  string
	Icon   string
	Layout string
	Banner string
}

// PageDeps collects what the HTML pages call into.
type PageDeps struct {
	Chrome    PageChrome
	Accounts  pageAccounts
	Bulk      bulkDispatcher
	Rows      rowActions
	Audits    auditViewer
	Dashboard dashboardService
	Analytics analyticsService
	Setup     setupService
	Portal    portalService
	MFA       mfaService
	Exports   exportJobs
	Sessions  *service.SessionService
	Gate      *middleware.SessionGate
	Recorder  auditWriter
}

// PageHandler renders the server-side dashboard. Every mutation redirects
// back with a flash message carrying the fail-soft result.
type PageHandler struct {
	deps PageDeps
}

// NewPageHandler constructs the page handler.
func NewPageHandler(deps PageDeps) *PageHandler {
	return &PageHandler{deps: deps}
}

func (h *PageHandler) view(c *gin.Context, page string, extra gin.H) gin.H {
	data := gin.H{
		"Page":    page,
		"Chrome":  h.deps.Chrome,
		"Session": sessionFromContext(c),
		"Flashes": h.deps.Gate.Flashes(c),
	}
	for k, v := range extra {
		data[k] = v
	}
	return data
}

func (h *PageHandler) render(c *gin.Context, status int, name, page string, extra gin.H) {
	c.Header("Cache-Control", "no-store")
	c.HTML(status, name, h.view(c, page, extra))
}

func (h *PageHandler) renderError(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	h.render(c, appErr.Status, "error", appErr.Message, nil)
}

func (h *PageHandler) flash(c *gin.Context, message string) {
	if message != "" {
		h.deps.Gate.AddFlash(c, message)
	}
}

func (h *PageHandler) flashResult(c *gin.Context, res service.Result) {
	message := res.Message
	if !res.OK && len(res.Details) > 0 {
		message = message + ": " + strings.Join(res.Details, "; ")
	}
	h.flash(c, message)
}

func (h *PageHandler) flashError(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	message := appErr.Message
	if len(appErr.Details) > 0 {
		message = message + ": " + strings.Join(appErr.Details, "; ")
	}
	h.flash(c, message)
}

func redirect(c *gin.Context, location string) {
	c.Redirect(http.StatusSeeOther, location)
}

// AdminOnly sends signed-in non-admins to their own account page.
func (h *PageHandler) AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessionFromContext(c)
		if session == nil || session.Role != models.RoleAdmin {
			h.flash(c, "Access denied: administrator privileges required")
			redirect(c, "/me")
			c.Abort()
			return
		}
		c.Next()
	}
}

// LoginForm shows the credential form.
func (h *PageHandler) LoginForm(c *gin.Context) {
	if session := h.deps.Gate.Current(c); session != nil {
		redirect(c, landingFor(session.Role))
		return
	}
	h.render(c, http.StatusOK, "login", "Sign in", gin.H{"Expired": c.Query("expired") == "1"})
}

// Login authenticates the form and opens a session.
func (h *PageHandler) Login(c *gin.Context) {
	var req models.SignInRequest
	if err := c.ShouldBind(&req); err != nil {
		h.render(c, http.StatusBadRequest, "login", "Sign in", gin.H{"Error": "Email and password are required"})
		return
	}
	req.IP = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	session, _, err := SignIn(c, h.deps.Accounts, h.deps.Sessions, h.deps.Gate, req, models.ScopeAny)
	if err != nil {
		appErr := appErrors.FromError(err)
		h.render(c, appErr.Status, "login", "Sign in", gin.H{"Error": appErr.Message, "Details": appErr.Details, "Email": req.Email})
		return
	}
	redirect(c, landingFor(session.Role))
}

func landingFor(role models.AccountRole) string {
	if role == models.RoleAdmin {
		return "/"
	}
	return "/me"
}

// Logout ends the session.
func (h *PageHandler) Logout(c *gin.Context) {
	if session := h.deps.Gate.Current(c); session != nil {
		c.Set(middleware.ContextSessionKey, session)
		SignOut(c, h.deps.Sessions, h.deps.Gate, h.deps.Recorder, session)
	}
	redirect(c, "/login")
}

// ForgotPassword emails a reset link.
func (h *PageHandler) ForgotPassword(c *gin.Context) {
	var req models.PasswordResetEmailRequest
	_ = c.ShouldBind(&req)
	actor := &models.Actor{Email: req.Email, IPAddress: c.ClientIP(), UserAgent: c.GetHeader("User-Agent")}
	h.flashResult(c, h.deps.Accounts.SendPasswordResetEmail(c.Request.Context(), actor, req.Email))
	redirect(c, "/login")
}

// ResetForm shows the new-password form for an emailed token.
func (h *PageHandler) ResetForm(c *gin.Context) {
	h.render(c, http.StatusOK, "reset", "Reset password", gin.H{"Token": c.Query("token")})
}

// ResetPassword completes the emailed reset.
func (h *PageHandler) ResetPassword(c *gin.Context) {
	var req models.ConfirmResetRequest
	_ = c.ShouldBind(&req)
	res := h.deps.Accounts.ConfirmPasswordReset(c.Request.Context(), req, metaFromContext(c))
	if !res.OK {
		h.render(c, http.StatusBadRequest, "reset", "Reset password", gin.H{"Token": req.Token, "Error": res.Message, "Details": res.Details})
		return
	}
	h.flash(c, res.Message)
	redirect(c, "/login")
}

// SignUp registers a self-service account.
func (h *PageHandler) SignUp(c *gin.Context) {
	var req models.SignUpRequest
	_ = c.ShouldBind(&req)
	_, res := h.deps.Portal.SignUp(c.Request.Context(), req, metaFromContext(c))
	h.flashResult(c, res)
	redirect(c, "/login")
}

// Home renders the admin dashboard.
func (h *PageHandler) Home(c *gin.Context) {
	dash, err := h.deps.Dashboard.Dashboard(c.Request.Context())
	if err != nil {
		h.renderError(c, err)
		return
	}
	h.render(c, http.StatusOK, "dashboard", "Dashboard", gin.H{"Dashboard": dash})
}

type pendingView struct {
	Action  *models.PendingAction
	Account *models.Account
}

// Users renders the filtered account list.
func (h *PageHandler) Users(c *gin.Context) {
	var query models.AccountQuery
	_ = c.ShouldBindQuery(&query)
	h.renderUsers(c, query, nil)
}

func (h *PageHandler) renderUsers(c *gin.Context, query models.AccountQuery, report *models.BulkReport) {
	ctx := c.Request.Context()
	all, res := h.deps.Accounts.ListAll(ctx)
	if !res.OK {
		h.renderError(c, res.Err())
		return
	}
	data := gin.H{
		"Query":    query,
		"Accounts": service.FilterAccounts(all, query),
		"Total":    len(all),
		"Report":   report,
	}
	if action, ok := h.deps.Rows.Current(sessionFromContext(c)); ok {
		if account, res := h.deps.Accounts.GetProfile(ctx, action.AccountID); res.OK {
			data["Pending"] = &pendingView{Action: action, Account: account}
		}
	}
	h.render(c, http.StatusOK, "users", "Users", data)
}

// StageAction stages a row trigger.
func (h *PageHandler) StageAction(c *gin.Context) {
	kind, ok := models.ParsePendingKind(c.Param("kind"))
	if !ok {
		h.flash(c, "Unknown action")
		redirect(c, "/users")
		return
	}
	id := c.Param("id")
	if _, _, err := h.deps.Rows.Stage(c.Request.Context(), sessionFromContext(c), kind, id); err != nil {
		h.flashError(c, err)
		redirect(c, "/users")
		return
	}
	if kind == models.PendingEdit {
		redirect(c, "/users/"+id+"/edit")
		return
	}
	redirect(c, "/users")
}

// ConfirmPending runs the staged delete or password reset.
func (h *PageHandler) ConfirmPending(c *gin.Context) {
	action, res := h.deps.Rows.Confirm(c.Request.Context(), sessionFromContext(c), actorFromContext(c), nil)
	h.flashResult(c, res)
	if action != nil && action.Kind == models.PendingEdit && !res.OK {
		redirect(c, "/users/"+action.AccountID+"/edit")
		return
	}
	redirect(c, "/users")
}

// CancelPending drops the staged action.
func (h *PageHandler) CancelPending(c *gin.Context) {
	h.deps.Rows.Cancel(sessionFromContext(c))
	redirect(c, "/users")
}

// Bulk applies the selected operation and shows the per-item report.
func (h *PageHandler) Bulk(c *gin.Context) {
	var req models.BulkRequest
	_ = c.ShouldBind(&req)
	report, err := h.deps.Bulk.Dispatch(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		h.flashError(c, err)
		redirect(c, "/users")
		return
	}
	h.renderUsers(c, models.AccountQuery{}, &report)
}

// accountForm mirrors the user form. Edits send only the fields that differ.
type accountForm struct {
	Email      string `form:"email"`
	FullName   string `form:"full_name"`
	Role       string `form:"role"`
	Status     string `form:"status"`
	Phone      string `form:"phone"`
	Department string `form:"department"`
	JobTitle   string `form:"job_title"`
	Bio        string `form:"bio"`
	Location   string `form:"location"`
	Website    string `form:"website"`
}

func (f accountForm) diff(current *models.Account) models.UpdateAccountRequest {
	var req models.UpdateAccountRequest
	changed := func(next, prev string) *string {
		next = strings.TrimSpace(next)
		if next == prev {
			return nil
		}
		return &next
	}
	req.Email = changed(strings.ToLower(f.Email), current.Email)
	req.FullName = changed(f.FullName, current.FullName)
	req.Phone = changed(f.Phone, current.Phone)
	req.Department = changed(f.Department, current.Department)
	req.JobTitle = changed(f.JobTitle, current.JobTitle)
	req.Bio = changed(f.Bio, current.Bio)
	req.Location = changed(f.Location, current.Location)
	req.Website = changed(f.Website, current.Website)
	if role := models.AccountRole(f.Role); f.Role != "" && role != current.Role {
		req.Role = &role
	}
	if status := models.AccountStatus(f.Status); f.Status != "" && status != current.Status {
		req.Status = &status
	}
	return req
}

// NewUserForm shows an empty user form.
func (h *PageHandler) NewUserForm(c *gin.Context) {
	h.render(c, http.StatusOK, "user_form", "New user", gin.H{"Account": &models.Account{Role: models.RoleUser, Status: models.StatusActive}})
}

// CreateUser submits the new user form.
func (h *PageHandler) CreateUser(c *gin.Context) {
	var req models.CreateAccountRequest
	_ = c.ShouldBind(&req)
	account, res := h.deps.Accounts.Create(c.Request.Context(), actorFromContext(c), req)
	if !res.OK {
		draft := &models.Account{Email: req.Email, FullName: req.FullName, Role: req.Role, Status: req.Status,
			Phone: req.Phone, Department: req.Department, JobTitle: req.JobTitle, Bio: req.Bio, Location: req.Location, Website: req.Website}
		h.render(c, appErrors.FromError(res.Err()).Status, "user_form", "New user", gin.H{"Account": draft, "Error": res.Message, "Details": res.Details})
		return
	}
	h.flash(c, fmt.Sprintf("User %s created", account.Email))
	redirect(c, "/users")
}

// EditUserForm shows the edit form with the account's activity.
func (h *PageHandler) EditUserForm(c *gin.Context) {
	ctx := c.Request.Context()
	account, res := h.deps.Accounts.GetProfile(ctx, c.Param("id"))
	if !res.OK {
		h.renderError(c, res.Err())
		return
	}
	activity, _ := h.deps.Audits.ForAccount(ctx, account.ID)
	h.render(c, http.StatusOK, "user_form", "Edit user", gin.H{"Account": account, "Activity": activity})
}

// EditUser confirms a staged edit, or applies the edit directly when none
// is staged for this account.
func (h *PageHandler) EditUser(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	current, res := h.deps.Accounts.GetProfile(ctx, id)
	if !res.OK {
		h.renderError(c, res.Err())
		return
	}
	var form accountForm
	_ = c.ShouldBind(&form)
	edit := form.diff(current)

	session := sessionFromContext(c)
	if staged, ok := h.deps.Rows.Current(session); ok && staged.Kind == models.PendingEdit && staged.AccountID == id {
		_, res = h.deps.Rows.Confirm(ctx, session, actorFromContext(c), &edit)
	} else {
		_, res = h.deps.Accounts.Update(ctx, actorFromContext(c), id, edit)
	}
	if !res.OK {
		h.render(c, http.StatusOK, "user_form", "Edit user", gin.H{"Account": current, "Error": res.Message, "Details": res.Details})
		return
	}
	h.flashResult(c, res)
	redirect(c, "/users")
}

// ExportUsers queues a CSV export of the filtered list.
func (h *PageHandler) ExportUsers(c *gin.Context) {
	var query models.AccountQuery
	_ = c.ShouldBind(&query)
	h.queueExport(c, models.ExportRequest{Kind: models.ExportKindAccounts, Format: models.ExportFormatCSV, AccountQuery: query})
}

func (h *PageHandler) queueExport(c *gin.Context, req models.ExportRequest) {
	if h.deps.Exports == nil {
		h.flash(c, "Exports are disabled")
		redirect(c, "/settings")
		return
	}
	job, err := h.deps.Exports.CreateJob(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		h.flashError(c, err)
		redirect(c, "/settings")
		return
	}
	h.deps.Gate.RememberExport(c, job.ID)
	h.flash(c, "Export queued")
	redirect(c, "/settings")
}

// Audit renders the audit viewer.
func (h *PageHandler) Audit(c *gin.Context) {
	var filter models.AuditFilter
	_ = c.ShouldBindQuery(&filter)
	if filter.Period == "" {
		filter.Period = models.Period7Days
	}
	view, err := h.deps.Audits.List(c.Request.Context(), filter)
	if err != nil {
		h.renderError(c, err)
		return
	}
	h.render(c, http.StatusOK, "audit", "Audit log", gin.H{"Filter": filter, "View": view})
}

// Analytics renders the analytics page.
func (h *PageHandler) Analytics(c *gin.Context) {
	if h.deps.Analytics == nil {
		h.renderError(c, appErrors.Clone(appErrors.ErrNotFound, "Analytics are not enabled"))
		return
	}
	overview, _, err := h.deps.Analytics.Overview(c.Request.Context())
	if err != nil {
		h.renderError(c, err)
		return
	}
	h.render(c, http.StatusOK, "analytics", "Analytics", gin.H{"Overview": overview})
}

// Settings renders backend status, maintenance actions and recent exports.
func (h *PageHandler) Settings(c *gin.Context) {
	status, err := h.deps.Setup.Status(c.Request.Context())
	if err != nil {
		h.renderError(c, err)
		return
	}
	var jobs []*dto.ExportStatusResponse
	for _, id := range h.deps.Gate.Exports(c) {
		if h.deps.Exports == nil {
			break
		}
		if job, err := h.deps.Exports.GetStatus(id); err == nil {
			jobs = append(jobs, job)
		}
	}
	h.render(c, http.StatusOK, "settings", "Settings", gin.H{"Status": status, "Jobs": jobs})
}

// RunBootstrap runs the schema script from the settings page.
func (h *PageHandler) RunBootstrap(c *gin.Context) {
	report, err := h.deps.Setup.RunBootstrap(c.Request.Context(), actorFromContext(c))
	if err != nil {
		h.flashError(c, err)
	} else {
		h.flash(c, report.Message)
	}
	redirect(c, "/settings")
}

// SeedSamples creates the sample users.
func (h *PageHandler) SeedSamples(c *gin.Context) {
	report, err := h.deps.Setup.SeedSampleUsers(c.Request.Context(), actorFromContext(c))
	if err != nil {
		h.flashError(c, err)
	} else {
		h.flash(c, fmt.Sprintf("Created %d, skipped %d, failed %d sample users", len(report.Created), len(report.Skipped), len(report.Failed)))
	}
	redirect(c, "/settings")
}

// CleanAudit deletes old audit entries.
func (h *PageHandler) CleanAudit(c *gin.Context) {
	days, _ := strconv.Atoi(c.PostForm("days"))
	removed, err := h.deps.Audits.Clean(c.Request.Context(), actorFromContext(c), days)
	if err != nil {
		h.flashError(c, err)
	} else {
		h.flash(c, fmt.Sprintf("Deleted %d audit entries older than %d days", removed, days))
	}
	redirect(c, "/settings")
}

// QueueExport queues an export chosen on the settings page.
func (h *PageHandler) QueueExport(c *gin.Context) {
	h.queueExport(c, models.ExportRequest{
		Kind:   models.ExportKind(c.PostForm("kind")),
		Format: models.ExportFormat(c.PostForm("format")),
	})
}

// Me renders the self-service page.
func (h *PageHandler) Me(c *gin.Context) {
	h.renderMe(c, nil)
}

func (h *PageHandler) renderMe(c *gin.Context, totp *models.TOTPSetup) {
	ctx := c.Request.Context()
	session := sessionFromContext(c)
	account, res := h.deps.Portal.Profile(ctx, session.AccountID)
	if !res.OK {
		h.renderError(c, res.Err())
		return
	}
	prefs, err := h.deps.Portal.Preferences(ctx, session.AccountID)
	if err != nil {
		h.renderError(c, err)
		return
	}
	activity, _ := h.deps.Audits.ForAccount(ctx, session.AccountID)
	if len(activity) > 10 {
		activity = activity[:10]
	}
	h.render(c, http.StatusOK, "me", "My account", gin.H{
		"Account":     account,
		"Preferences": prefs,
		"Activity":    activity,
		"TOTP":        totp,
	})
}

// UpdateMe saves the profile form.
func (h *PageHandler) UpdateMe(c *gin.Context) {
	var req models.SelfProfileRequest
	_ = c.ShouldBind(&req)
	_, res := h.deps.Portal.UpdateProfile(c.Request.Context(), actorFromContext(c), sessionFromContext(c).AccountID, req)
	h.flashResult(c, res)
	redirect(c, "/me")
}

// SavePreferences saves the preferences form.
func (h *PageHandler) SavePreferences(c *gin.Context) {
	checked := func(name string) bool { return c.PostForm(name) != "" }
	prefs := models.Preferences{
		Theme:    models.Theme(c.PostForm("theme")),
		Language: c.PostForm("language"),
		Timezone: c.PostForm("timezone"),
		Notifications: models.NotificationSettings{
			Email: checked("notify_email"),
			Push:  checked("notify_push"),
			SMS:   checked("notify_sms"),
		},
		Privacy: models.PrivacySettings{
			ProfileVisible: checked("profile_visible"),
			EmailVisible:   checked("email_visible"),
		},
	}
	if _, err := h.deps.Portal.SavePreferences(c.Request.Context(), actorFromContext(c), sessionFromContext(c).AccountID, prefs); err != nil {
		h.flashError(c, err)
	} else {
		h.flash(c, "Preferences saved")
	}
	redirect(c, "/me")
}

// ChangePassword submits the password form.
func (h *PageHandler) ChangePassword(c *gin.Context) {
	var req models.ChangePasswordRequest
	_ = c.ShouldBind(&req)
	h.flashResult(c, h.deps.Portal.ChangePassword(c.Request.Context(), actorFromContext(c), sessionFromContext(c).AccountID, req))
	redirect(c, "/me")
}

// SetupTOTP shows a fresh secret and QR code.
func (h *PageHandler) SetupTOTP(c *gin.Context) {
	setup, err := h.deps.MFA.Setup(c.Request.Context(), sessionFromContext(c).AccountID)
	if err != nil {
		h.flashError(c, err)
		redirect(c, "/me")
		return
	}
	h.renderMe(c, setup)
}

// EnableTOTP verifies the first code.
func (h *PageHandler) EnableTOTP(c *gin.Context) {
	h.totpForm(c, h.deps.MFA.Enable, "Two-factor authentication enabled")
}

// DisableTOTP turns two-factor off.
func (h *PageHandler) DisableTOTP(c *gin.Context) {
	h.totpForm(c, h.deps.MFA.Disable, "Two-factor authentication disabled")
}

func (h *PageHandler) totpForm(c *gin.Context, apply func(context.Context, *models.Actor, string, string) error, done string) {
	err := apply(c.Request.Context(), actorFromContext(c), sessionFromContext(c).AccountID, strings.TrimSpace(c.PostForm("code")))
	if err != nil {
		h.flashError(c, err)
	} else {
		h.flash(c, done)
	}
	redirect(c, "/me")
}

// ExportMe downloads the signed-in account's data.
func (h *PageHandler) ExportMe(c *gin.Context) {
	payload, err := h.deps.Portal.ExportOwnData(c.Request.Context(), actorFromContext(c), sessionFromContext(c).AccountID)
	if err != nil {
		h.flashError(c, err)
		redirect(c, "/me")
		return
	}
	filename := fmt.Sprintf("my_data_%s.json", time.Now().UTC().Format("20060102_150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "application/json", payload)
}
