package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pquerna/otp/totp"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/userflow-api/internal/backend"
	"github.com/noah-isme/userflow-api/internal/models"
	appErrors "github.com/noah-isme/userflow-api/pkg/errors"
)

type accountBackend interface {
	backend.AccountStore
	backend.CredentialStore
	backend.ResetTokenStore
	EndAccountSessions(ctx context.Context, accountID string, endedAt time.Time) error
}

type auditWriter interface {
	Record(ctx context.Context, actor *models.Actor, action, target string, details models.AuditDetails, outcome models.AuditOutcome) bool
}

type derivedCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Invalidate(ctx context.Context, pattern string) error
}

// ResetNotifier delivers password reset links.
type ResetNotifier interface {
	SendPasswordReset(ctx context.Context, email, link string, expiresAt time.Time) error
}

// LogNotifier writes reset links to the log instead of sending mail.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier constructs a LogNotifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

// SendPasswordReset logs the link.
func (n *LogNotifier) SendPasswordReset(_ context.Context, email, link string, expiresAt time.Time) error {
	n.logger.Info("password reset link issued",
		zap.String("email", email),
		zap.String("link", link),
		zap.Time("expires_at", expiresAt),
	)
	return nil
}

// Result is the fail-soft outcome of an account client call: a flag, a
// message fit for display, and the error code and details when it failed.
type Result struct {
	OK      bool     `json:"ok"`
	Message string   `json:"message"`
	Code    string   `json:"code,omitempty"`
	Details []string `json:"details,omitempty"`
	status  int
}

func succeeded(message string) Result {
	return Result{OK: true, Message: message}
}

func failed(err *appErrors.Error) Result {
	return Result{
		Message: err.Message,
		Code:    err.Code,
		Details: append([]string(nil), err.Details...),
		status:  err.Status,
	}
}

// Err converts a failed result into a typed error for HTTP responses.
func (r Result) Err() error {
	if r.OK {
		return nil
	}
	code, status := r.Code, r.status
	if code == "" {
		code = appErrors.ErrInternal.Code
	}
	if status == 0 {
		status = appErrors.ErrInternal.Status
	}
	return &appErrors.Error{Code: code, Status: status, Message: r.Message, Details: r.Details}
}

// MutationOption adjusts how a mutation is audited.
type MutationOption func(*mutationOptions)

type mutationOptions struct {
	action  string
	details models.AuditDetails
}

// AuditAs records the mutation under action with extra details merged in.
func AuditAs(action string, details models.AuditDetails) MutationOption {
	return func(o *mutationOptions) {
		o.action = action
		o.details = details
	}
}

func resolveOptions(defaultAction string, opts []MutationOption) mutationOptions {
	o := mutationOptions{action: defaultAction}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o mutationOptions) merge(details models.AuditDetails) models.AuditDetails {
	out := models.AuditDetails{}
	for k, v := range details {
		out[k] = v
	}
	for k, v := range o.details {
		out[k] = v
	}
	return out
}

// AccountClientConfig tunes credential handling.
type AccountClientConfig struct {
	HashCost      int
	ResetTokenTTL time.Duration
	ResetURL      string
	StatsTTL      time.Duration
}

// AccountClient is the single entry point to accounts on the backend. No call
// panics or returns a raw backend error: every outcome is a Result.
type AccountClient struct {
	backend   accountBackend
	recorder  auditWriter
	cache     derivedCache
	notifier  ResetNotifier
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       AccountClientConfig
	now       func() time.Time
}

// NewAccountClient constructs the account client.
func NewAccountClient(store accountBackend, recorder auditWriter, cache derivedCache, notifier ResetNotifier, metrics *MetricsService, v *validator.Validate, logger *zap.Logger, cfg AccountClientConfig) *AccountClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	if v == nil {
		v = NewValidator()
	}
	if notifier == nil {
		notifier = NewLogNotifier(logger)
	}
	if cfg.HashCost == 0 {
		cfg.HashCost = bcrypt.DefaultCost
	}
	if cfg.ResetTokenTTL <= 0 {
		cfg.ResetTokenTTL = time.Hour
	}
	if cfg.StatsTTL <= 0 {
		cfg.StatsTTL = time.Minute
	}
	return &AccountClient{
		backend:   store,
		recorder:  recorder,
		cache:     cache,
		notifier:  notifier,
		metrics:   metrics,
		validator: v,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Authenticate verifies credentials and returns the signed-in account.
func (c *AccountClient) Authenticate(ctx context.Context, req models.SignInRequest, scope models.SignInScope) (account *models.Account, res Result) {
	defer c.guard("authenticate", &res)

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := c.validator.Struct(req); err != nil {
		return nil, failed(validationError(err))
	}

	var cred *models.Credential
	err := c.call("get_credential_by_email", func() (err error) {
		cred, err = c.backend.GetCredentialByEmail(ctx, req.Email)
		return err
	})
	if errors.Is(err, backend.ErrNotFound) {
		return nil, failed(appErrors.ErrInvalidCredentials)
	}
	if err != nil {
		return nil, c.backendFailure("sign in", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(req.Password)) != nil {
		return nil, failed(appErrors.ErrInvalidCredentials)
	}

	err = c.call("get_account", func() (err error) {
		account, err = c.backend.GetAccount(ctx, cred.ID)
		return err
	})
	if errors.Is(err, backend.ErrNotFound) {
		c.logger.Warn("credential without profile", zap.String("account_id", cred.ID))
		return nil, failed(appErrors.ErrInvalidCredentials)
	}
	if err != nil {
		return nil, c.backendFailure("sign in", err)
	}
	if !account.IsActive() {
		return nil, failed(appErrors.Clone(appErrors.ErrInactiveAccount, "Account is not active. Please contact an administrator."))
	}
	if scope == models.ScopeAdmin && account.Role != models.RoleAdmin {
		return nil, failed(appErrors.Clone(appErrors.ErrInsufficientRole, "Access denied: administrator privileges required"))
	}
	if account.TOTPEnabled {
		if req.OTP == "" {
			return nil, failed(appErrors.ErrOTPRequired)
		}
		if !totp.Validate(req.OTP, account.TOTPSecret) {
			return nil, failed(appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid two-factor code"))
		}
	}

	now := c.now().UTC()
	if err := c.call("record_login", func() error { return c.backend.RecordLogin(ctx, account.ID, now) }); err != nil {
		c.logger.Warn("failed to record last login", zap.String("account_id", account.ID), zap.Error(err))
	} else {
		account.LastLogin = &now
	}
	actor := models.ActorFromAccount(*account, req.IP, req.UserAgent)
	c.audit(ctx, actor, models.AuditActionLogin, account.ID, models.AuditDetails{"user_agent": req.UserAgent}, true)
	return account, succeeded("Signed in")
}

// ListAll returns every account, newest first.
func (c *AccountClient) ListAll(ctx context.Context) (accounts []models.Account, res Result) {
	defer c.guard("list", &res)
	err := c.call("list_accounts", func() (err error) {
		accounts, err = c.backend.ListAccounts(ctx)
		return err
	})
	if err != nil {
		return nil, c.backendFailure("load users", err)
	}
	return accounts, succeeded("")
}

// GetProfile returns one account.
func (c *AccountClient) GetProfile(ctx context.Context, id string) (account *models.Account, res Result) {
	defer c.guard("get", &res)
	err := c.call("get_account", func() (err error) {
		account, err = c.backend.GetAccount(ctx, id)
		return err
	})
	if err != nil {
		return nil, c.backendFailure("load user", err)
	}
	return account, succeeded("")
}

// Search matches email or full name case-insensitively.
func (c *AccountClient) Search(ctx context.Context, query string) (accounts []models.Account, res Result) {
	defer c.guard("search", &res)
	query = strings.TrimSpace(query)
	if query == "" {
		return c.ListAll(ctx)
	}
	err := c.call("search_accounts", func() (err error) {
		accounts, err = c.backend.SearchAccounts(ctx, query)
		return err
	})
	if err != nil {
		return nil, c.backendFailure("search users", err)
	}
	return accounts, succeeded("")
}

// Create registers a credential and its profile.
func (c *AccountClient) Create(ctx context.Context, actor *models.Actor, req models.CreateAccountRequest, opts ...MutationOption) (account *models.Account, res Result) {
	defer c.guard("create", &res)
	o := resolveOptions(models.AuditActionCreateUser, opts)

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.FullName = strings.TrimSpace(req.FullName)
	if err := c.validator.Struct(req); err != nil {
		return nil, failed(validationError(err))
	}
	if req.Role == "" {
		req.Role = models.RoleUser
	}
	if req.Status == "" {
		req.Status = models.StatusActive
	}
	details := o.merge(models.AuditDetails{"email": req.Email, "role": string(req.Role)})

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), c.cfg.HashCost)
	if err != nil {
		return nil, failed(appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password"))
	}

	var id string
	err = c.call("create_credential", func() (err error) {
		id, err = c.backend.CreateCredential(ctx, req.Email, string(hash), req.FullName)
		return err
	})
	if err != nil {
		c.audit(ctx, actor, o.action, "", details, false)
		if errors.Is(err, backend.ErrConflict) {
			return nil, failed(appErrors.Clone(appErrors.ErrConflict, "A user with this email already exists"))
		}
		return nil, c.backendFailure("create user", err)
	}

	now := c.now().UTC()
	account = &models.Account{
		ID:                 id,
		Email:              req.Email,
		FullName:           req.FullName,
		Role:               req.Role,
		Status:             req.Status,
		Phone:              req.Phone,
		Department:         req.Department,
		JobTitle:           req.JobTitle,
		Bio:                req.Bio,
		Location:           req.Location,
		Website:            req.Website,
		EmailNotifications: true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := c.call("upsert_profile", func() error { return c.backend.UpsertProfile(ctx, account) }); err != nil {
		if cleanupErr := c.backend.DeleteCredential(ctx, id); cleanupErr != nil {
			c.logger.Error("failed to roll back credential", zap.String("account_id", id), zap.Error(cleanupErr))
		}
		c.audit(ctx, actor, o.action, id, details, false)
		return nil, c.backendFailure("create user profile", err)
	}

	c.audit(ctx, actor, o.action, id, details, true)
	c.invalidate(ctx)
	return account, succeeded(fmt.Sprintf("User %s created successfully", req.Email))
}

// Update applies credential and profile changes in two backend calls.
func (c *AccountClient) Update(ctx context.Context, actor *models.Actor, id string, req models.UpdateAccountRequest, opts ...MutationOption) (account *models.Account, res Result) {
	defer c.guard("update", &res)
	o := resolveOptions(models.AuditActionUpdateUser, opts)

	if req.Email != nil {
		normalised := strings.ToLower(strings.TrimSpace(*req.Email))
		req.Email = &normalised
	}
	if err := c.validator.Struct(req); err != nil {
		return nil, failed(validationError(err))
	}
	creds := models.CredentialFields{Email: req.Email}
	if req.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), c.cfg.HashCost)
		if err != nil {
			return nil, failed(appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password"))
		}
		hashed := string(hash)
		creds.PasswordHash = &hashed
	}
	if creds.IsEmpty() && req.ProfileFields.IsEmpty() {
		return nil, failed(appErrors.Clone(appErrors.ErrValidation, "No changes supplied"))
	}
	details := o.merge(models.AuditDetails{"fields": changedFields(req)})

	if !creds.IsEmpty() {
		if err := c.call("update_credential", func() error { return c.backend.UpdateCredential(ctx, id, creds) }); err != nil {
			c.audit(ctx, actor, o.action, id, details, false)
			if errors.Is(err, backend.ErrConflict) {
				return nil, failed(appErrors.Clone(appErrors.ErrConflict, "A user with this email already exists"))
			}
			return nil, c.backendFailure("update user", err)
		}
	}
	if !req.ProfileFields.IsEmpty() {
		if err := c.call("update_profile", func() error { return c.backend.UpdateProfile(ctx, id, req.ProfileFields) }); err != nil {
			if !creds.IsEmpty() {
				details["applied"] = appliedCredentialFields(creds)
				c.invalidate(ctx)
			}
			c.audit(ctx, actor, o.action, id, details, false)
			return nil, c.backendFailure("update user", err)
		}
	}

	c.audit(ctx, actor, o.action, id, details, true)
	c.invalidate(ctx)

	err := c.call("get_account", func() (err error) {
		account, err = c.backend.GetAccount(ctx, id)
		return err
	})
	if err != nil {
		c.logger.Warn("updated account could not be reloaded", zap.String("account_id", id), zap.Error(err))
		account = nil
	}
	return account, succeeded("User updated successfully")
}

// Delete removes the profile row and then the credential row.
func (c *AccountClient) Delete(ctx context.Context, actor *models.Actor, id string, opts ...MutationOption) (res Result) {
	defer c.guard("delete", &res)
	o := resolveOptions(models.AuditActionDeleteUser, opts)

	details := o.merge(nil)
	if actor != nil && actor.ID != "" && actor.ID == id {
		details["reason"] = "self delete"
		c.audit(ctx, actor, o.action, id, details, false)
		return failed(appErrors.Clone(appErrors.ErrForbidden, "You cannot delete your own account"))
	}
	var existing *models.Account
	err := c.call("get_account", func() (err error) {
		existing, err = c.backend.GetAccount(ctx, id)
		return err
	})
	if err == nil {
		details["email"] = existing.Email
	}
	if err == nil {
		err = c.call("delete_profile", func() error { return c.backend.DeleteProfile(ctx, id) })
	}
	if err == nil {
		err = c.call("delete_credential", func() error { return c.backend.DeleteCredential(ctx, id) })
		if errors.Is(err, backend.ErrNotFound) {
			err = nil
		}
	}
	if err != nil {
		c.audit(ctx, actor, o.action, id, details, false)
		return c.backendFailure("delete user", err)
	}
	c.endSessions(ctx, id)
	c.audit(ctx, actor, o.action, id, details, true)
	c.invalidate(ctx)
	return succeeded("User deleted successfully")
}

// SendPasswordResetEmail issues a one-time reset link for email.
func (c *AccountClient) SendPasswordResetEmail(ctx context.Context, actor *models.Actor, email string, opts ...MutationOption) (res Result) {
	defer c.guard("password_reset_email", &res)
	email = strings.ToLower(strings.TrimSpace(email))
	if err := c.validator.Struct(models.PasswordResetEmailRequest{Email: email}); err != nil {
		return failed(validationError(err))
	}
	var cred *models.Credential
	err := c.call("get_credential_by_email", func() (err error) {
		cred, err = c.backend.GetCredentialByEmail(ctx, email)
		return err
	})
	if err != nil {
		o := resolveOptions(models.AuditActionPasswordResetEmail, opts)
		c.audit(ctx, actor, o.action, "", o.merge(models.AuditDetails{"email": email}), false)
		if errors.Is(err, backend.ErrNotFound) {
			return failed(appErrors.Clone(appErrors.ErrNotFound, "No account found for this email"))
		}
		return c.backendFailure("send password reset", err)
	}
	return c.issueReset(ctx, actor, cred.ID, email, opts)
}

// SendPasswordResetFor issues a reset link for the account with id.
func (c *AccountClient) SendPasswordResetFor(ctx context.Context, actor *models.Actor, id string, opts ...MutationOption) (res Result) {
	defer c.guard("password_reset_email", &res)
	var account *models.Account
	err := c.call("get_account", func() (err error) {
		account, err = c.backend.GetAccount(ctx, id)
		return err
	})
	if err != nil {
		o := resolveOptions(models.AuditActionPasswordResetEmail, opts)
		c.audit(ctx, actor, o.action, id, o.merge(nil), false)
		return c.backendFailure("send password reset", err)
	}
	return c.issueReset(ctx, actor, account.ID, account.Email, opts)
}

func (c *AccountClient) issueReset(ctx context.Context, actor *models.Actor, id, email string, opts []MutationOption) Result {
	o := resolveOptions(models.AuditActionPasswordResetEmail, opts)
	details := o.merge(models.AuditDetails{"email": email})

	raw, err := randomToken(32)
	if err != nil {
		return failed(appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create reset token"))
	}
	now := c.now().UTC()
	token := &models.ResetToken{
		UserID:    id,
		TokenHash: hashToken(raw),
		ExpiresAt: now.Add(c.cfg.ResetTokenTTL),
		CreatedAt: now,
	}
	if err := c.call("create_reset_token", func() error { return c.backend.CreateResetToken(ctx, token) }); err != nil {
		c.audit(ctx, actor, o.action, id, details, false)
		return c.backendFailure("send password reset", err)
	}
	if err := c.notifier.SendPasswordReset(ctx, email, c.resetLink(raw), token.ExpiresAt); err != nil {
		c.logger.Error("failed to deliver password reset", zap.String("email", email), zap.Error(err))
		c.audit(ctx, actor, o.action, id, details, false)
		return failed(appErrors.Clone(appErrors.ErrInternal, "Failed to send password reset email"))
	}
	c.audit(ctx, actor, o.action, id, details, true)
	return succeeded(fmt.Sprintf("Password reset email sent to %s", email))
}

func (c *AccountClient) resetLink(token string) string {
	base := c.cfg.ResetURL
	if base == "" {
		base = "/reset-password"
	}
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + "token=" + url.QueryEscape(token)
}

// ResetPassword sets a new password on behalf of the account.
func (c *AccountClient) ResetPassword(ctx context.Context, actor *models.Actor, id string, req models.ManualResetRequest) (res Result) {
	defer c.guard("password_reset_manual", &res)
	if err := c.validator.Struct(req); err != nil {
		return failed(validationError(err))
	}
	if err := c.setPassword(ctx, id, req.NewPassword); err != nil {
		c.audit(ctx, actor, models.AuditActionPasswordResetManual, id, nil, false)
		return c.backendFailure("reset password", err)
	}
	c.audit(ctx, actor, models.AuditActionPasswordResetManual, id, nil, true)
	return succeeded("Password reset successfully")
}

// ConfirmPasswordReset checks an emailed token, sets the new password and
// only then marks the token used, so a failed write leaves the link usable.
// The account whose password changes is the audit actor.
func (c *AccountClient) ConfirmPasswordReset(ctx context.Context, req models.ConfirmResetRequest, meta models.SessionMeta) (res Result) {
	defer c.guard("password_reset_confirm", &res)
	if err := c.validator.Struct(req); err != nil {
		return failed(validationError(err))
	}
	tokenHash := hashToken(req.Token)
	var token *models.ResetToken
	err := c.call("find_reset_token", func() (err error) {
		token, err = c.backend.FindResetToken(ctx, tokenHash, c.now().UTC())
		return err
	})
	if errors.Is(err, backend.ErrNotFound) {
		return failed(appErrors.Clone(appErrors.ErrValidation, "Reset link is invalid or has expired"))
	}
	if err != nil {
		return c.backendFailure("reset password", err)
	}

	actor := &models.Actor{ID: token.UserID, IPAddress: meta.IPAddress, UserAgent: meta.UserAgent}
	var cred *models.Credential
	err = c.call("get_credential", func() (err error) {
		cred, err = c.backend.GetCredential(ctx, token.UserID)
		return err
	})
	switch {
	case errors.Is(err, backend.ErrNotFound):
		c.audit(ctx, actor, models.AuditActionPasswordResetConfirm, token.UserID, models.AuditDetails{"reason": "account missing"}, false)
		return failed(appErrors.Clone(appErrors.ErrValidation, "Reset link is invalid or has expired"))
	case err != nil:
		c.audit(ctx, actor, models.AuditActionPasswordResetConfirm, token.UserID, nil, false)
		return c.backendFailure("reset password", err)
	}
	actor.Email = cred.Email

	if err := c.setPassword(ctx, token.UserID, req.NewPassword); err != nil {
		c.audit(ctx, actor, models.AuditActionPasswordResetConfirm, token.UserID, nil, false)
		return c.backendFailure("reset password", err)
	}
	err = c.call("consume_reset_token", func() error {
		_, err := c.backend.ConsumeResetToken(ctx, tokenHash, c.now().UTC())
		return err
	})
	if err != nil {
		// The password is already replaced, so the reset itself stands.
		c.logger.Warn("reset token could not be marked used", zap.String("account_id", token.UserID), zap.Error(err))
	}
	c.endSessions(ctx, token.UserID)
	c.audit(ctx, actor, models.AuditActionPasswordResetConfirm, token.UserID, nil, true)
	return succeeded("Password updated. You can now sign in.")
}

// ChangePassword verifies the current password before replacing it.
func (c *AccountClient) ChangePassword(ctx context.Context, actor *models.Actor, id string, req models.ChangePasswordRequest) (res Result) {
	defer c.guard("change_password", &res)
	if err := c.validator.Struct(req); err != nil {
		return failed(validationError(err))
	}
	var cred *models.Credential
	err := c.call("get_credential", func() (err error) {
		cred, err = c.backend.GetCredential(ctx, id)
		return err
	})
	if err != nil {
		return c.backendFailure("change password", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(req.OldPassword)) != nil {
		c.audit(ctx, actor, models.AuditActionChangePassword, id, models.AuditDetails{"reason": "old password mismatch"}, false)
		return failed(appErrors.Clone(appErrors.ErrInvalidCredentials, "Current password is incorrect"))
	}
	if err := c.setPassword(ctx, id, req.NewPassword); err != nil {
		c.audit(ctx, actor, models.AuditActionChangePassword, id, nil, false)
		return c.backendFailure("change password", err)
	}
	c.audit(ctx, actor, models.AuditActionChangePassword, id, nil, true)
	return succeeded("Password changed successfully")
}

func (c *AccountClient) setPassword(ctx context.Context, id, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), c.cfg.HashCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	hashed := string(hash)
	return c.call("update_credential", func() error {
		return c.backend.UpdateCredential(ctx, id, models.CredentialFields{PasswordHash: &hashed})
	})
}

// ComputeStats counts accounts by status and role.
func (c *AccountClient) ComputeStats(ctx context.Context) (stats models.AccountStats, res Result) {
	defer c.guard("stats", &res)
	if c.cache != nil {
		if hit, _ := c.cache.Get(ctx, statsCacheKey, &stats); hit {
			return stats, succeeded("")
		}
	}
	accounts, res := c.ListAll(ctx)
	if !res.OK {
		return models.AccountStats{}, res
	}
	stats = CountAccounts(accounts)
	if c.cache != nil {
		_ = c.cache.Set(ctx, statsCacheKey, stats, c.cfg.StatsTTL)
	}
	return stats, succeeded("")
}

// CountAccounts derives stats from a loaded list.
func CountAccounts(accounts []models.Account) models.AccountStats {
	stats := models.AccountStats{Total: len(accounts)}
	for _, a := range accounts {
		switch a.Status {
		case models.StatusActive:
			stats.Active++
		case models.StatusInactive:
			stats.Inactive++
		}
		switch a.Role {
		case models.RoleAdmin:
			stats.Admin++
		case models.RoleUser:
			stats.User++
		}
	}
	return stats
}

// invalidate drops cached stats and analytics.
func (c *AccountClient) invalidate(ctx context.Context) {
	if c.cache == nil {
		return
	}
	_ = c.cache.Invalidate(ctx, derivedCachePattern)
}

func (c *AccountClient) audit(ctx context.Context, actor *models.Actor, action, target string, details models.AuditDetails, ok bool) {
	if c.recorder == nil {
		return
	}
	c.recorder.Record(ctx, actor, action, target, details, models.OutcomeOf(ok))
}

func (c *AccountClient) call(op string, fn func() error) error {
	start := time.Now()
	err := fn()
	c.metrics.ObserveBackendCall(op, time.Since(start), err)
	return err
}

// backendFailure maps a backend error into a Result.
func (c *AccountClient) backendFailure(action string, err error) Result {
	switch {
	case errors.Is(err, backend.ErrNotFound):
		return failed(appErrors.Clone(appErrors.ErrNotFound, "User not found"))
	case errors.Is(err, backend.ErrConflict):
		return failed(appErrors.Clone(appErrors.ErrConflict, "A user with this email already exists"))
	case errors.Is(err, backend.ErrDemoMode):
		return failed(appErrors.ErrDemoMode)
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return failed(appErr)
	}
	c.logger.Error("account backend call failed", zap.String("action", action), zap.Error(err))
	return failed(appErrors.Clone(appErrors.ErrBackend, fmt.Sprintf("Failed to %s, please try again", action)))
}

// endSessions closes every open session of the account. Failures are logged;
// the gate still rejects the sessions once the account is gone.
func (c *AccountClient) endSessions(ctx context.Context, id string) {
	err := c.call("end_account_sessions", func() error { return c.backend.EndAccountSessions(ctx, id, c.now().UTC()) })
	if err != nil {
		c.logger.Warn("failed to end account sessions", zap.String("account_id", id), zap.Error(err))
	}
}

func (c *AccountClient) guard(op string, res *Result) {
	if r := recover(); r != nil {
		c.logger.Error("account client panic", zap.String("op", op), zap.Any("panic", r), zap.Stack("stack"))
		*res = failed(appErrors.Clone(appErrors.ErrInternal, "Unexpected error, please try again"))
	}
}

func appliedCredentialFields(creds models.CredentialFields) []string {
	var fields []string
	if creds.Email != nil {
		fields = append(fields, "email")
	}
	if creds.PasswordHash != nil {
		fields = append(fields, "password")
	}
	return fields
}

func changedFields(req models.UpdateAccountRequest) []string {
	var fields []string
	add := func(set bool, name string) {
		if set {
			fields = append(fields, name)
		}
	}
	p := req.ProfileFields
	add(req.Email != nil, "email")
	add(req.Password != nil, "password")
	add(p.FullName != nil, "full_name")
	add(p.AvatarURL != nil, "avatar_url")
	add(p.Role != nil, "role")
	add(p.Status != nil, "status")
	add(p.Phone != nil, "phone")
	add(p.Department != nil, "department")
	add(p.JobTitle != nil, "job_title")
	add(p.Bio != nil, "bio")
	add(p.Location != nil, "location")
	add(p.Website != nil, "website")
	add(p.EmailNotifications != nil, "email_notifications")
	return fields
}
