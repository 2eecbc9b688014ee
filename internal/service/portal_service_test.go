package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/userflow-api/internal/models"
	appErrors "github.com/noah-isme/userflow-api/pkg/errors"
)

func newPortalForTest(t *testing.T) (*PortalService, clientFixture) {
	t.Helper()
	f := newClientFixture(t)
	audits := NewAuditService(f.store, f.recorder, nil, zap.NewNop())
	return NewPortalService(f.client, f.store, audits, f.recorder, nil, zap.NewNop()), f
}

func TestPortalSignUp(t *testing.T) {
	portal, f := newPortalForTest(t)
	account, res := portal.SignUp(context.Background(), models.SignUpRequest{
		Email:           "signup@example.com",
		Password:        "Welcome1",
		ConfirmPassword: "Welcome1",
		FullName:        "Sign Up",
	}, models.SessionMeta{IPAddress: "192.168.1.10"})
	require.True(t, res.OK, res.Message)
	assert.Equal(t, models.RoleUser, account.Role)
	assert.Equal(t, models.StatusActive, account.Status)

	entries := f.auditFor(t, models.AuditActionSignUp)
	require.Len(t, entries, 1)
	assert.Equal(t, "signup@example.com", entries[0].ActorEmail)
	assert.Empty(t, entries[0].ActorID)
	assert.Equal(t, "192.168.1.10", entries[0].IPAddress)
}

func TestPortalUpdateProfileCannotChangeRole(t *testing.T) {
	portal, f := newPortalForTest(t)
	actor := &models.Actor{ID: "user-2", Email: "john.doe@example.com"}

	account, res := portal.UpdateProfile(context.Background(), actor, "user-2", models.SelfProfileRequest{
		Bio:      strPtr("Hello"),
		Location: strPtr("Lisbon"),
	})
	require.True(t, res.OK, res.Message)
	assert.Equal(t, "Hello", account.Bio)
	assert.Equal(t, models.RoleUser, account.Role)
	assert.Len(t, f.auditFor(t, models.AuditActionUpdateProfile), 1)

	_, res = portal.UpdateProfile(context.Background(), actor, "user-2", models.SelfProfileRequest{Website: strPtr("not a url")})
	assert.Equal(t, appErrors.ErrValidation.Code, res.Code)
}

func TestPortalPreferences(t *testing.T) {
	portal, f := newPortalForTest(t)
	ctx := context.Background()
	actor := &models.Actor{ID: "user-2", Email: "john.doe@example.com"}

	prefs, err := portal.Preferences(ctx, "user-2")
	require.NoError(t, err)
	assert.Equal(t, models.DefaultPreferences("user-2").Theme, prefs.Theme)

	prefs.Theme = models.ThemeDark
	prefs.Language = "pt"
	saved, err := portal.SavePreferences(ctx, actor, "user-2", *prefs)
	require.NoError(t, err)
	assert.Equal(t, models.ThemeDark, saved.Theme)

	reloaded, err := portal.Preferences(ctx, "user-2")
	require.NoError(t, err)
	assert.Equal(t, "pt", reloaded.Language)

	prefs.Theme = "neon"
	_, err = portal.SavePreferences(ctx, actor, "user-2", *prefs)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Len(t, f.auditFor(t, models.AuditActionUpdatePreferences), 1)

	defaults, err := portal.Preferences(ctx, "unknown")
	require.NoError(t, err)
	assert.Equal(t, "unknown", defaults.UserID)
}

func TestPortalExportOwnData(t *testing.T) {
	portal, f := newPortalForTest(t)
	actor := &models.Actor{ID: "user-2", Email: "john.doe@example.com"}
	_, res := f.client.Authenticate(context.Background(), models.SignInRequest{Email: "john.doe@example.com", Password: testUserPassword}, models.ScopeAny)
	require.True(t, res.OK)

	payload, err := portal.ExportOwnData(context.Background(), actor, "user-2")
	require.NoError(t, err)

	var doc OwnDataExport
	require.NoError(t, json.Unmarshal(payload, &doc))
	assert.Equal(t, "john.doe@example.com", doc.Account.Email)
	require.Len(t, doc.Activity, 1)
	assert.Equal(t, models.AuditActionLogin, doc.Activity[0].Action)
	assert.Len(t, f.auditFor(t, models.AuditActionExportOwnData), 1)
}

func TestMFASetupEnableAndSignIn(t *testing.T) {
	f := newClientFixture(t)
	mfa := NewMFAService(f.store, f.recorder, "UserFlow", zap.NewNop())
	ctx := context.Background()
	actor := &models.Actor{ID: "user-2", Email: "john.doe@example.com"}

	setup, err := mfa.Setup(ctx, "user-2")
	require.NoError(t, err)
	assert.NotEmpty(t, setup.Secret)
	assert.Contains(t, setup.URL, "otpauth://totp/")
	assert.NotEmpty(t, setup.QRCodePNG)

	// Not enforced until a code is verified.
	_, res := f.client.Authenticate(ctx, models.SignInRequest{Email: "john.doe@example.com", Password: testUserPassword}, models.ScopeAny)
	require.True(t, res.OK)

	assert.ErrorIs(t, mfa.Enable(ctx, actor, "user-2", "000000"), appErrors.ErrValidation)

	code, err := totp.GenerateCode(setup.Secret, time.Now())
	require.NoError(t, err)
	require.NoError(t, mfa.Enable(ctx, actor, "user-2", code))

	_, err = mfa.Setup(ctx, "user-2")
	assert.ErrorIs(t, err, appErrors.ErrConflict)

	_, res = f.client.Authenticate(ctx, models.SignInRequest{Email: "john.doe@example.com", Password: testUserPassword}, models.ScopeAny)
	assert.Equal(t, appErrors.ErrOTPRequired.Code, res.Code)

	_, res = f.client.Authenticate(ctx, models.SignInRequest{Email: "john.doe@example.com", Password: testUserPassword, OTP: code}, models.ScopeAny)
	assert.True(t, res.OK, res.Message)

	require.NoError(t, mfa.Disable(ctx, actor, "user-2", code))
	enables := f.auditFor(t, models.AuditActionEnableTOTP)
	assert.Len(t, enables, 2)
	assert.Len(t, f.auditFor(t, models.AuditActionDisableTOTP), 1)

	_, err = mfa.Setup(ctx, "missing")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}
