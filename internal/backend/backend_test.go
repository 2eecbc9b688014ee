package backend

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/userflow-api/internal/models"
	"github.com/noah-isme/userflow-api/pkg/config"
)

func newTestDemo(t *testing.T) *Demo {
	t.Helper()
	demo, err := NewDemo(DemoSeed{
		AdminEmail:    "Admin@Example.com",
		AdminPassword: "admin1234",
		UserPassword:  "demo1234",
		HashCost:      bcrypt.MinCost,
	})
	require.NoError(t, err)
	return demo
}

func TestDemoSeedsFourAccounts(t *testing.T) {
	demo := newTestDemo(t)
	accounts, err := demo.ListAccounts(context.Background())
	require.NoError(t, err)
	require.Len(t, accounts, 4)

	admin, err := demo.GetAccount(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", admin.Email)
	assert.Equal(t, models.RoleAdmin, admin.Role)
	assert.Equal(t, "IT", admin.Department)

	cred, err := demo.GetCredentialByEmail(context.Background(), "ADMIN@example.com")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte("admin1234")))
}

func TestDemoCredentialLifecycle(t *testing.T) {
	demo := newTestDemo(t)
	ctx := context.Background()

	id, err := demo.CreateCredential(ctx, "New@Example.com", "hash", "New Person")
	require.NoError(t, err)
	_, err = demo.CreateCredential(ctx, "new@example.com", "hash", "Dup")
	assert.ErrorIs(t, err, ErrConflict)

	account, err := demo.GetAccount(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, account.Role)

	email := "moved@example.com"
	require.NoError(t, demo.UpdateCredential(ctx, id, models.CredentialFields{Email: &email}))
	moved, err := demo.FindAccountByEmail(ctx, email)
	require.NoError(t, err)
	assert.Equal(t, id, moved.ID)

	require.NoError(t, demo.DeleteProfile(ctx, id))
	require.NoError(t, demo.DeleteCredential(ctx, id))
	_, err = demo.GetAccount(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, demo.DeleteCredential(ctx, id), ErrNotFound)
}

func TestDemoResetTokenSingleUse(t *testing.T) {
	demo := newTestDemo(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, demo.CreateResetToken(ctx, &models.ResetToken{UserID: "user-2", TokenHash: "h", ExpiresAt: now.Add(time.Hour)}))
	token, err := demo.ConsumeResetToken(ctx, "h", now)
	require.NoError(t, err)
	assert.Equal(t, "user-2", token.UserID)

	_, err = demo.ConsumeResetToken(ctx, "h", now)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDemoFindResetTokenDoesNotConsume(t *testing.T) {
	demo := newTestDemo(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, demo.CreateResetToken(ctx, &models.ResetToken{UserID: "user-2", TokenHash: "h", ExpiresAt: now.Add(time.Hour)}))
	for i := 0; i < 2; i++ {
		token, err := demo.FindResetToken(ctx, "h", now)
		require.NoError(t, err)
		assert.Equal(t, "user-2", token.UserID)
	}
	_, err := demo.ConsumeResetToken(ctx, "h", now)
	require.NoError(t, err)
	_, err = demo.FindResetToken(ctx, "h", now)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = demo.FindResetToken(ctx, "h", now.Add(2*time.Hour))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDemoSessionOpenUntilEnded(t *testing.T) {
	demo := newTestDemo(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, demo.CreateSession(ctx, &models.SessionRecord{UserID: "user-2", TokenHash: "a", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, demo.CreateSession(ctx, &models.SessionRecord{UserID: "user-2", TokenHash: "b", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}))

	open, err := demo.IsSessionOpen(ctx, "a", now)
	require.NoError(t, err)
	assert.True(t, open)

	open, _ = demo.IsSessionOpen(ctx, "a", now.Add(2*time.Hour))
	assert.False(t, open, "expired row")
	open, _ = demo.IsSessionOpen(ctx, "unknown", now)
	assert.False(t, open)

	require.NoError(t, demo.EndSession(ctx, "a", now))
	open, _ = demo.IsSessionOpen(ctx, "a", now)
	assert.False(t, open)
	open, _ = demo.IsSessionOpen(ctx, "b", now)
	assert.True(t, open)

	require.NoError(t, demo.EndAccountSessions(ctx, "user-2", now))
	open, _ = demo.IsSessionOpen(ctx, "b", now)
	assert.False(t, open)
}

func TestDemoAuditListAndPurge(t *testing.T) {
	demo := newTestDemo(t)
	ctx := context.Background()
	old := time.Now().Add(-100 * 24 * time.Hour)

	require.NoError(t, demo.AppendAudit(ctx, &models.AuditLogEntry{Action: "old", CreatedAt: old}))
	require.NoError(t, demo.AppendAudit(ctx, &models.AuditLogEntry{Action: "new"}))

	entries, err := demo.ListAudit(ctx, nil, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "new", entries[0].Action)

	purged, err := demo.PurgeAuditBefore(ctx, time.Now().Add(-90*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)
}

func TestDemoExecSQLUnavailable(t *testing.T) {
	demo := newTestDemo(t)
	assert.ErrorIs(t, demo.ExecSQL(context.Background(), "SELECT 1"), ErrDemoMode)
}

func testConfig(mode, serviceKey string) *config.Config {
	return &config.Config{
		Backend: config.BackendConfig{Mode: mode, ServiceRoleKey: serviceKey},
		Admin:   config.AdminConfig{DefaultEmail: "admin@example.com", DefaultPassword: "admin1234", DemoUserPassword: "demo1234"},
	}
}

func failingConnect(context.Context, config.DatabaseConfig) (*sqlx.DB, error) {
	return nil, errors.New("connection refused")
}

func TestOpenAutoWithoutKeyFallsBackToDemo(t *testing.T) {
	called := false
	connect := func(context.Context, config.DatabaseConfig) (*sqlx.DB, error) {
		called = true
		return nil, errors.New("unexpected")
	}
	b, sel, err := Open(context.Background(), testConfig(config.BackendModeAuto, ""), nil, Options{Connect: connect, HashCost: bcrypt.MinCost})
	require.NoError(t, err)
	assert.Equal(t, ModeDemo, b.Mode())
	assert.Equal(t, "service-role key not configured", sel.Reason)
	assert.Contains(t, sel.Banner(), "Demo mode")
	assert.False(t, called)
}

func TestOpenAutoUnreachableFallsBackToDemo(t *testing.T) {
	b, sel, err := Open(context.Background(), testConfig(config.BackendModeAuto, "key"), nil, Options{Connect: failingConnect, HashCost: bcrypt.MinCost})
	require.NoError(t, err)
	assert.Equal(t, ModeDemo, b.Mode())
	assert.Equal(t, "backend unreachable", sel.Reason)
}

func TestOpenLiveFailsHard(t *testing.T) {
	_, _, err := Open(context.Background(), testConfig(config.BackendModeLive, ""), nil, Options{Connect: failingConnect})
	assert.Error(t, err)

	_, _, err = Open(context.Background(), testConfig(config.BackendModeLive, "key"), nil, Options{Connect: failingConnect})
	assert.Error(t, err)
}

func TestOpenDemoForced(t *testing.T) {
	b, sel, err := Open(context.Background(), testConfig(config.BackendModeDemo, "key"), nil, Options{Connect: failingConnect, HashCost: bcrypt.MinCost})
	require.NoError(t, err)
	assert.Equal(t, ModeDemo, b.Mode())
	assert.Equal(t, ModeDemo, sel.Mode)
}
