package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("BACKEND_SERVICE_ROLE_KEY", "")
	t.Setenv("BACKEND_MODE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendModeAuto, cfg.Backend.Mode)
	assert.Equal(t, 24*time.Hour, cfg.Session.TTL)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, 30, cfg.Analytics.Days)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("BACKEND_MODE", "LIVE")
	t.Setenv("DEFAULT_ADMIN_EMAIL", "  Root@Example.COM ")
	t.Setenv("SESSION_TTL", "not-a-duration")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, ,http://b.test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendModeLive, cfg.Backend.Mode)
	assert.Equal(t, "root@example.com", cfg.Admin.DefaultEmail)
	assert.Equal(t, 24*time.Hour, cfg.Session.TTL)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORS.AllowedOrigins)
}
