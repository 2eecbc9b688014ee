package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Backend selection modes.
const (
	BackendModeAuto = "auto"
	BackendModeLive = "live"
	BackendModeDemo = "demo"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Backend       BackendConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	Session       SessionConfig
	JWT           JWTConfig
	Admin         AdminConfig
	App           AppConfig
	CORS          CORSConfig
	Log           LogConfig
	Stats         StatsConfig
	Analytics     AnalyticsConfig
	Exports       ExportsConfig
	Audit         AuditConfig
	PasswordReset PasswordResetConfig
	MFA           MFAConfig
}

// BackendConfig describes the hosted backend connection. A missing service-role
// key degrades the process into demo mode.
type BackendConfig struct {
	Mode           string
	URL            string
	AnonKey        string
	ServiceRoleKey string
}

type DatabaseConfig struct {
	URL          string
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// SessionConfig governs the browser session cookie and the fixed session lifetime.
type SessionConfig struct {
	TTL          time.Duration
	Secret       string
	CookieName   string
	CookieSecure bool

	// SweepSchedule is the cron expression for dropping staged row actions
	// of sessions that never came back. Empty disables the sweep.
	SweepSchedule string
}

type JWTConfig struct {
	Secret string
	Issuer string
}

// AdminConfig holds the default administrator credentials used by demo mode and bootstrap.
type AdminConfig struct {
	DefaultEmail     string
	DefaultPassword  string
	DemoUserPassword string
}

// AppConfig carries page chrome settings.
type AppConfig struct {
	PageTitle string
	PageIcon  string
	Layout    string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// StatsConfig tunes account statistics caching.
type StatsConfig struct {
	CacheTTL time.Duration
}

// AnalyticsConfig governs the generated analytics series.
type AnalyticsConfig struct {
	CacheTTL time.Duration
	Days     int
	Seed     int64
}

// ExportsConfig configures asynchronous export generation.
type ExportsConfig struct {
	Enabled           bool
	StorageDir        string
	SignedURLSecret   string
	SignedURLTTL      time.Duration
	CleanupSchedule   string
	WorkerConcurrency int
	WorkerRetries     int
}

// AuditConfig controls audit retention. RetentionDays <= 0 disables purging.
type AuditConfig struct {
	RetentionDays     int
	RetentionSchedule string
}

// PasswordResetConfig tunes the reset email flow.
type PasswordResetConfig struct {
	TokenTTL time.Duration
	URL      string
}

type MFAConfig struct {
	Issuer string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Backend = BackendConfig{
		Mode:           normaliseMode(v.GetString("BACKEND_MODE")),
		URL:            v.GetString("BACKEND_URL"),
		AnonKey:        v.GetString("BACKEND_ANON_KEY"),
		ServiceRoleKey: v.GetString("BACKEND_SERVICE_ROLE_KEY"),
	}

	cfg.Database = DatabaseConfig{
		URL:          cfg.Backend.URL,
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Session = SessionConfig{
		TTL:           parseDuration(v.GetString("SESSION_TTL"), 24*time.Hour),
		Secret:        v.GetString("SESSION_SECRET"),
		CookieName:    v.GetString("SESSION_COOKIE_NAME"),
		CookieSecure:  v.GetBool("SESSION_COOKIE_SECURE"),
		SweepSchedule: v.GetString("SESSION_SWEEP_SCHEDULE"),
	}

	cfg.JWT = JWTConfig{
		Secret: v.GetString("JWT_SECRET"),
		Issuer: v.GetString("JWT_ISSUER"),
	}

	cfg.Admin = AdminConfig{
		DefaultEmail:     strings.ToLower(strings.TrimSpace(v.GetString("DEFAULT_ADMIN_EMAIL"))),
		DefaultPassword:  v.GetString("DEFAULT_ADMIN_PASSWORD"),
		DemoUserPassword: v.GetString("DEMO_USER_PASSWORD"),
	}

	cfg.App = AppConfig{
		PageTitle: v.GetString("PAGE_TITLE"),
		PageIcon:  v.GetString("PAGE_ICON"),
		Layout:    v.GetString("PAGE_LAYOUT"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Stats = StatsConfig{
		CacheTTL: parseDuration(v.GetString("STATS_CACHE_TTL"), time.Minute),
	}

	cfg.Analytics = AnalyticsConfig{
		CacheTTL: parseDuration(v.GetString("ANALYTICS_CACHE_TTL"), 10*time.Minute),
		Days:     v.GetInt("ANALYTICS_DAYS"),
		Seed:     v.GetInt64("ANALYTICS_SEED"),
	}

	cfg.Exports = ExportsConfig{
		Enabled:           v.GetBool("ENABLE_EXPORTS"),
		StorageDir:        v.GetString("EXPORTS_STORAGE_DIR"),
		SignedURLSecret:   v.GetString("EXPORTS_SIGNED_URL_SECRET"),
		SignedURLTTL:      parseDuration(v.GetString("EXPORTS_SIGNED_URL_TTL"), 24*time.Hour),
		CleanupSchedule:   v.GetString("EXPORTS_CLEANUP_SCHEDULE"),
		WorkerConcurrency: v.GetInt("EXPORTS_WORKER_CONCURRENCY"),
		WorkerRetries:     v.GetInt("EXPORTS_WORKER_RETRIES"),
	}

	cfg.Audit = AuditConfig{
		RetentionDays:     v.GetInt("AUDIT_RETENTION_DAYS"),
		RetentionSchedule: v.GetString("AUDIT_RETENTION_SCHEDULE"),
	}

	cfg.PasswordReset = PasswordResetConfig{
		TokenTTL: parseDuration(v.GetString("PASSWORD_RESET_TTL"), time.Hour),
		URL:      v.GetString("PASSWORD_RESET_URL"),
	}

	cfg.MFA = MFAConfig{Issuer: v.GetString("MFA_ISSUER")}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("BACKEND_MODE", BackendModeAuto)
	v.SetDefault("BACKEND_URL", "")
	v.SetDefault("BACKEND_ANON_KEY", "")
	v.SetDefault("BACKEND_SERVICE_ROLE_KEY", "")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "postgres")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("SESSION_TTL", "24h")
	v.SetDefault("SESSION_SECRET", "dev_session_secret_change_me_32b")
	v.SetDefault("SESSION_COOKIE_NAME", "userflow_session")
	v.SetDefault("SESSION_COOKIE_SECURE", false)
	v.SetDefault("SESSION_SWEEP_SCHEDULE", "@every 30m")

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "userflow-api")

	v.SetDefault("DEFAULT_ADMIN_EMAIL", "admin@userflow.local")
	v.SetDefault("DEFAULT_ADMIN_PASSWORD", "admin1234")
	v.SetDefault("DEMO_USER_PASSWORD", "demo1234")

	v.SetDefault("PAGE_TITLE", "UserFlow Admin")
	v.SetDefault("PAGE_ICON", "👥")
	v.SetDefault("PAGE_LAYOUT", "wide")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("STATS_CACHE_TTL", "1m")
	v.SetDefault("ANALYTICS_CACHE_TTL", "10m")
	v.SetDefault("ANALYTICS_DAYS", 30)
	v.SetDefault("ANALYTICS_SEED", 42)

	v.SetDefault("ENABLE_EXPORTS", true)
	v.SetDefault("EXPORTS_STORAGE_DIR", "./exports")
	v.SetDefault("EXPORTS_SIGNED_URL_SECRET", "dev_exports_secret")
	v.SetDefault("EXPORTS_SIGNED_URL_TTL", "24h")
	v.SetDefault("EXPORTS_CLEANUP_SCHEDULE", "@hourly")
	v.SetDefault("EXPORTS_WORKER_CONCURRENCY", 1)
	v.SetDefault("EXPORTS_WORKER_RETRIES", 2)

	v.SetDefault("AUDIT_RETENTION_DAYS", 0)
	v.SetDefault("AUDIT_RETENTION_SCHEDULE", "0 3 * * *")

	v.SetDefault("PASSWORD_RESET_TTL", "1h")
	v.SetDefault("PASSWORD_RESET_URL", "http://localhost:8080/reset-password")

	v.SetDefault("MFA_ISSUER", "UserFlow")
}

func normaliseMode(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case BackendModeLive:
		return BackendModeLive
	case BackendModeDemo:
		return BackendModeDemo
	default:
		return BackendModeAuto
	}
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
