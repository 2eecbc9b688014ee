// Package backend defines the boundary to the hosted account store and its
// two implementations: Live (Postgres) and Demo (in-memory).
package backend

import (
	"context"
	"errors"
	"time"

	"github.com/noah-isme/userflow-api/internal/models"
)

// Mode names the selected backend variant.
type Mode string

const (
	ModeLive Mode = "live"
	ModeDemo Mode = "demo"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a unique value is already taken.
	ErrConflict = errors.New("record already exists")
	// ErrDemoMode is returned by operations the demo variant cannot perform.
	ErrDemoMode = errors.New("not available in demo mode")
)

// AccountStore reads and writes account profiles.
type AccountStore interface {
	ListAccounts(ctx context.Context) ([]models.Account, error)
	GetAccount(ctx context.Context, id string) (*models.Account, error)
	FindAccountByEmail(ctx context.Context, email string) (*models.Account, error)
	SearchAccounts(ctx context.Context, query string) ([]models.Account, error)
	UpsertProfile(ctx context.Context, account *models.Account) error
	UpdateProfile(ctx context.Context, id string, fields models.ProfileFields) error
	DeleteProfile(ctx context.Context, id string) error
	RecordLogin(ctx context.Context, id string, at time.Time) error
	SetTOTP(ctx context.Context, id string, enabled bool, secret string) error
}

// CredentialStore manages the sign-in identity of an account.
type CredentialStore interface {
	CreateCredential(ctx context.Context, email, passwordHash, fullName string) (string, error)
	GetCredential(ctx context.Context, id string) (*models.Credential, error)
	GetCredentialByEmail(ctx context.Context, email string) (*models.Credential, error)
	UpdateCredential(ctx context.Context, id string, fields models.CredentialFields) error
	DeleteCredential(ctx context.Context, id string) error
}

// PreferenceStore persists per-account preferences.
type PreferenceStore interface {
	GetPreferences(ctx context.Context, userID string) (*models.Preferences, error)
	UpsertPreferences(ctx context.Context, prefs *models.Preferences) error
}

// AuditStore appends and reads audit entries.
type AuditStore interface {
	AppendAudit(ctx context.Context, entry *models.AuditLogEntry) error
	ListAudit(ctx context.Context, since *time.Time, limit int) ([]models.AuditLogEntry, error)
	PurgeAuditBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// SessionStore records session lifecycles.
type SessionStore interface {
	CreateSession(ctx context.Context, record *models.SessionRecord) error
	EndSession(ctx context.Context, tokenHash string, endedAt time.Time) error
	// IsSessionOpen reports whether the session row exists, has not been
	// ended and has not passed its expiry at now.
	IsSessionOpen(ctx context.Context, tokenHash string, now time.Time) (bool, error)
	EndAccountSessions(ctx context.Context, accountID string, endedAt time.Time) error
}

// ResetTokenStore keeps hashed password reset tokens.
type ResetTokenStore interface {
	CreateResetToken(ctx context.Context, token *models.ResetToken) error
	// FindResetToken returns an unused, unexpired token without consuming it.
	FindResetToken(ctx context.Context, tokenHash string, now time.Time) (*models.ResetToken, error)
	ConsumeResetToken(ctx context.Context, tokenHash string, now time.Time) (*models.ResetToken, error)
}

// SQLExecutor runs raw statements against the backend database.
type SQLExecutor interface {
	ExecSQL(ctx context.Context, statement string) error
	TableExists(ctx context.Context, name string) (bool, error)
}

// Backend is everything the service needs from the account platform.
type Backend interface {
	AccountStore
	CredentialStore
	PreferenceStore
	AuditStore
	SessionStore
	ResetTokenStore
	SQLExecutor

	Mode() Mode
	Ping(ctx context.Context) error
	Close() error
}
