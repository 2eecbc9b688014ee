package backend

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/userflow-api/internal/models"
	"github.com/noah-isme/userflow-api/internal/repository"
)

const uniqueViolation = "23505"

// Live talks to the hosted Postgres database through the repositories.
type Live struct {
	db          *sqlx.DB
	accounts    *repository.AccountRepository
	credentials *repository.CredentialRepository
	preferences *repository.PreferencesRepository
	audit       *repository.AuditRepository
	sessions    *repository.SessionRepository
	resets      *repository.ResetTokenRepository
	schema      *repository.SchemaRepository
}

// NewLive wires the repositories over an open database handle.
func NewLive(db *sqlx.DB) *Live {
	return &Live{
		db:          db,
		accounts:    repository.NewAccountRepository(db),
		credentials: repository.NewCredentialRepository(db),
		preferences: repository.NewPreferencesRepository(db),
		audit:       repository.NewAuditRepository(db),
		sessions:    repository.NewSessionRepository(db),
		resets:      repository.NewResetTokenRepository(db),
		schema:      repository.NewSchemaRepository(db),
	}
}

// Mode implements Backend.
func (l *Live) Mode() Mode { return ModeLive }

// Ping verifies the connection.
func (l *Live) Ping(ctx context.Context) error {
	return l.db.PingContext(ctx)
}

// Close releases the database handle.
func (l *Live) Close() error {
	return l.db.Close()
}

func (l *Live) ListAccounts(ctx context.Context) ([]models.Account, error) {
	return l.accounts.List(ctx)
}

func (l *Live) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	account, err := l.accounts.FindByID(ctx, id)
	return account, translate(err)
}

func (l *Live) FindAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	account, err := l.accounts.FindByEmail(ctx, email)
	return account, translate(err)
}

func (l *Live) SearchAccounts(ctx context.Context, query string) ([]models.Account, error) {
	return l.accounts.Search(ctx, query)
}

func (l *Live) UpsertProfile(ctx context.Context, account *models.Account) error {
	return translate(l.accounts.Upsert(ctx, account))
}

func (l *Live) UpdateProfile(ctx context.Context, id string, fields models.ProfileFields) error {
	return translate(l.accounts.Update(ctx, id, fields))
}

func (l *Live) DeleteProfile(ctx context.Context, id string) error {
	return translate(l.accounts.Delete(ctx, id))
}

// RecordLogin stamps both the profile and the credential row.
func (l *Live) RecordLogin(ctx context.Context, id string, at time.Time) error {
	if err := l.accounts.UpdateLastLogin(ctx, id, at); err != nil {
		return err
	}
	return l.credentials.TouchSignIn(ctx, id, at)
}

func (l *Live) SetTOTP(ctx context.Context, id string, enabled bool, secret string) error {
	return translate(l.accounts.SetTOTP(ctx, id, enabled, secret))
}

func (l *Live) CreateCredential(ctx context.Context, email, passwordHash, fullName string) (string, error) {
	id, err := l.credentials.Create(ctx, email, passwordHash, fullName)
	return id, translate(err)
}

func (l *Live) GetCredential(ctx context.Context, id string) (*models.Credential, error) {
	cred, err := l.credentials.FindByID(ctx, id)
	return cred, translate(err)
}

func (l *Live) GetCredentialByEmail(ctx context.Context, email string) (*models.Credential, error) {
	cred, err := l.credentials.FindByEmail(ctx, email)
	return cred, translate(err)
}

// UpdateCredential changes the credential row and mirrors an email change onto the profile.
func (l *Live) UpdateCredential(ctx context.Context, id string, fields models.CredentialFields) error {
	if err := translate(l.credentials.Update(ctx, id, fields)); err != nil {
		return err
	}
	if fields.Email != nil {
		return translate(l.accounts.SetEmail(ctx, id, *fields.Email))
	}
	return nil
}

func (l *Live) DeleteCredential(ctx context.Context, id string) error {
	return translate(l.credentials.Delete(ctx, id))
}

func (l *Live) GetPreferences(ctx context.Context, userID string) (*models.Preferences, error) {
	prefs, err := l.preferences.Get(ctx, userID)
	return prefs, translate(err)
}

func (l *Live) UpsertPreferences(ctx context.Context, prefs *models.Preferences) error {
	return l.preferences.Upsert(ctx, prefs)
}

func (l *Live) AppendAudit(ctx context.Context, entry *models.AuditLogEntry) error {
	return l.audit.Create(ctx, entry)
}

func (l *Live) ListAudit(ctx context.Context, since *time.Time, limit int) ([]models.AuditLogEntry, error) {
	return l.audit.List(ctx, since, limit)
}

func (l *Live) PurgeAuditBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return l.audit.DeleteBefore(ctx, cutoff)
}

func (l *Live) CreateSession(ctx context.Context, record *models.SessionRecord) error {
	return l.sessions.Create(ctx, record)
}

func (l *Live) EndSession(ctx context.Context, tokenHash string, endedAt time.Time) error {
	return l.sessions.End(ctx, tokenHash, endedAt)
}

func (l *Live) IsSessionOpen(ctx context.Context, tokenHash string, now time.Time) (bool, error) {
	return l.sessions.IsOpen(ctx, tokenHash, now)
}

func (l *Live) EndAccountSessions(ctx context.Context, accountID string, endedAt time.Time) error {
	return l.sessions.EndForUser(ctx, accountID, endedAt)
}

func (l *Live) FindResetToken(ctx context.Context, tokenHash string, now time.Time) (*models.ResetToken, error) {
	token, err := l.resets.Find(ctx, tokenHash, now)
	return token, translate(err)
}

func (l *Live) CreateResetToken(ctx context.Context, token *models.ResetToken) error {
	return l.resets.Create(ctx, token)
}

func (l *Live) ConsumeResetToken(ctx context.Context, tokenHash string, now time.Time) (*models.ResetToken, error) {
	token, err := l.resets.Consume(ctx, tokenHash, now)
	return token, translate(err)
}

func (l *Live) ExecSQL(ctx context.Context, statement string) error {
	return l.schema.Exec(ctx, statement)
}

func (l *Live) TableExists(ctx context.Context, name string) (bool, error) {
	return l.schema.TableExists(ctx, name)
}

// translate maps driver errors onto the backend sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", ErrConflict, pqErr.Constraint)
	}
	return err
}
