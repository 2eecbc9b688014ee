package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/userflow-api/internal/models"
)

const accountColumns = `id, email, COALESCE(full_name, '') AS full_name, COALESCE(avatar_url, '') AS avatar_url, role, status, ` +
	`COALESCE(phone, '') AS phone, COALESCE(department, '') AS department, COALESCE(job_title, '') AS job_title, ` +
	`COALESCE(bio, '') AS bio, COALESCE(location, '') AS location, COALESCE(website, '') AS website, ` +
	`email_notifications, totp_enabled, COALESCE(totp_secret, '') AS totp_secret, last_login, created_at, updated_at`

var (
	listAccountsQuery   = `SELECT ` + accountColumns + ` FROM profiles ORDER BY created_at DESC`
	findAccountQuery    = `SELECT ` + accountColumns + ` FROM profiles WHERE id = $1 LIMIT 1`
	findByEmailQuery    = `SELECT ` + accountColumns + ` FROM profiles WHERE email = $1 LIMIT 1`
	searchAccountsQuery = `SELECT ` + accountColumns + ` FROM profiles WHERE LOWER(email) LIKE $1 OR LOWER(COALESCE(full_name, '')) LIKE $1 ORDER BY created_at DESC`
)

const upsertProfileQuery = `INSERT INTO profiles (id, email, full_name, avatar_url, role, status, phone, department, job_title, bio, location, website, email_notifications, created_at, updated_at) ` +
	`VALUES (:id, :email, :full_name, :avatar_url, :role, :status, :phone, :department, :job_title, :bio, :location, :website, :email_notifications, :created_at, :updated_at) ` +
	`ON CONFLICT (id) DO UPDATE SET email = EXCLUDED.email, full_name = EXCLUDED.full_name, avatar_url = EXCLUDED.avatar_url, role = EXCLUDED.role, status = EXCLUDED.status, ` +
	`phone = EXCLUDED.phone, department = EXCLUDED.department, job_title = EXCLUDED.job_title, bio = EXCLUDED.bio, location = EXCLUDED.location, ` +
	`website = EXCLUDED.website, email_notifications = EXCLUDED.email_notifications, updated_at = EXCLUDED.updated_at`

// AccountRepository reads and writes the profiles table.
type AccountRepository struct {
	db *sqlx.DB
}

// NewAccountRepository creates a new instance of AccountRepository.
func NewAccountRepository(db *sqlx.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// List returns every profile, newest first.
func (r *AccountRepository) List(ctx context.Context) ([]models.Account, error) {
	var accounts []models.Account
	if err := r.db.SelectContext(ctx, &accounts, listAccountsQuery); err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return accounts, nil
}

// FindByID returns a profile by identifier.
func (r *AccountRepository) FindByID(ctx context.Context, id string) (*models.Account, error) {
	var account models.Account
	if err := r.db.GetContext(ctx, &account, findAccountQuery, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find account by id: %w", err)
	}
	return &account, nil
}

// FindByEmail returns a profile by its lower-cased email.
func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	var account models.Account
	if err := r.db.GetContext(ctx, &account, findByEmailQuery, strings.ToLower(email)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find account by email: %w", err)
	}
	return &account, nil
}

// Search matches the query against email or full name, case-insensitively.
func (r *AccountRepository) Search(ctx context.Context, query string) ([]models.Account, error) {
	pattern := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"
	var accounts []models.Account
	if err := r.db.SelectContext(ctx, &accounts, searchAccountsQuery, pattern); err != nil {
		return nil, fmt.Errorf("search accounts: %w", err)
	}
	return accounts, nil
}

// Upsert writes the full profile row, replacing one a trigger may already have created.
func (r *AccountRepository) Upsert(ctx context.Context, account *models.Account) error {
	now := time.Now().UTC()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	account.UpdatedAt = now
	account.Email = strings.ToLower(account.Email)
	if _, err := r.db.NamedExecContext(ctx, upsertProfileQuery, account); err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

// Update applies the set profile fields. Returns sql.ErrNoRows when the id is unknown.
func (r *AccountRepository) Update(ctx context.Context, id string, fields models.ProfileFields) error {
	var (
		sets []string
		args []interface{}
	)
	add := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if fields.FullName != nil {
		add("full_name", *fields.FullName)
	}
	if fields.AvatarURL != nil {
		add("avatar_url", *fields.AvatarURL)
	}
	if fields.Role != nil {
		add("role", *fields.Role)
	}
	if fields.Status != nil {
		add("status", *fields.Status)
	}
	if fields.Phone != nil {
		add("phone", *fields.Phone)
	}
	if fields.Department != nil {
		add("department", *fields.Department)
	}
	if fields.JobTitle != nil {
		add("job_title", *fields.JobTitle)
	}
	if fields.Bio != nil {
		add("bio", *fields.Bio)
	}
	if fields.Location != nil {
		add("location", *fields.Location)
	}
	if fields.Website != nil {
		add("website", *fields.Website)
	}
	if fields.EmailNotifications != nil {
		add("email_notifications", *fields.EmailNotifications)
	}
	if len(sets) == 0 {
		return nil
	}
	add("updated_at", time.Now().UTC())
	args = append(args, id)
	query := fmt.Sprintf("UPDATE profiles SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return expectAffected(res)
}

// SetEmail keeps the profile email in step with the credential row.
func (r *AccountRepository) SetEmail(ctx context.Context, id, email string) error {
	const query = `UPDATE profiles SET email = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, strings.ToLower(email), time.Now().UTC()); err != nil {
		return fmt.Errorf("update profile email: %w", err)
	}
	return nil
}

// Delete removes the profile row.
func (r *AccountRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM profiles WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	return expectAffected(res)
}

// UpdateLastLogin updates the last_login timestamp for an account.
func (r *AccountRepository) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	const query = `UPDATE profiles SET last_login = $2, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, ts); err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}

// SetTOTP stores the authenticator secret and toggles enforcement.
func (r *AccountRepository) SetTOTP(ctx context.Context, id string, enabled bool, secret string) error {
	const query = `UPDATE profiles SET totp_enabled = $2, totp_secret = NULLIF($3, ''), updated_at = $4 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, enabled, secret, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update totp: %w", err)
	}
	return expectAffected(res)
}

func expectAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
