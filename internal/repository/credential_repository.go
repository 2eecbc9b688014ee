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

// CredentialRepository manages sign-in identities in auth.users.
type CredentialRepository struct {
	db *sqlx.DB
}

// NewCredentialRepository creates a new instance of CredentialRepository.
func NewCredentialRepository(db *sqlx.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

// Create inserts a credential and returns its generated id.
func (r *CredentialRepository) Create(ctx context.Context, email, passwordHash, fullName string) (string, error) {
	const query = `INSERT INTO auth.users (email, encrypted_password, raw_user_meta_data, email_confirmed_at, created_at, updated_at) VALUES ($1, $2, jsonb_build_object('full_name', $3::text), $4, $4, $4) RETURNING id`
	var id string
	if err := r.db.QueryRowxContext(ctx, query, strings.ToLower(email), passwordHash, fullName, time.Now().UTC()).Scan(&id); err != nil {
		return "", fmt.Errorf("create credential: %w", err)
	}
	return id, nil
}

// FindByEmail returns the credential for an email address.
func (r *CredentialRepository) FindByEmail(ctx context.Context, email string) (*models.Credential, error) {
	const query = `SELECT id, email, encrypted_password, created_at FROM auth.users WHERE email = $1 LIMIT 1`
	var cred models.Credential
	if err := r.db.GetContext(ctx, &cred, query, strings.ToLower(email)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find credential by email: %w", err)
	}
	return &cred, nil
}

// FindByID returns the credential by identifier.
func (r *CredentialRepository) FindByID(ctx context.Context, id string) (*models.Credential, error) {
	const query = `SELECT id, email, encrypted_password, created_at FROM auth.users WHERE id = $1 LIMIT 1`
	var cred models.Credential
	if err := r.db.GetContext(ctx, &cred, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find credential by id: %w", err)
	}
	return &cred, nil
}

// Update changes the email and/or password hash.
func (r *CredentialRepository) Update(ctx context.Context, id string, fields models.CredentialFields) error {
	if fields.IsEmpty() {
		return nil
	}
	var (
		sets []string
		args []interface{}
	)
	if fields.Email != nil {
		args = append(args, strings.ToLower(*fields.Email))
		sets = append(sets, fmt.Sprintf("email = $%d", len(args)))
	}
	if fields.PasswordHash != nil {
		args = append(args, *fields.PasswordHash)
		sets = append(sets, fmt.Sprintf("encrypted_password = $%d", len(args)))
	}
	args = append(args, time.Now().UTC(), id)
	query := fmt.Sprintf("UPDATE auth.users SET %s, updated_at = $%d WHERE id = $%d", strings.Join(sets, ", "), len(args)-1, len(args))
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update credential: %w", err)
	}
	return expectAffected(res)
}

// TouchSignIn records the sign-in time on the credential row.
func (r *CredentialRepository) TouchSignIn(ctx context.Context, id string, ts time.Time) error {
	const query = `UPDATE auth.users SET last_sign_in_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, ts); err != nil {
		return fmt.Errorf("touch sign in: %w", err)
	}
	return nil
}

// Delete removes the credential row.
func (r *CredentialRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM auth.users WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	return expectAffected(res)
}
