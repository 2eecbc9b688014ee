package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/userflow-api/internal/models"
)

// ResetTokenRepository stores hashed password reset tokens.
type ResetTokenRepository struct {
	db *sqlx.DB
}

// NewResetTokenRepository creates a new instance of ResetTokenRepository.
func NewResetTokenRepository(db *sqlx.DB) *ResetTokenRepository {
	return &ResetTokenRepository{db: db}
}

// Create persists a reset token.
func (r *ResetTokenRepository) Create(ctx context.Context, token *models.ResetToken) error {
	if token.ID == "" {
		token.ID = uuid.NewString()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO password_reset_tokens (id, user_id, token, expires_at, created_at) VALUES (:id, :user_id, :token, :expires_at, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, token); err != nil {
		return fmt.Errorf("create reset token: %w", err)
	}
	return nil
}

// Consume marks an unused, unexpired token as used and returns it.
// Returns sql.ErrNoRows when no such token exists.
func (r *ResetTokenRepository) Consume(ctx context.Context, tokenHash string, now time.Time) (*models.ResetToken, error) {
	const query = `UPDATE password_reset_tokens SET used_at = $2 WHERE token = $1 AND used_at IS NULL AND expires_at > $2 RETURNING id, user_id, token, expires_at, used_at, created_at`
	var token models.ResetToken
	if err := r.db.GetContext(ctx, &token, query, tokenHash, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("consume reset token: %w", err)
	}
	return &token, nil
}

// Find returns an unused, unexpired token without marking it used.
// Returns sql.ErrNoRows when no such token exists.
func (r *ResetTokenRepository) Find(ctx context.Context, tokenHash string, now time.Time) (*models.ResetToken, error) {
	const query = `SELECT id, user_id, token, expires_at, used_at, created_at FROM password_reset_tokens WHERE token = $1 AND used_at IS NULL AND expires_at > $2`
	var token models.ResetToken
	if err := r.db.GetContext(ctx, &token, query, tokenHash, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find reset token: %w", err)
	}
	return &token, nil
}
