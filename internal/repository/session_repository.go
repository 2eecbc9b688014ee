package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/userflow-api/internal/models"
)

// SessionRepository tracks sign-in sessions in user_sessions.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository creates a new instance of SessionRepository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create persists a session row.
func (r *SessionRepository) Create(ctx context.Context, record *models.SessionRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	const query = `INSERT INTO user_sessions (id, user_id, session_token, ip_address, user_agent, created_at, expires_at) VALUES (:id, :user_id, :session_token, :ip_address, :user_agent, :created_at, :expires_at)`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// End marks a session row closed.
func (r *SessionRepository) End(ctx context.Context, tokenHash string, endedAt time.Time) error {
	const query = `UPDATE user_sessions SET ended_at = $2 WHERE session_token = $1 AND ended_at IS NULL`
	if _, err := r.db.ExecContext(ctx, query, tokenHash, endedAt); err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	return nil
}

// IsOpen reports whether the session row is neither ended nor expired at now.
func (r *SessionRepository) IsOpen(ctx context.Context, tokenHash string, now time.Time) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM user_sessions WHERE session_token = $1 AND ended_at IS NULL AND expires_at > $2)`
	var open bool
	if err := r.db.GetContext(ctx, &open, query, tokenHash, now); err != nil {
		return false, fmt.Errorf("check session: %w", err)
	}
	return open, nil
}

// EndForUser closes every open session row belonging to userID.
func (r *SessionRepository) EndForUser(ctx context.Context, userID string, endedAt time.Time) error {
	const query = `UPDATE user_sessions SET ended_at = $2 WHERE user_id = $1 AND ended_at IS NULL`
	if _, err := r.db.ExecContext(ctx, query, userID, endedAt); err != nil {
		return fmt.Errorf("end user sessions: %w", err)
	}
	return nil
}
