package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/userflow-api/internal/models"
)

// PreferencesRepository persists user_preferences rows.
type PreferencesRepository struct {
	db *sqlx.DB
}

// NewPreferencesRepository creates a new instance of PreferencesRepository.
func NewPreferencesRepository(db *sqlx.DB) *PreferencesRepository {
	return &PreferencesRepository{db: db}
}

// Get returns the preferences of an account.
func (r *PreferencesRepository) Get(ctx context.Context, userID string) (*models.Preferences, error) {
	const query = `SELECT user_id, theme, language, timezone, notifications, privacy, updated_at FROM user_preferences WHERE user_id = $1`
	var prefs models.Preferences
	if err := r.db.GetContext(ctx, &prefs, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get preferences: %w", err)
	}
	return &prefs, nil
}

// Upsert inserts or replaces the preferences row.
func (r *PreferencesRepository) Upsert(ctx context.Context, prefs *models.Preferences) error {
	prefs.UpdatedAt = time.Now().UTC()
	const query = `INSERT INTO user_preferences (user_id, theme, language, timezone, notifications, privacy, updated_at) ` +
		`VALUES (:user_id, :theme, :language, :timezone, :notifications, :privacy, :updated_at) ` +
		`ON CONFLICT (user_id) DO UPDATE SET theme = EXCLUDED.theme, language = EXCLUDED.language, timezone = EXCLUDED.timezone, ` +
		`notifications = EXCLUDED.notifications, privacy = EXCLUDED.privacy, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, prefs); err != nil {
		return fmt.Errorf("upsert preferences: %w", err)
	}
	return nil
}
