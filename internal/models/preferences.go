package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Theme enumerates the dashboard colour schemes.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
	ThemeAuto  Theme = "auto"
)

// NotificationSettings toggles delivery channels.
type NotificationSettings struct {
	Email bool `json:"email"`
	Push  bool `json:"push"`
	SMS   bool `json:"sms"`
}

// Value marshals the settings for a JSONB column.
func (n NotificationSettings) Value() (driver.Value, error) {
	return json.Marshal(n)
}

// Scan decodes a JSONB column.
func (n *NotificationSettings) Scan(value interface{}) error {
	return scanJSON(value, n)
}

// PrivacySettings controls profile visibility.
type PrivacySettings struct {
	ProfileVisible bool `json:"profile_visible"`
	EmailVisible   bool `json:"email_visible"`
}

// Value marshals the settings for a JSONB column.
func (p PrivacySettings) Value() (driver.Value, error) {
	return json.Marshal(p)
}

// Scan decodes a JSONB column.
func (p *PrivacySettings) Scan(value interface{}) error {
	return scanJSON(value, p)
}

// Preferences are per-account display and notification settings.
type Preferences struct {
	UserID        string               `db:"user_id" json:"user_id"`
	Theme         Theme                `db:"theme" json:"theme" validate:"required,oneof=light dark auto"`
	Language      string               `db:"language" json:"language" validate:"required,min=2,max=10"`
	Timezone      string               `db:"timezone" json:"timezone" validate:"required,timezone"`
	Notifications NotificationSettings `db:"notifications" json:"notifications"`
	Privacy       PrivacySettings      `db:"privacy" json:"privacy"`
	UpdatedAt     time.Time            `db:"updated_at" json:"updated_at"`
}

// DefaultPreferences returns the settings used before an account saves its own.
func DefaultPreferences(userID string) Preferences {
	return Preferences{
		UserID:        userID,
		Theme:         ThemeLight,
		Language:      "en",
		Timezone:      "UTC",
		Notifications: NotificationSettings{Email: true},
		Privacy:       PrivacySettings{ProfileVisible: true},
	}
}

func scanJSON(value interface{}, target interface{}) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for %T", value, target)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("unmarshal %T: %w", target, err)
	}
	return nil
}
