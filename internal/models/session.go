package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionTTL is the default lifetime of a session measured from its creation.
const SessionTTL = 24 * time.Hour

// Session is a time-bounded proof of authentication.
type Session struct {
	Token     string      `json:"token"`
	AccountID string      `json:"account_id"`
	Email     string      `json:"email"`
	FullName  string      `json:"full_name"`
	Role      AccountRole `json:"role"`
	CreatedAt time.Time   `json:"created_at"`
}

// Clear zeroes every session field.
func (s *Session) Clear() {
	if s == nil {
		return
	}
	*s = Session{}
}

// SessionMeta describes the client that opened a session.
type SessionMeta struct {
	IPAddress string
	UserAgent string
}

// SessionRecord is the persisted user_sessions row.
type SessionRecord struct {
	ID        string     `db:"id" json:"id"`
	UserID    string     `db:"user_id" json:"user_id"`
	TokenHash string     `db:"session_token" json:"-"`
	IPAddress string     `db:"ip_address" json:"ip_address"`
	UserAgent string     `db:"user_agent" json:"user_agent"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	ExpiresAt time.Time  `db:"expires_at" json:"expires_at"`
	EndedAt   *time.Time `db:"ended_at" json:"ended_at,omitempty"`
}

// SessionClaims is the JWT payload carried by bearer clients.
type SessionClaims struct {
	AccountID string      `json:"account_id"`
	Email     string      `json:"email"`
	FullName  string      `json:"full_name"`
	Role      AccountRole `json:"role"`
	jwt.RegisteredClaims
}

// PendingKind enumerates row actions that wait for confirmation.
type PendingKind string

const (
	PendingEdit          PendingKind = "edit"
	PendingResetPassword PendingKind = "reset_password"
	PendingDelete        PendingKind = "delete"
)

// ParsePendingKind validates a pending action kind.
func ParsePendingKind(value string) (PendingKind, bool) {
	switch kind := PendingKind(value); kind {
	case PendingEdit, PendingResetPassword, PendingDelete:
		return kind, true
	}
	return "", false
}

// PendingAction is a staged per-row action awaiting confirmation.
type PendingAction struct {
	Kind      PendingKind `json:"kind"`
	AccountID string      `json:"account_id"`
	StagedAt  time.Time   `json:"staged_at"`
}
