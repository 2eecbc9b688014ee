package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/userflow-api/internal/backend"
	"github.com/noah-isme/userflow-api/internal/models"
	appErrors "github.com/noah-isme/userflow-api/pkg/errors"
)

type sessionStore interface {
	CreateSession(ctx context.Context, record *models.SessionRecord) error
	EndSession(ctx context.Context, tokenHash string, endedAt time.Time) error
	IsSessionOpen(ctx context.Context, tokenHash string, now time.Time) (bool, error)
	GetAccount(ctx context.Context, id string) (*models.Account, error)
}

// SessionConfig configures session lifetime and bearer token signing.
type SessionConfig struct {
	TTL    time.Duration
	Secret string
	Issuer string
}

// SessionService starts, validates and ends sessions. There is no renewal:
// a session older than its TTL must be replaced by signing in again. With a
// store attached every request is checked against the session row and the
// account behind it, so logout and account changes take effect at once.
type SessionService struct {
	store   sessionStore
	pending *PendingActions
	cfg     SessionConfig
	logger  *zap.Logger
	now     func() time.Time
}

// NewSessionService constructs the session service.
func NewSessionService(store sessionStore, pending *PendingActions, cfg SessionConfig, logger *zap.Logger) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = models.SessionTTL
	}
	if pending == nil {
		pending = NewPendingActions()
	}
	return &SessionService{store: store, pending: pending, cfg: cfg, logger: logger, now: time.Now}
}

// TTL returns the configured session lifetime.
func (s *SessionService) TTL() time.Duration {
	return s.cfg.TTL
}

// Pending exposes the pending-action store bound to these sessions.
func (s *SessionService) Pending() *PendingActions {
	return s.pending
}

// Start opens a new session for account.
func (s *SessionService) Start(ctx context.Context, account models.Account, meta models.SessionMeta) (*models.Session, error) {
	token, err := randomToken(32)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create session")
	}
	now := s.now().UTC()
	session := &models.Session{
		Token:     token,
		AccountID: account.ID,
		Email:     account.Email,
		FullName:  account.FullName,
		Role:      account.Role,
		CreatedAt: now,
	}
	if s.store != nil {
		record := &models.SessionRecord{
			ID:        uuid.NewString(),
			UserID:    account.ID,
			TokenHash: hashToken(token),
			IPAddress: meta.IPAddress,
			UserAgent: meta.UserAgent,
			CreatedAt: now,
			ExpiresAt: now.Add(s.cfg.TTL),
		}
		if err := s.store.CreateSession(ctx, record); err != nil {
			s.logger.Error("failed to record session", zap.String("account_id", account.ID), zap.Error(err))
			return nil, appErrors.Wrap(err, appErrors.ErrBackend.Code, appErrors.ErrBackend.Status, "failed to create session")
		}
	}
	return session, nil
}

// IsAuthenticated reports whether the session carries an identity.
func (s *SessionService) IsAuthenticated(session *models.Session) bool {
	return session != nil && session.Token != "" && session.AccountID != ""
}

// ValidateSession fails closed. An expired session is cleared and any staged
// pending action is dropped.
func (s *SessionService) ValidateSession(session *models.Session) bool {
	if !s.IsAuthenticated(session) || session.CreatedAt.IsZero() {
		s.invalidate(session)
		return false
	}
	if s.now().Sub(session.CreatedAt) > s.cfg.TTL {
		s.invalidate(session)
		return false
	}
	return true
}

// Verify runs ValidateSession and then checks the server side: the session
// row must still be open and the account must exist and be active. Role,
// email and name are refreshed from the account. Store errors fail closed.
func (s *SessionService) Verify(ctx context.Context, session *models.Session) error {
	if !s.IsAuthenticated(session) {
		return appErrors.ErrUnauthorized
	}
	if !s.ValidateSession(session) {
		return appErrors.ErrSessionExpired
	}
	if s.store == nil {
		return nil
	}

	open, err := s.store.IsSessionOpen(ctx, hashToken(session.Token), s.now().UTC())
	if err != nil {
		s.logger.Error("failed to check session record", zap.String("account_id", session.AccountID), zap.Error(err))
		return appErrors.Clone(appErrors.ErrBackend, "could not verify session")
	}
	if !open {
		s.invalidate(session)
		return appErrors.Clone(appErrors.ErrUnauthorized, "session has ended")
	}

	account, err := s.store.GetAccount(ctx, session.AccountID)
	switch {
	case errors.Is(err, backend.ErrNotFound):
		s.End(ctx, session)
		return appErrors.Clone(appErrors.ErrUnauthorized, "account no longer exists")
	case err != nil:
		s.logger.Error("failed to load session account", zap.String("account_id", session.AccountID), zap.Error(err))
		return appErrors.Clone(appErrors.ErrBackend, "could not verify session")
	case !account.IsActive():
		s.End(ctx, session)
		return appErrors.Clone(appErrors.ErrUnauthorized, "account is not active")
	}
	session.Email = account.Email
	session.FullName = account.FullName
	session.Role = account.Role
	return nil
}

// ExpiresAt returns when the session stops validating.
func (s *SessionService) ExpiresAt(session *models.Session) time.Time {
	if session == nil {
		return time.Time{}
	}
	return session.CreatedAt.Add(s.cfg.TTL)
}

// End closes the session record and wipes the session.
func (s *SessionService) End(ctx context.Context, session *models.Session) {
	if session == nil {
		return
	}
	if s.store != nil && session.Token != "" {
		if err := s.store.EndSession(ctx, hashToken(session.Token), s.now().UTC()); err != nil {
			s.logger.Warn("failed to close session record", zap.String("account_id", session.AccountID), zap.Error(err))
		}
	}
	s.invalidate(session)
}

func (s *SessionService) invalidate(session *models.Session) {
	if session == nil {
		return
	}
	if session.Token != "" {
		s.pending.Drop(session.Token)
	}
	session.Clear()
}

// IssueToken signs the session into an HS256 bearer token.
func (s *SessionService) IssueToken(session *models.Session) (string, time.Time, error) {
	if !s.IsAuthenticated(session) {
		return "", time.Time{}, appErrors.ErrUnauthorized
	}
	expiresAt := s.ExpiresAt(session)
	claims := models.SessionClaims{
		AccountID: session.AccountID,
		Email:     session.Email,
		FullName:  session.FullName,
		Role:      session.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        session.Token,
			Subject:   session.AccountID,
			Issuer:    s.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(session.CreatedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return "", time.Time{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign session token")
	}
	return signed, expiresAt, nil
}

// ParseToken verifies a bearer token and rebuilds the session it carries.
// The caller still runs Verify.
func (s *SessionService) ParseToken(raw string) (*models.Session, error) {
	claims := &models.SessionClaims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithLeeway(time.Second),
	)
	token, err := parser.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.Secret), nil
	})
	if err != nil || !token.Valid {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, appErrors.ErrSessionExpired
		}
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid session token")
	}
	if s.cfg.Issuer != "" && claims.Issuer != s.cfg.Issuer {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid session token issuer")
	}
	if claims.IssuedAt == nil || claims.ID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid session token")
	}
	return &models.Session{
		Token:     claims.ID,
		AccountID: claims.AccountID,
		Email:     claims.Email,
		FullName:  claims.FullName,
		Role:      claims.Role,
		CreatedAt: claims.IssuedAt.Time.UTC(),
	}, nil
}

func randomToken(size int) (string, error) {
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
