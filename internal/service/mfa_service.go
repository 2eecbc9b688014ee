package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image/png"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"go.uber.org/zap"

	"github.com/noah-isme/userflow-api/internal/backend"
	"github.com/noah-isme/userflow-api/internal/models"
	appErrors "github.com/noah-isme/userflow-api/pkg/errors"
)

type totpStore interface {
	GetAccount(ctx context.Context, id string) (*models.Account, error)
	SetTOTP(ctx context.Context, id string, enabled bool, secret string) error
}

// MFAService manages TOTP two-factor enrolment. A generated secret is kept on
// the profile but only enforced once a code has been verified against it.
type MFAService struct {
	store    totpStore
	recorder auditWriter
	issuer   string
	logger   *zap.Logger
}

// NewMFAService constructs the service.
func NewMFAService(store totpStore, recorder auditWriter, issuer string, logger *zap.Logger) *MFAService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if issuer == "" {
		issuer = "UserFlow"
	}
	return &MFAService{store: store, recorder: recorder, issuer: issuer, logger: logger}
}

// Setup generates a fresh secret and QR code for the account.
func (s *MFAService) Setup(ctx context.Context, accountID string) (*models.TOTPSetup, error) {
	account, err := s.load(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.TOTPEnabled {
		return nil, appErrors.Clone(appErrors.ErrConflict, "two-factor authentication is already enabled")
	}
	key, err := totp.Generate(totp.GenerateOpts{Issuer: s.issuer, AccountName: account.Email})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate two-factor secret")
	}
	qr, err := qrCode(key)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render QR code")
	}
	if err := s.store.SetTOTP(ctx, account.ID, false, key.Secret()); err != nil {
		return nil, s.wrap(err, "failed to store two-factor secret")
	}
	return &models.TOTPSetup{Secret: key.Secret(), URL: key.URL(), QRCodePNG: qr}, nil
}

// Enable turns on two-factor sign-in once code matches the pending secret.
func (s *MFAService) Enable(ctx context.Context, actor *models.Actor, accountID, code string) error {
	account, err := s.load(ctx, accountID)
	if err != nil {
		return err
	}
	if account.TOTPSecret == "" {
		return appErrors.Clone(appErrors.ErrValidation, "run two-factor setup first")
	}
	if !totp.Validate(code, account.TOTPSecret) {
		s.audit(ctx, actor, models.AuditActionEnableTOTP, accountID, false)
		return appErrors.Clone(appErrors.ErrValidation, "invalid two-factor code")
	}
	if err := s.store.SetTOTP(ctx, accountID, true, account.TOTPSecret); err != nil {
		s.audit(ctx, actor, models.AuditActionEnableTOTP, accountID, false)
		return s.wrap(err, "failed to enable two-factor authentication")
	}
	s.audit(ctx, actor, models.AuditActionEnableTOTP, accountID, true)
	return nil
}

// Disable turns off two-factor sign-in after verifying a current code.
func (s *MFAService) Disable(ctx context.Context, actor *models.Actor, accountID, code string) error {
	account, err := s.load(ctx, accountID)
	if err != nil {
		return err
	}
	if !account.TOTPEnabled {
		return appErrors.Clone(appErrors.ErrValidation, "two-factor authentication is not enabled")
	}
	if !totp.Validate(code, account.TOTPSecret) {
		s.audit(ctx, actor, models.AuditActionDisableTOTP, accountID, false)
		return appErrors.Clone(appErrors.ErrValidation, "invalid two-factor code")
	}
	if err := s.store.SetTOTP(ctx, accountID, false, ""); err != nil {
		s.audit(ctx, actor, models.AuditActionDisableTOTP, accountID, false)
		return s.wrap(err, "failed to disable two-factor authentication")
	}
	s.audit(ctx, actor, models.AuditActionDisableTOTP, accountID, true)
	return nil
}

func (s *MFAService) load(ctx context.Context, id string) (*models.Account, error) {
	account, err := s.store.GetAccount(ctx, id)
	if err != nil {
		return nil, s.wrap(err, "failed to load account")
	}
	return account, nil
}

func (s *MFAService) audit(ctx context.Context, actor *models.Actor, action, target string, ok bool) {
	if s.recorder == nil {
		return
	}
	s.recorder.Record(ctx, actor, action, target, nil, models.OutcomeOf(ok))
}

func (s *MFAService) wrap(err error, message string) error {
	if errors.Is(err, backend.ErrNotFound) {
		return appErrors.Clone(appErrors.ErrNotFound, "User not found")
	}
	s.logger.Error(message, zap.Error(err))
	return appErrors.Wrap(err, appErrors.ErrBackend.Code, appErrors.ErrBackend.Status, message)
}

func qrCode(key *otp.Key) (string, error) {
	img, err := key.Image(200, 200)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
