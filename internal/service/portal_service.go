package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/userflow-api/internal/backend"
	"github.com/noah-isme/userflow-api/internal/models"
	appErrors "github.com/noah-isme/userflow-api/pkg/errors"
)

type portalAccountClient interface {
	Create(ctx context.Context, actor *models.Actor, req models.CreateAccountRequest, opts ...MutationOption) (*models.Account, Result)
	GetProfile(ctx context.Context, id string) (*models.Account, Result)
	Update(ctx context.Context, actor *models.Actor, id string, req models.UpdateAccountRequest, opts ...MutationOption) (*models.Account, Result)
	ChangePassword(ctx context.Context, actor *models.Actor, id string, req models.ChangePasswordRequest) Result
}

type preferenceStore interface {
	GetPreferences(ctx context.Context, userID string) (*models.Preferences, error)
	UpsertPreferences(ctx context.Context, prefs *models.Preferences) error
}

type accountAuditLister interface {
	ForAccount(ctx context.Context, accountID string) ([]models.AuditLogEntry, error)
}

// OwnDataExport is the document returned by the self-service data export.
type OwnDataExport struct {
	ExportedAt  time.Time              `json:"exported_at"`
	Account     models.Account         `json:"account"`
	Preferences models.Preferences     `json:"preferences"`
	Activity    []models.AuditLogEntry `json:"activity"`
}

// PortalService backs the self-service area where an account acts on itself.
type PortalService struct {
	client    portalAccountClient
	prefs     preferenceStore
	audits    accountAuditLister
	recorder  auditWriter
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewPortalService constructs the portal service.
func NewPortalService(client portalAccountClient, prefs preferenceStore, audits accountAuditLister, recorder auditWriter, v *validator.Validate, logger *zap.Logger) *PortalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if v == nil {
		v = NewValidator()
	}
	return &PortalService{client: client, prefs: prefs, audits: audits, recorder: recorder, validator: v, logger: logger, now: time.Now}
}

// SignUp registers an active user account.
func (s *PortalService) SignUp(ctx context.Context, req models.SignUpRequest, meta models.SessionMeta) (*models.Account, Result) {
	actor := &models.Actor{Email: req.Email, IPAddress: meta.IPAddress, UserAgent: meta.UserAgent}
	return s.client.Create(ctx, actor, models.CreateAccountRequest{
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		FullName:        req.FullName,
		Role:            models.RoleUser,
		Status:          models.StatusActive,
	}, AuditAs(models.AuditActionSignUp, models.AuditDetails{"self_service": true}))
}

// Profile returns the account's own profile.
func (s *PortalService) Profile(ctx context.Context, accountID string) (*models.Account, Result) {
	return s.client.GetProfile(ctx, accountID)
}

// UpdateProfile applies the restricted self-service field set.
func (s *PortalService) UpdateProfile(ctx context.Context, actor *models.Actor, accountID string, req models.SelfProfileRequest) (*models.Account, Result) {
	if err := s.validator.Struct(req); err != nil {
		return nil, failed(validationError(err))
	}
	return s.client.Update(ctx, actor, accountID, models.UpdateAccountRequest{ProfileFields: req.Fields()},
		AuditAs(models.AuditActionUpdateProfile, nil))
}

// ChangePassword replaces the account's password after checking the old one.
func (s *PortalService) ChangePassword(ctx context.Context, actor *models.Actor, accountID string, req models.ChangePasswordRequest) Result {
	return s.client.ChangePassword(ctx, actor, accountID, req)
}

// Preferences returns saved preferences or the defaults.
func (s *PortalService) Preferences(ctx context.Context, accountID string) (*models.Preferences, error) {
	prefs, err := s.prefs.GetPreferences(ctx, accountID)
	if errors.Is(err, backend.ErrNotFound) {
		defaults := models.DefaultPreferences(accountID)
		return &defaults, nil
	}
	if err != nil {
		s.logger.Error("failed to load preferences", zap.String("account_id", accountID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrBackend.Code, appErrors.ErrBackend.Status, "failed to load preferences")
	}
	return prefs, nil
}

// SavePreferences validates and upserts preferences.
func (s *PortalService) SavePreferences(ctx context.Context, actor *models.Actor, accountID string, prefs models.Preferences) (*models.Preferences, error) {
	prefs.UserID = accountID
	if err := s.validator.Struct(prefs); err != nil {
		return nil, validationError(err)
	}
	prefs.UpdatedAt = s.now().UTC()
	if err := s.prefs.UpsertPreferences(ctx, &prefs); err != nil {
		s.audit(ctx, actor, models.AuditActionUpdatePreferences, accountID, false)
		s.logger.Error("failed to save preferences", zap.String("account_id", accountID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrBackend.Code, appErrors.ErrBackend.Status, "failed to save preferences")
	}
	s.audit(ctx, actor, models.AuditActionUpdatePreferences, accountID, true)
	return &prefs, nil
}

// ExportOwnData bundles profile, preferences and activity as JSON.
func (s *PortalService) ExportOwnData(ctx context.Context, actor *models.Actor, accountID string) ([]byte, error) {
	account, res := s.client.GetProfile(ctx, accountID)
	if !res.OK {
		return nil, res.Err()
	}
	prefs, err := s.Preferences(ctx, accountID)
	if err != nil {
		return nil, err
	}
	activity, err := s.audits.ForAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	payload, err := json.MarshalIndent(OwnDataExport{
		ExportedAt:  s.now().UTC(),
		Account:     *account,
		Preferences: *prefs,
		Activity:    activity,
	}, "", "  ")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode export")
	}
	s.audit(ctx, actor, models.AuditActionExportOwnData, accountID, true)
	return payload, nil
}

func (s *PortalService) audit(ctx context.Context, actor *models.Actor, action, target string, ok bool) {
	if s.recorder == nil {
		return
	}
	s.recorder.Record(ctx, actor, action, target, nil, models.OutcomeOf(ok))
}
