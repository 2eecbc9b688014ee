package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/userflow-api/internal/backend"
	"github.com/noah-isme/userflow-api/internal/bootstrap"
	"github.com/noah-isme/userflow-api/internal/dto"
	"github.com/noah-isme/userflow-api/internal/models"
	appErrors "github.com/noah-isme/userflow-api/pkg/errors"
)

// BootstrapTables lists the relations the schema script creates.
var BootstrapTables = []string{
	"auth.users",
	"public.profiles",
	"public.user_sessions",
	"public.audit_logs",
	"public.password_reset_tokens",
	"public.user_preferences",
}

// SystemActor attributes work done by startup tasks and the CLI.
var SystemActor = &models.Actor{Email: "system"}

type setupBackend interface {
	backend.SQLExecutor
	GetCredentialByEmail(ctx context.Context, email string) (*models.Credential, error)
	Mode() backend.Mode
}

type bootstrapRunner interface {
	Run(ctx context.Context) bootstrap.Report
}

type accountCreator interface {
	Create(ctx context.Context, actor *models.Actor, req models.CreateAccountRequest, opts ...MutationOption) (*models.Account, Result)
}

// SetupConfig carries the default admin and sample credentials.
type SetupConfig struct {
	AdminEmail     string
	AdminPassword  string
	SamplePassword string
}

type sampleUser struct {
	email, name, department, jobTitle string
	role                              models.AccountRole
	status                            models.AccountStatus
}

var sampleUsers = []sampleUser{
	{email: "john.doe@example.com", name: "John Doe", department: "Sales", jobTitle: "Account Executive", role: models.RoleUser, status: models.StatusActive},
	{email: "jane.smith@example.com", name: "Jane Smith", department: "Marketing", jobTitle: "Content Lead", role: models.RoleUser, status: models.StatusInactive},
	{email: "mike.wilson@example.com", name: "Mike Wilson", department: "Support", jobTitle: "Community Moderator", role: models.RoleModerator, status: models.StatusActive},
}

// SetupService runs the schema bootstrap and first-run seeding.
type SetupService struct {
	store     setupBackend
	runner    bootstrapRunner
	accounts  accountCreator
	recorder  auditWriter
	selection backend.Selection
	logger    *zap.Logger
	cfg       SetupConfig
}

// NewSetupService constructs the setup service.
func NewSetupService(store setupBackend, runner bootstrapRunner, accounts accountCreator, recorder auditWriter, selection backend.Selection, cfg SetupConfig, logger *zap.Logger) *SetupService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SetupService{store: store, runner: runner, accounts: accounts, recorder: recorder, selection: selection, cfg: cfg, logger: logger}
}

// Status reports table presence and whether the default admin exists.
func (s *SetupService) Status(ctx context.Context) (*dto.SetupStatus, error) {
	status := &dto.SetupStatus{
		BackendMode: string(s.store.Mode()),
		Banner:      s.selection.Banner(),
		Tables:      make([]dto.TableStatus, 0, len(BootstrapTables)),
		Ready:       true,
	}
	for _, table := range BootstrapTables {
		exists, err := s.store.TableExists(ctx, table)
		if err != nil && !errors.Is(err, backend.ErrDemoMode) {
			s.logger.Error("table lookup failed", zap.String("table", table), zap.Error(err))
			return nil, appErrors.Wrap(err, appErrors.ErrBackend.Code, appErrors.ErrBackend.Status, "failed to inspect schema")
		}
		status.Tables = append(status.Tables, dto.TableStatus{Name: table, Exists: exists})
		status.Ready = status.Ready && exists
	}
	if s.cfg.AdminEmail != "" {
		_, err := s.store.GetCredentialByEmail(ctx, s.cfg.AdminEmail)
		status.AdminExists = err == nil
	}
	return status, nil
}

// RunBootstrap executes the embedded schema script statement by statement.
func (s *SetupService) RunBootstrap(ctx context.Context, actor *models.Actor) (*dto.BootstrapReport, error) {
	if s.store.Mode() == backend.ModeDemo {
		return nil, appErrors.Clone(appErrors.ErrDemoMode, "Schema bootstrap needs a live backend")
	}
	report := s.runner.Run(ctx)
	out := &dto.BootstrapReport{
		Total:     report.Total,
		Succeeded: report.Succeeded,
		Failed:    report.Failed,
		OK:        report.OK,
		Message:   fmt.Sprintf("Executed %d of %d statements", report.Succeeded, report.Total),
	}
	if s.recorder != nil {
		s.recorder.Record(ctx, actor, models.AuditActionRunBootstrap, "", models.AuditDetails{
			"total":     report.Total,
			"succeeded": report.Succeeded,
			"failed":    report.Failed,
		}, models.OutcomeOf(report.OK))
	}
	return out, nil
}

// EnsureDefaultAdmin creates the configured admin when no credential with
// that email exists. It reports whether an account was created.
func (s *SetupService) EnsureDefaultAdmin(ctx context.Context) (bool, error) {
	if s.cfg.AdminEmail == "" || s.cfg.AdminPassword == "" {
		return false, nil
	}
	_, err := s.store.GetCredentialByEmail(ctx, s.cfg.AdminEmail)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, backend.ErrNotFound) {
		return false, appErrors.Wrap(err, appErrors.ErrBackend.Code, appErrors.ErrBackend.Status, "failed to look up default admin")
	}
	_, res := s.accounts.Create(ctx, SystemActor, models.CreateAccountRequest{
		Email:           s.cfg.AdminEmail,
		Password:        s.cfg.AdminPassword,
		ConfirmPassword: s.cfg.AdminPassword,
		FullName:        "System Administrator",
		Role:            models.RoleAdmin,
		Status:          models.StatusActive,
		Department:      "IT",
		JobTitle:        "Administrator",
	})
	if !res.OK {
		return false, res.Err()
	}
	s.logger.Info("default admin created", zap.String("email", s.cfg.AdminEmail))
	return true, nil
}

// SeedSampleUsers creates the sample accounts, skipping any that already exist.
func (s *SetupService) SeedSampleUsers(ctx context.Context, actor *models.Actor) (*dto.SeedReport, error) {
	if s.cfg.SamplePassword == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "sample password is not configured")
	}
	report := &dto.SeedReport{Created: []string{}, Skipped: []string{}, Failed: []string{}}
	for _, u := range sampleUsers {
		_, res := s.accounts.Create(ctx, actor, models.CreateAccountRequest{
			Email:           u.email,
			Password:        s.cfg.SamplePassword,
			ConfirmPassword: s.cfg.SamplePassword,
			FullName:        u.name,
			Role:            u.role,
			Status:          u.status,
			Department:      u.department,
			JobTitle:        u.jobTitle,
		}, AuditAs(models.AuditActionSeedSampleUsers, models.AuditDetails{"sample": true}))
		switch {
		case res.OK:
			report.Created = append(report.Created, u.email)
		case res.Code == appErrors.ErrConflict.Code:
			report.Skipped = append(report.Skipped, u.email)
		default:
			s.logger.Warn("sample user not created", zap.String("email", u.email), zap.String("message", res.Message))
			report.Failed = append(report.Failed, u.email)
		}
	}
	return report, nil
}
