package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/userflow-api/internal/backend"
	"github.com/noah-isme/userflow-api/internal/models"
	appErrors "github.com/noah-isme/userflow-api/pkg/errors"
)

type auditStore interface {
	ListAudit(ctx context.Context, since *time.Time, limit int) ([]models.AuditLogEntry, error)
	PurgeAuditBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// AuditService backs the audit viewer and retention.
type AuditService struct {
	store    auditStore
	recorder auditWriter
	cache    derivedCache
	logger   *zap.Logger
	now      func() time.Time
}

// NewAuditService constructs the audit service.
func NewAuditService(store auditStore, recorder auditWriter, cache derivedCache, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{store: store, recorder: recorder, cache: cache, logger: logger, now: time.Now}
}

// AuditView is a filtered list with its summary and the action names present.
type AuditView struct {
	Entries []models.AuditLogEntry `json:"entries"`
	Summary models.AuditSummary    `json:"summary"`
	Actions []string               `json:"actions"`
}

// List returns entries matching filter, newest first.
func (s *AuditService) List(ctx context.Context, filter models.AuditFilter) (*AuditView, error) {
	now := s.now()
	entries, err := s.store.ListAudit(ctx, PeriodStart(filter.Period, now), 0)
	if err != nil {
		return nil, s.wrap(err, "failed to load audit logs")
	}
	filtered := FilterAuditLogs(entries, filter, now)
	return &AuditView{
		Entries: filtered,
		Summary: SummariseAudit(filtered),
		Actions: distinctActions(entries),
	}, nil
}

// Recent returns the newest n entries.
func (s *AuditService) Recent(ctx context.Context, n int) ([]models.AuditLogEntry, error) {
	entries, err := s.store.ListAudit(ctx, nil, n)
	if err != nil {
		return nil, s.wrap(err, "failed to load recent activity")
	}
	return entries, nil
}

// ForAccount returns every entry where the account is actor or target.
func (s *AuditService) ForAccount(ctx context.Context, accountID string) ([]models.AuditLogEntry, error) {
	entries, err := s.store.ListAudit(ctx, nil, 0)
	if err != nil {
		return nil, s.wrap(err, "failed to load audit logs")
	}
	out := make([]models.AuditLogEntry, 0)
	for _, e := range entries {
		if e.ActorID == accountID || e.Target() == accountID {
			out = append(out, e)
		}
	}
	return out, nil
}

// Clean deletes entries older than days and records the purge.
func (s *AuditService) Clean(ctx context.Context, actor *models.Actor, days int) (int64, error) {
	if days < 1 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "days must be at least 1")
	}
	cutoff := s.now().UTC().AddDate(0, 0, -days)
	deleted, err := s.store.PurgeAuditBefore(ctx, cutoff)
	details := models.AuditDetails{"days": days, "deleted": deleted}
	if err != nil {
		s.record(ctx, actor, details, false)
		return 0, s.wrap(err, "failed to clean audit logs")
	}
	s.record(ctx, actor, details, true)
	if s.cache != nil {
		_ = s.cache.Invalidate(ctx, derivedCachePattern)
	}
	return deleted, nil
}

// PurgeExpired is the scheduled retention job. retentionDays <= 0 keeps everything.
func (s *AuditService) PurgeExpired(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	cutoff := s.now().UTC().AddDate(0, 0, -retentionDays)
	deleted, err := s.store.PurgeAuditBefore(ctx, cutoff)
	if err != nil {
		s.logger.Warn("audit retention purge failed", zap.Error(err))
		return 0, err
	}
	s.logger.Info("audit retention purge", zap.Int64("deleted", deleted), zap.Time("cutoff", cutoff))
	return deleted, nil
}

func (s *AuditService) record(ctx context.Context, actor *models.Actor, details models.AuditDetails, ok bool) {
	if s.recorder == nil {
		return
	}
	s.recorder.Record(ctx, actor, models.AuditActionCleanAuditLogs, "", details, models.OutcomeOf(ok))
}

func (s *AuditService) wrap(err error, message string) error {
	if errors.Is(err, backend.ErrDemoMode) {
		return appErrors.ErrDemoMode
	}
	s.logger.Error(message, zap.Error(err))
	return appErrors.Wrap(err, appErrors.ErrBackend.Code, appErrors.ErrBackend.Status, message)
}

func distinctActions(entries []models.AuditLogEntry) []string {
	seen := map[string]struct{}{}
	actions := make([]string, 0)
	for _, e := range entries {
		if _, ok := seen[e.Action]; ok {
			continue
		}
		seen[e.Action] = struct{}{}
		actions = append(actions, e.Action)
	}
	sort.Strings(actions)
	return actions
}
