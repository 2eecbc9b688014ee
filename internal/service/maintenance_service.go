package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/noah-isme/userflow-api/internal/models"
)

type retentionPurger interface {
	PurgeExpired(ctx context.Context, retentionDays int) (int64, error)
}

type exportCleaner interface {
	CleanupExpired(ctx context.Context) int
}

type pendingSweeper interface {
	Sweep(maxAge time.Duration) int
}

// MaintenanceConfig holds the cron expressions for housekeeping jobs.
// An empty schedule disables that job.
type MaintenanceConfig struct {
	AuditRetentionDays int
	AuditSchedule      string
	ExportSchedule     string
	JobTimeout         time.Duration

	// PendingSchedule sweeps staged row actions older than PendingMaxAge,
	// which defaults to the session lifetime.
	PendingSchedule string
	PendingMaxAge   time.Duration
}

// MaintenanceService runs audit retention, export cleanup and the staged
// action sweep on a schedule.
type MaintenanceService struct {
	audits  retentionPurger
	exports exportCleaner
	pending pendingSweeper
	cfg     MaintenanceConfig
	logger  *zap.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	started bool
}

// NewMaintenanceService constructs the scheduler. Either dependency may be nil.
func NewMaintenanceService(audits retentionPurger, exports exportCleaner, cfg MaintenanceConfig, logger *zap.Logger) *MaintenanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 5 * time.Minute
	}
	if cfg.PendingMaxAge <= 0 {
		cfg.PendingMaxAge = models.SessionTTL
	}
	return &MaintenanceService{audits: audits, exports: exports, cfg: cfg, logger: logger}
}

// WithPendingActions attaches the staged action store swept on PendingSchedule.
func (s *MaintenanceService) WithPendingActions(pending pendingSweeper) *MaintenanceService {
	s.mu.Lock()
	s.pending = pending
	s.mu.Unlock()
	return s
}

// Start registers the configured jobs and starts the cron runner.
func (s *MaintenanceService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}
	c := cron.New()
	if s.audits != nil && s.cfg.AuditSchedule != "" && s.cfg.AuditRetentionDays > 0 {
		if _, err := c.AddFunc(s.cfg.AuditSchedule, s.runAuditRetention); err != nil {
			return fmt.Errorf("schedule audit retention %q: %w", s.cfg.AuditSchedule, err)
		}
		s.logger.Info("audit retention scheduled", zap.String("schedule", s.cfg.AuditSchedule), zap.Int("days", s.cfg.AuditRetentionDays))
	}
	if s.exports != nil && s.cfg.ExportSchedule != "" {
		if _, err := c.AddFunc(s.cfg.ExportSchedule, s.runExportCleanup); err != nil {
			return fmt.Errorf("schedule export cleanup %q: %w", s.cfg.ExportSchedule, err)
		}
		s.logger.Info("export cleanup scheduled", zap.String("schedule", s.cfg.ExportSchedule))
	}
	if s.pending != nil && s.cfg.PendingSchedule != "" {
		if _, err := c.AddFunc(s.cfg.PendingSchedule, func() { s.SweepPending() }); err != nil {
			return fmt.Errorf("schedule pending action sweep %q: %w", s.cfg.PendingSchedule, err)
		}
		s.logger.Info("pending action sweep scheduled", zap.String("schedule", s.cfg.PendingSchedule), zap.Duration("max_age", s.cfg.PendingMaxAge))
	}
	c.Start()
	s.cron = c
	s.started = true
	return nil
}

// Stop halts scheduling and waits for running jobs or ctx, whichever comes first.
func (s *MaintenanceService) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.cron
	s.started = false
	s.cron = nil
	s.mu.Unlock()
	if c == nil {
		return
	}
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
		s.logger.Warn("maintenance jobs still running at shutdown")
	}
}

// Entries reports how many jobs are registered.
func (s *MaintenanceService) Entries() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron == nil {
		return 0
	}
	return len(s.cron.Entries())
}

// PurgeAudit deletes audit entries past the retention window once.
func (s *MaintenanceService) PurgeAudit(ctx context.Context) (int64, error) {
	if s.audits == nil {
		return 0, nil
	}
	removed, err := s.audits.PurgeExpired(ctx, s.cfg.AuditRetentionDays)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		s.logger.Info("audit retention purge", zap.Int64("removed", removed), zap.Int("days", s.cfg.AuditRetentionDays))
	}
	return removed, nil
}

// SweepPending drops staged row actions older than PendingMaxAge once.
func (s *MaintenanceService) SweepPending() int {
	if s.pending == nil {
		return 0
	}
	removed := s.pending.Sweep(s.cfg.PendingMaxAge)
	if removed > 0 {
		s.logger.Info("stale pending actions dropped", zap.Int("removed", removed))
	}
	return removed
}

func (s *MaintenanceService) runAuditRetention() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.JobTimeout)
	defer cancel()
	if _, err := s.PurgeAudit(ctx); err != nil {
		s.logger.Error("audit retention purge failed", zap.Error(err))
	}
}

func (s *MaintenanceService) runExportCleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.JobTimeout)
	defer cancel()
	s.exports.CleanupExpired(ctx)
}
