package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/userflow-api/internal/backend"
	"github.com/noah-isme/userflow-api/internal/dto"
	"github.com/noah-isme/userflow-api/internal/models"
)

type dashboardAccounts interface {
	accountLister
	ComputeStats(ctx context.Context) (models.AccountStats, Result)
}

type recentActivity interface {
	Recent(ctx context.Context, n int) ([]models.AuditLogEntry, error)
}

const recentActivityLimit = 10

// DashboardService composes the admin landing page.
type DashboardService struct {
	accounts  dashboardAccounts
	audits    recentActivity
	selection backend.Selection
	logger    *zap.Logger
	now       func() time.Time
}

// NewDashboardService constructs the dashboard service.
func NewDashboardService(accounts dashboardAccounts, audits recentActivity, selection backend.Selection, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{accounts: accounts, audits: audits, selection: selection, logger: logger, now: time.Now}
}

// Dashboard returns stats, distributions and recent activity. A failing
// activity feed leaves the list empty rather than failing the page.
func (s *DashboardService) Dashboard(ctx context.Context) (*dto.DashboardResponse, error) {
	stats, res := s.accounts.ComputeStats(ctx)
	if !res.OK {
		return nil, res.Err()
	}
	accounts, res := s.accounts.ListAll(ctx)
	if !res.OK {
		return nil, res.Err()
	}
	recent, err := s.audits.Recent(ctx, recentActivityLimit)
	if err != nil {
		s.logger.Warn("recent activity unavailable", zap.Error(err))
		recent = []models.AuditLogEntry{}
	}
	return &dto.DashboardResponse{
		Stats:              stats,
		StatusDistribution: StatusDistribution(accounts),
		RoleDistribution:   RoleDistribution(accounts),
		RecentActivity:     recent,
		BackendMode:        string(s.selection.Mode),
		Banner:             s.selection.Banner(),
		GeneratedAt:        s.now().UTC(),
	}, nil
}

// Selection returns the backend selection made at startup.
func (s *DashboardService) Selection() backend.Selection {
	return s.selection
}
