package dto

import (
	"time"

	"github.com/noah-isme/userflow-api/internal/models"
)

// DashboardResponse is the admin landing page payload.
type DashboardResponse struct {
	Stats              models.AccountStats    `json:"stats"`
	StatusDistribution []models.CountBucket   `json:"status_distribution"`
	RoleDistribution   []models.CountBucket   `json:"role_distribution"`
	RecentActivity     []models.AuditLogEntry `json:"recent_activity"`
	BackendMode        string                 `json:"backend_mode"`
	Banner             string                 `json:"banner,omitempty"`
	GeneratedAt        time.Time              `json:"generated_at"`
}

// AnalyticsOverview aggregates the analytics page.
type AnalyticsOverview struct {
	Series       []models.DailyActivity `json:"series"`
	ByRole       []models.CountBucket   `json:"by_role"`
	ByStatus     []models.CountBucket   `json:"by_status"`
	ByDepartment []models.CountBucket   `json:"by_department"`
	Stats        models.AccountStats    `json:"stats"`
	System       models.SystemMetrics   `json:"system"`
	GeneratedAt  time.Time              `json:"generated_at"`
}
