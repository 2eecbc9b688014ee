package service

import (
	"context"
	"math/rand"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/userflow-api/internal/dto"
	"github.com/noah-isme/userflow-api/internal/models"
)

type accountLister interface {
	ListAll(ctx context.Context) ([]models.Account, Result)
}

// RandFactory builds the generator for one series from a seed.
type RandFactory func(seed int64) *rand.Rand

// AnalyticsConfig tunes the analytics page.
type AnalyticsConfig struct {
	Days     int
	Seed     int64
	CacheTTL time.Duration
}

// AnalyticsService builds the analytics overview. The daily series is
// synthetic: the same seed and day count always produce the same values.
type AnalyticsService struct {
	accounts accountLister
	cache    derivedCache
	metrics  *MetricsService
	newRand  RandFactory
	logger   *zap.Logger
	cfg      AnalyticsConfig
	now      func() time.Time
}

// NewAnalyticsService constructs an analytics service.
func NewAnalyticsService(accounts accountLister, cache derivedCache, metrics *MetricsService, newRand RandFactory, cfg AnalyticsConfig, logger *zap.Logger) *AnalyticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if newRand == nil {
		newRand = func(seed int64) *rand.Rand { return rand.New(rand.NewSource(seed)) }
	}
	if cfg.Days <= 0 {
		cfg.Days = 30
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 10 * time.Minute
	}
	return &AnalyticsService{accounts: accounts, cache: cache, metrics: metrics, newRand: newRand, logger: logger, cfg: cfg, now: time.Now}
}

// Overview returns the analytics payload. The boolean reports a cache hit.
// System metrics are always read fresh.
func (s *AnalyticsService) Overview(ctx context.Context) (*dto.AnalyticsOverview, bool, error) {
	var cached dto.AnalyticsOverview
	if s.cache != nil {
		if hit, err := s.cache.Get(ctx, analyticsCacheKey, &cached); err == nil && hit {
			cached.System = s.metrics.Snapshot()
			return &cached, true, nil
		}
	}

	accounts, res := s.accounts.ListAll(ctx)
	if !res.OK {
		return nil, false, res.Err()
	}
	now := s.now().UTC()
	overview := &dto.AnalyticsOverview{
		Series:       s.Series(now),
		ByRole:       RoleDistribution(accounts),
		ByStatus:     StatusDistribution(accounts),
		ByDepartment: DepartmentDistribution(accounts),
		Stats:        CountAccounts(accounts),
		GeneratedAt:  now,
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, analyticsCacheKey, overview, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("cache analytics overview", zap.Error(err))
		}
	}
	overview.System = s.metrics.Snapshot()
	return overview, false, nil
}

// Series generates one point per day ending on the day of now.
func (s *AnalyticsService) Series(now time.Time) []models.DailyActivity {
	rng := s.newRand(s.cfg.Seed)
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	series := make([]models.DailyActivity, 0, s.cfg.Days)
	for i := s.cfg.Days - 1; i >= 0; i-- {
		day := today.AddDate(0, 0, -i)
		series = append(series, models.DailyActivity{
			Date:          day.Format("2006-01-02"),
			Registrations: 5 + rng.Intn(21),
			Logins:        50 + rng.Intn(151),
			ActiveUsers:   100 + rng.Intn(201),
		})
	}
	return series
}

// RoleDistribution counts accounts per role in display order.
func RoleDistribution(accounts []models.Account) []models.CountBucket {
	counts := map[models.AccountRole]int{}
	for _, a := range accounts {
		counts[a.Role]++
	}
	out := make([]models.CountBucket, 0, len(models.Roles))
	for _, role := range models.Roles {
		out = append(out, models.CountBucket{Label: string(role), Count: counts[role]})
	}
	return out
}

// StatusDistribution counts accounts per status in display order.
func StatusDistribution(accounts []models.Account) []models.CountBucket {
	counts := map[models.AccountStatus]int{}
	for _, a := range accounts {
		counts[a.Status]++
	}
	out := make([]models.CountBucket, 0, len(models.Statuses))
	for _, status := range models.Statuses {
		out = append(out, models.CountBucket{Label: string(status), Count: counts[status]})
	}
	return out
}

// DepartmentDistribution counts accounts per department, largest first.
func DepartmentDistribution(accounts []models.Account) []models.CountBucket {
	counts := map[string]int{}
	for _, a := range accounts {
		dept := strings.TrimSpace(a.Department)
		if dept == "" {
			dept = "Unassigned"
		}
		counts[dept]++
	}
	out := make([]models.CountBucket, 0, len(counts))
	for label, count := range counts {
		out = append(out, models.CountBucket{Label: label, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	return out
}
