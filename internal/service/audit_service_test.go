package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/userflow-api/internal/backend"
	"github.com/noah-isme/userflow-api/internal/models"
	appErrors "github.com/noah-isme/userflow-api/pkg/errors"
)

type stubAuditStore struct {
	entries   []models.AuditLogEntry
	appendErr error
	listErr   error
	purged    []time.Time
}

func (s *stubAuditStore) AppendAudit(_ context.Context, entry *models.AuditLogEntry) error {
	if s.appendErr != nil {
		return s.appendErr
	}
	s.entries = append(s.entries, *entry)
	return nil
}

func (s *stubAuditStore) ListAudit(_ context.Context, since *time.Time, limit int) ([]models.AuditLogEntry, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]models.AuditLogEntry, 0, len(s.entries))
	for _, e := range s.entries {
		if since != nil && e.CreatedAt.Before(*since) {
			continue
		}
		out = append(out, e)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *stubAuditStore) PurgeAuditBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.purged = append(s.purged, cutoff)
	kept := s.entries[:0]
	var n int64
	for _, e := range s.entries {
		if e.CreatedAt.Before(cutoff) {
			n++
			continue
		}
		kept = append(kept, e)
	}
	s.entries = kept
	return n, nil
}

func TestAuditRecorderNilActorIsNoop(t *testing.T) {
	store := &stubAuditStore{}
	metrics := NewMetricsService()
	recorder := NewAuditRecorder(store, metrics, zap.NewNop())

	ok := recorder.Record(context.Background(), nil, models.AuditActionCreateUser, "user-2", nil, models.OutcomeSuccess)
	assert.False(t, ok)
	assert.Empty(t, store.entries)
	assert.Equal(t, uint64(1), metrics.Snapshot().AuditDropped)
}

func TestAuditRecorderAppendsEntry(t *testing.T) {
	store := &stubAuditStore{}
	recorder := NewAuditRecorder(store, nil, zap.NewNop())
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	recorder.now = func() time.Time { return fixed }

	ok := recorder.Record(context.Background(), testAdmin, models.AuditActionDeleteUser, "user-3", models.AuditDetails{"email": "jane.smith@example.com"}, "")
	require.True(t, ok)
	require.Len(t, store.entries, 1)
	entry := store.entries[0]
	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, testAdmin.ID, entry.ActorID)
	assert.Equal(t, testAdmin.Email, entry.ActorEmail)
	assert.Equal(t, "127.0.0.1", entry.IPAddress)
	assert.Equal(t, "user-3", entry.Target())
	assert.Equal(t, models.OutcomeSuccess, entry.Outcome)
	assert.Equal(t, fixed, entry.CreatedAt)

	ok = recorder.Record(context.Background(), testAdmin, models.AuditActionSignUp, "", nil, models.OutcomeSuccess)
	require.True(t, ok)
	assert.Nil(t, store.entries[1].TargetID)
}

func TestAuditRecorderSwallowsStoreErrors(t *testing.T) {
	store := &stubAuditStore{appendErr: errors.New("insert failed")}
	metrics := NewMetricsService()
	recorder := NewAuditRecorder(store, metrics, zap.NewNop())

	var ok bool
	assert.NotPanics(t, func() {
		ok = recorder.Record(context.Background(), testAdmin, models.AuditActionLogin, "user-1", nil, models.OutcomeSuccess)
	})
	assert.False(t, ok)
	assert.Equal(t, uint64(1), metrics.Snapshot().AuditDropped)
}

func seededAuditStore(now time.Time) *stubAuditStore {
	target2, target3 := "user-2", "user-3"
	return &stubAuditStore{entries: []models.AuditLogEntry{
		{ID: "a1", ActorID: "user-1", ActorEmail: testAdminEmail, Action: models.AuditActionUpdateUser, TargetID: &target2, Outcome: models.OutcomeSuccess, CreatedAt: now.Add(-time.Hour)},
		{ID: "a2", ActorID: "user-1", ActorEmail: testAdminEmail, Action: models.AuditActionDeleteUser, TargetID: &target3, Outcome: models.OutcomeFailure, Details: models.AuditDetails{"reason": "backend down"}, CreatedAt: now.Add(-3 * 24 * time.Hour)},
		{ID: "a3", ActorID: "user-2", ActorEmail: "john.doe@example.com", Action: models.AuditActionChangePassword, TargetID: &target2, Outcome: models.OutcomeSuccess, CreatedAt: now.Add(-20 * 24 * time.Hour)},
		{ID: "a4", ActorEmail: "new@example.com", Action: models.AuditActionSignUp, Outcome: models.OutcomeSuccess, CreatedAt: now.Add(-200 * 24 * time.Hour)},
	}}
}

func TestAuditServiceListFilters(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	store := seededAuditStore(now)
	svc := NewAuditService(store, nil, nil, zap.NewNop())
	svc.now = func() time.Time { return now }
	ctx := context.Background()

	view, err := svc.List(ctx, models.AuditFilter{Period: models.PeriodAll})
	require.NoError(t, err)
	assert.Len(t, view.Entries, 4)
	assert.Equal(t, 3, view.Summary.Succeeded)
	assert.Equal(t, 1, view.Summary.Failed)
	assert.Equal(t, 3, view.Summary.UniqueActors)
	assert.Equal(t, 2, view.Summary.AffectedTargets)
	assert.Equal(t, []string{"change_password", "delete_user", "sign_up", "update_user"}, view.Actions)

	view, err = svc.List(ctx, models.AuditFilter{Period: models.Period7Days})
	require.NoError(t, err)
	assert.Len(t, view.Entries, 2)

	view, err = svc.List(ctx, models.AuditFilter{Period: models.PeriodAll, Actor: "JOHN.DOE@example.com"})
	require.NoError(t, err)
	require.Len(t, view.Entries, 1)
	assert.Equal(t, "a3", view.Entries[0].ID)

	view, err = svc.List(ctx, models.AuditFilter{Period: models.PeriodAll, Search: "backend"})
	require.NoError(t, err)
	require.Len(t, view.Entries, 1)
	assert.Equal(t, "a2", view.Entries[0].ID)

	view, err = svc.List(ctx, models.AuditFilter{Period: models.PeriodAll, Action: "All", Search: "user-2"})
	require.NoError(t, err)
	assert.Len(t, view.Entries, 2)
}

func TestAuditServiceForAccount(t *testing.T) {
	now := time.Now()
	svc := NewAuditService(seededAuditStore(now), nil, nil, zap.NewNop())
	entries, err := svc.ForAccount(context.Background(), "user-2")
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestAuditServiceClean(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	store := seededAuditStore(now)
	cache := newMemoryCache()
	recorder := NewAuditRecorder(store, nil, zap.NewNop())
	svc := NewAuditService(store, recorder, cache, zap.NewNop())
	svc.now = func() time.Time { return now }

	_, err := svc.Clean(context.Background(), testAdmin, 0)
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	deleted, err := svc.Clean(context.Background(), testAdmin, 30)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
	assert.Equal(t, 1, cache.invalidations)

	last := store.entries[len(store.entries)-1]
	assert.Equal(t, models.AuditActionCleanAuditLogs, last.Action)
	assert.Equal(t, int64(1), last.Details["deleted"])
}

func TestAuditServicePurgeExpired(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	store := seededAuditStore(now)
	svc := NewAuditService(store, nil, nil, zap.NewNop())
	svc.now = func() time.Time { return now }

	deleted, err := svc.PurgeExpired(context.Background(), 0)
	require.NoError(t, err)
	assert.Zero(t, deleted)
	assert.Empty(t, store.purged)

	deleted, err = svc.PurgeExpired(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)
	assert.Len(t, store.entries, 2)
}

func TestAuditServiceDemoModeError(t *testing.T) {
	svc := NewAuditService(&stubAuditStore{listErr: backend.ErrDemoMode}, nil, nil, zap.NewNop())
	_, err := svc.Recent(context.Background(), 5)
	assert.ErrorIs(t, err, appErrors.ErrDemoMode)

	svc = NewAuditService(&stubAuditStore{listErr: errors.New("timeout")}, nil, nil, zap.NewNop())
	_, err = svc.Recent(context.Background(), 5)
	assert.ErrorIs(t, err, appErrors.ErrBackend)
}

func TestFilterAccountsAndsPredicates(t *testing.T) {
	accounts := []models.Account{
		{ID: "1", Email: "alice@example.com", FullName: "Alice Admin", Role: models.RoleAdmin, Status: models.StatusActive},
		{ID: "2", Email: "bob@example.com", FullName: "Bob User", Role: models.RoleUser, Status: models.StatusInactive},
		{ID: "3", Email: "carol@example.com", FullName: "Carol User", Role: models.RoleUser, Status: models.StatusActive},
		{ID: "4", Email: "dave@corp.test", FullName: "Dave Mod", Role: models.RoleModerator, Status: models.StatusSuspended},
	}

	ids := func(list []models.Account) []string {
		out := make([]string, 0, len(list))
		for _, a := range list {
			out = append(out, a.ID)
		}
		return out
	}

	assert.Equal(t, []string{"1", "2", "3", "4"}, ids(FilterAccounts(accounts, models.AccountQuery{Role: "All", Status: "All"})))
	assert.Equal(t, []string{"1", "3"}, ids(FilterAccounts(accounts, models.AccountQuery{Status: "Active"})))
	assert.Equal(t, []string{"3"}, ids(FilterAccounts(accounts, models.AccountQuery{Role: "user", Status: "active"})))
	assert.Equal(t, []string{"2", "3"}, ids(FilterAccounts(accounts, models.AccountQuery{Search: "USER"})))
	assert.Equal(t, []string{"4"}, ids(FilterAccounts(accounts, models.AccountQuery{Search: "corp"})))
	assert.Empty(t, FilterAccounts(accounts, models.AccountQuery{Search: "alice", Role: "user"}))
}

func TestPeriodStart(t *testing.T) {
	now := time.Date(2024, 6, 15, 15, 30, 0, 0, time.UTC)
	assert.Nil(t, PeriodStart(models.PeriodAll, now))
	assert.Nil(t, PeriodStart("", now))
	assert.Equal(t, time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC), *PeriodStart(models.PeriodToday, now))
	assert.Equal(t, now.AddDate(0, 0, -30), *PeriodStart(models.Period30Days, now))
}
