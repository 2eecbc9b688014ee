package service

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/userflow-api/internal/models"
)

func TestMetricsSnapshotAggregates(t *testing.T) {
	m := NewMetricsService()
	m.ObserveHTTPRequest(http.MethodGet, "/api/v1/accounts", http.StatusOK, 10*time.Millisecond)
	m.ObserveHTTPRequest(http.MethodGet, "/api/v1/accounts", http.StatusOK, 30*time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordCacheOperation(false, time.Millisecond)
	m.ObserveBackendCall("list_accounts", time.Millisecond, nil)
	m.ObserveBackendCall("create_account", time.Millisecond, errors.New("boom"))
	m.RecordAuditDropped()

	snap := m.Snapshot()
	assert.Equal(t, uint64(2), snap.RequestsTotal)
	assert.InDelta(t, 20.0, snap.AverageRequestDurationMs, 0.001)
	assert.Equal(t, uint64(2), snap.CacheHits)
	assert.Equal(t, uint64(1), snap.CacheMisses)
	assert.InDelta(t, 2.0/3.0, snap.CacheHitRatio, 0.0001)
	assert.Equal(t, uint64(2), snap.BackendCalls)
	assert.Equal(t, uint64(1), snap.BackendFailures)
	assert.Equal(t, uint64(1), snap.AuditDropped)
	assert.Positive(t, snap.Goroutines)
}

func TestMetricsHandlerExposesRegistry(t *testing.T) {
	m := NewMetricsService()
	m.RecordAudit(models.OutcomeSuccess)
	m.RecordBulkItem(models.BulkActivate, true)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `userflow_audit_entries_total{outcome="success"} 1`)
	assert.Contains(t, string(body), `userflow_bulk_items_total{operation="activate",result="success"} 1`)
	assert.Contains(t, string(body), "userflow_goroutines")
}

func TestNilMetricsServiceIsSafe(t *testing.T) {
	var m *MetricsService
	m.ObserveHTTPRequest(http.MethodGet, "/", http.StatusOK, time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordExportJob(models.ExportStatusFinished)

	assert.Zero(t, m.Snapshot().RequestsTotal)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
