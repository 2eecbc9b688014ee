package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/userflow-api/internal/models"
)

const metricsNamespace = "userflow"

// MetricsService owns the private Prometheus registry and keeps running totals
// the analytics page reads back as a snapshot. A nil *MetricsService is a no-op.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler

	requestDuration *prometheus.HistogramVec
	cacheLookups    *prometheus.HistogramVec
	cacheWrites     prometheus.Histogram
	cacheHitRatio   prometheus.Gauge
	backendDuration *prometheus.HistogramVec
	backendFailures *prometheus.CounterVec
	auditEntries    *prometheus.CounterVec
	auditDropped    prometheus.Counter
	bulkItems       *prometheus.CounterVec
	exportJobs      *prometheus.CounterVec

	cacheHits     atomic.Uint64
	cacheMisses   atomic.Uint64
	requests      atomic.Uint64
	requestNanos  atomic.Uint64
	backendCalls  atomic.Uint64
	backendErrors atomic.Uint64
	droppedAudits atomic.Uint64
}

// NewMetricsService registers the collectors on a fresh registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	m := &MetricsService{
		registry: registry,
		handler:  promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route and status.",
		}, []string{"method", "path", "status"}),
		cacheLookups: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "cache",
			Name:      "lookup_seconds",
			Help:      "Cache lookup latency by result.",
		}, []string{"result"}),
		cacheWrites: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "cache",
			Name:      "write_seconds",
			Help:      "Cache write latency.",
		}),
		cacheHitRatio: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "cache",
			Name:      "hit_ratio",
			Help:      "Hits over total lookups since start.",
		}),
		backendDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "backend",
			Name:      "call_duration_seconds",
			Help:      "Account backend call latency by operation.",
		}, []string{"operation"}),
		backendFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "backend",
			Name:      "call_failures_total",
			Help:      "Account backend calls that returned an error.",
		}, []string{"operation"}),
		auditEntries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "audit",
			Name:      "entries_total",
			Help:      "Audit entries appended by outcome.",
		}, []string{"outcome"}),
		auditDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "audit",
			Name:      "entries_dropped_total",
			Help:      "Audit entries skipped for lack of an actor or a failed append.",
		}),
		bulkItems: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "bulk",
			Name:      "items_total",
			Help:      "Bulk dispatcher items by operation and result.",
		}, []string{"operation", "result"}),
		exportJobs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "exports",
			Name:      "jobs_total",
			Help:      "Export jobs by terminal status.",
		}, []string{"status"}),
	}
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "goroutines",
		Help:      "Goroutines currently running.",
	}, func() float64 { return float64(runtime.NumGoroutine()) })
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records one served request.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(method, path, strconv.Itoa(status)).Observe(duration.Seconds())
	m.requests.Add(1)
	m.requestNanos.Add(uint64(duration.Nanoseconds()))
}

// RecordCacheOperation records a lookup and refreshes the hit ratio gauge.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
		m.cacheHits.Add(1)
	} else {
		m.cacheMisses.Add(1)
	}
	m.cacheLookups.WithLabelValues(result).Observe(duration.Seconds())
	m.cacheHitRatio.Set(ratio(m.cacheHits.Load(), m.cacheMisses.Load()))
}

// ObserveCacheWrite records a cache write.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrites.Observe(duration.Seconds())
}

// ObserveBackendCall records one round trip to the account backend.
func (m *MetricsService) ObserveBackendCall(operation string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.backendDuration.WithLabelValues(operation).Observe(duration.Seconds())
	m.backendCalls.Add(1)
	if err != nil {
		m.backendFailures.WithLabelValues(operation).Inc()
		m.backendErrors.Add(1)
	}
}

// RecordAudit counts an appended audit entry.
func (m *MetricsService) RecordAudit(outcome models.AuditOutcome) {
	if m == nil {
		return
	}
	m.auditEntries.WithLabelValues(string(outcome)).Inc()
}

// RecordAuditDropped counts an audit entry that was not persisted.
func (m *MetricsService) RecordAuditDropped() {
	if m == nil {
		return
	}
	m.auditDropped.Inc()
	m.droppedAudits.Add(1)
}

// RecordBulkItem counts one bulk dispatcher item.
func (m *MetricsService) RecordBulkItem(operation models.BulkOperation, ok bool) {
	if m == nil {
		return
	}
	result := "failure"
	if ok {
		result = "success"
	}
	m.bulkItems.WithLabelValues(string(operation), result).Inc()
}

// RecordExportJob counts an export job reaching a terminal status.
func (m *MetricsService) RecordExportJob(status models.ExportStatus) {
	if m == nil {
		return
	}
	m.exportJobs.WithLabelValues(string(status)).Inc()
}

// Snapshot returns the running totals shown on the analytics page.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{Goroutines: runtime.NumGoroutine(), GeneratedAt: time.Now().UTC()}
	}
	hits, misses := m.cacheHits.Load(), m.cacheMisses.Load()
	requests := m.requests.Load()

	var avgMs float64
	if requests > 0 {
		avgMs = float64(m.requestNanos.Load()) / float64(requests) / float64(time.Millisecond)
	}
	return models.SystemMetrics{
		CacheHitRatio:            ratio(hits, misses),
		CacheHits:                hits,
		CacheMisses:              misses,
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgMs,
		BackendCalls:             m.backendCalls.Load(),
		BackendFailures:          m.backendErrors.Load(),
		AuditDropped:             m.droppedAudits.Load(),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}

func ratio(hits, misses uint64) float64 {
	if hits+misses == 0 {
		return 0
	}
	return float64(hits) / float64(hits+misses)
}
