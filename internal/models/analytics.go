package models

import "time"

// DailyActivity is one point of the demo activity series.
type DailyActivity struct {
	Date          string `json:"date"`
	Registrations int    `json:"registrations"`
	Logins        int    `json:"logins"`
	ActiveUsers   int    `json:"active_users"`
}

// CountBucket is a labelled count used by distributions.
type CountBucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// SystemMetrics represents system level analytics captured from instrumentation.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	BackendCalls             uint64    `json:"backend_calls"`
	BackendFailures          uint64    `json:"backend_failures"`
	AuditDropped             uint64    `json:"audit_dropped"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
