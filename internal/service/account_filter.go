package service

import (
	"strings"
	"time"

	"github.com/noah-isme/userflow-api/internal/models"
)

// FilterAccounts narrows records by search text, role and status. The three
// predicates are ANDed and an empty or "All" role/status keeps everything.
func FilterAccounts(records []models.Account, q models.AccountQuery) []models.Account {
	search := strings.ToLower(strings.TrimSpace(q.Search))
	role := normaliseFilter(q.Role)
	status := normaliseFilter(q.Status)

	out := make([]models.Account, 0, len(records))
	for _, r := range records {
		if search != "" &&
			!strings.Contains(strings.ToLower(r.Email), search) &&
			!strings.Contains(strings.ToLower(r.FullName), search) {
			continue
		}
		if role != "" && !strings.EqualFold(string(r.Role), role) {
			continue
		}
		if status != "" && !strings.EqualFold(string(r.Status), status) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func normaliseFilter(value string) string {
	value = strings.TrimSpace(value)
	if strings.EqualFold(value, models.FilterAll) {
		return ""
	}
	return value
}

// PeriodStart returns the earliest timestamp kept by period, or nil for all.
func PeriodStart(period models.AuditPeriod, now time.Time) *time.Time {
	var start time.Time
	switch period {
	case models.PeriodToday:
		y, m, d := now.Date()
		start = time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	case models.Period7Days:
		start = now.AddDate(0, 0, -7)
	case models.Period30Days:
		start = now.AddDate(0, 0, -30)
	case models.Period90Days:
		start = now.AddDate(0, 0, -90)
	default:
		return nil
	}
	return &start
}

// FilterAuditLogs applies the audit viewer filters.
func FilterAuditLogs(entries []models.AuditLogEntry, f models.AuditFilter, now time.Time) []models.AuditLogEntry {
	since := PeriodStart(f.Period, now)
	action := normaliseFilter(f.Action)
	actor := strings.ToLower(normaliseFilter(f.Actor))
	search := strings.ToLower(strings.TrimSpace(f.Search))

	out := make([]models.AuditLogEntry, 0, len(entries))
	for _, e := range entries {
		if since != nil && e.CreatedAt.Before(*since) {
			continue
		}
		if action != "" && !strings.EqualFold(e.Action, action) {
			continue
		}
		if actor != "" && strings.ToLower(e.ActorEmail) != actor && strings.ToLower(e.ActorID) != actor {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(e.Target()), search) &&
			!strings.Contains(strings.ToLower(e.Action), search) &&
			!strings.Contains(strings.ToLower(e.Details.String()), search) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// SummariseAudit aggregates a (filtered) audit list.
func SummariseAudit(entries []models.AuditLogEntry) models.AuditSummary {
	summary := models.AuditSummary{Total: len(entries), ActionDistribution: map[string]int{}}
	actors := map[string]struct{}{}
	targets := map[string]struct{}{}
	for _, e := range entries {
		if e.Outcome == models.OutcomeFailure {
			summary.Failed++
		} else {
			summary.Succeeded++
		}
		key := e.ActorID
		if key == "" {
			key = e.ActorEmail
		}
		if key != "" {
			actors[key] = struct{}{}
		}
		if t := e.Target(); t != "" {
			targets[t] = struct{}{}
		}
		summary.ActionDistribution[e.Action]++
	}
	summary.UniqueActors = len(actors)
	summary.AffectedTargets = len(targets)
	return summary
}
