package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/userflow-api/internal/models"
)

type auditAppender interface {
	AppendAudit(ctx context.Context, entry *models.AuditLogEntry) error
}

// AuditRecorder appends one entry per mutating action. It never buffers or
// retries, and a failed append never reaches the caller.
type AuditRecorder struct {
	store   auditAppender
	metrics *MetricsService
	logger  *zap.Logger
	now     func() time.Time
}

// NewAuditRecorder constructs the recorder.
func NewAuditRecorder(store auditAppender, metrics *MetricsService, logger *zap.Logger) *AuditRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditRecorder{store: store, metrics: metrics, logger: logger, now: time.Now}
}

// Record appends an audit entry and reports whether it was persisted.
// A nil actor is a no-op: the drop is logged and counted.
func (r *AuditRecorder) Record(ctx context.Context, actor *models.Actor, action, target string, details models.AuditDetails, outcome models.AuditOutcome) bool {
	if r == nil {
		return false
	}
	if actor == nil {
		r.logger.Warn("audit entry dropped: no actor", zap.String("action", action), zap.String("target", target))
		r.metrics.RecordAuditDropped()
		return false
	}
	if outcome == "" {
		outcome = models.OutcomeSuccess
	}
	entry := &models.AuditLogEntry{
		ID:         uuid.NewString(),
		ActorID:    actor.ID,
		ActorEmail: actor.Email,
		Action:     action,
		Details:    details,
		IPAddress:  actor.IPAddress,
		Outcome:    outcome,
		CreatedAt:  r.now().UTC(),
	}
	if target != "" {
		entry.TargetID = &target
	}
	if err := r.store.AppendAudit(ctx, entry); err != nil {
		r.logger.Error("failed to append audit entry",
			zap.String("action", action),
			zap.String("actor_id", actor.ID),
			zap.String("target", target),
			zap.Error(err),
		)
		r.metrics.RecordAuditDropped()
		return false
	}
	r.metrics.RecordAudit(outcome)
	return true
}
