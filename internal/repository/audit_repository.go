package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/userflow-api/internal/models"
)

// AuditRepository appends and reads audit_logs rows.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository creates a new instance of AuditRepository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create stores an audit log entry.
func (r *AuditRepository) Create(ctx context.Context, entry *models.AuditLogEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if entry.Details == nil {
		entry.Details = models.AuditDetails{}
	}
	const query = `INSERT INTO audit_logs (id, admin_id, admin_email, action, target_user_id, details, ip_address, status, created_at) ` +
		`VALUES (:id, NULLIF(:admin_id, '')::uuid, :admin_email, :action, :target_user_id, :details, :ip_address, :status, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}

// List returns entries newer than since (all when nil), newest first, capped at limit when positive.
func (r *AuditRepository) List(ctx context.Context, since *time.Time, limit int) ([]models.AuditLogEntry, error) {
	query := `SELECT id, COALESCE(admin_id::text, '') AS admin_id, admin_email, action, target_user_id, details, COALESCE(ip_address, '') AS ip_address, status, created_at FROM audit_logs`
	var args []interface{}
	if since != nil {
		args = append(args, *since)
		query += " WHERE created_at >= $1"
	}
	query += " ORDER BY created_at DESC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	var entries []models.AuditLogEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	return entries, nil
}

// DeleteBefore purges entries older than cutoff and returns how many went.
func (r *AuditRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `DELETE FROM audit_logs WHERE created_at < $1`
	res, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge audit logs: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge audit logs rows: %w", err)
	}
	return affected, nil
}
