package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/userflow-api/internal/models"
	appErrors "github.com/noah-isme/userflow-api/pkg/errors"
)

type bulkAccountClient interface {
	Update(ctx context.Context, actor *models.Actor, id string, req models.UpdateAccountRequest, opts ...MutationOption) (*models.Account, Result)
	Delete(ctx context.Context, actor *models.Actor, id string, opts ...MutationOption) Result
	SendPasswordResetFor(ctx context.Context, actor *models.Actor, id string, opts ...MutationOption) Result
}

// BulkDispatcher applies one operation to many accounts, one at a time.
type BulkDispatcher struct {
	client    bulkAccountClient
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewBulkDispatcher constructs the dispatcher.
func NewBulkDispatcher(client bulkAccountClient, metrics *MetricsService, v *validator.Validate, logger *zap.Logger) *BulkDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if v == nil {
		v = NewValidator()
	}
	return &BulkDispatcher{client: client, metrics: metrics, validator: v, logger: logger}
}

// Dispatch runs req.Operation for every id in order. A failing item is
// recorded and the loop moves on; cancellation is not checked between items.
func (d *BulkDispatcher) Dispatch(ctx context.Context, actor *models.Actor, req models.BulkRequest) (models.BulkReport, error) {
	if err := d.validator.Struct(req); err != nil {
		return models.BulkReport{}, validationError(err)
	}
	if req.Operation == models.BulkChangeRole && req.Role == "" {
		return models.BulkReport{}, appErrors.WithDetails(
			appErrors.Clone(appErrors.ErrValidation, "role is required for change_role"),
			[]string{"role is required for change_role"},
		)
	}

	details := models.AuditDetails{"batch": models.AuditBatchBulk, "operation": string(req.Operation)}
	if req.Operation == models.BulkChangeRole {
		details["role"] = string(req.Role)
	}
	audit := AuditAs(req.Operation.AuditAction(), details)

	report := models.BulkReport{
		Operation: req.Operation,
		Attempted: len(req.IDs),
		Results:   make([]models.BulkItemResult, 0, len(req.IDs)),
	}
	for _, raw := range req.IDs {
		id := strings.TrimSpace(raw)
		res := d.apply(ctx, actor, req, id, audit)
		report.Results = append(report.Results, models.BulkItemResult{ID: id, OK: res.OK, Message: res.Message})
		d.metrics.RecordBulkItem(req.Operation, res.OK)
		if res.OK {
			report.Succeeded++
			continue
		}
		d.logger.Warn("bulk item failed",
			zap.String("operation", string(req.Operation)),
			zap.String("account_id", id),
			zap.String("message", res.Message),
		)
	}
	d.logger.Info("bulk operation finished",
		zap.String("operation", string(req.Operation)),
		zap.Int("attempted", report.Attempted),
		zap.Int("succeeded", report.Succeeded),
	)
	return report, nil
}

func (d *BulkDispatcher) apply(ctx context.Context, actor *models.Actor, req models.BulkRequest, id string, audit MutationOption) Result {
	switch req.Operation {
	case models.BulkActivate:
		return d.setStatus(ctx, actor, id, models.StatusActive, audit)
	case models.BulkDeactivate:
		return d.setStatus(ctx, actor, id, models.StatusInactive, audit)
	case models.BulkChangeRole:
		role := req.Role
		_, res := d.client.Update(ctx, actor, id, models.UpdateAccountRequest{ProfileFields: models.ProfileFields{Role: &role}}, audit)
		return res
	case models.BulkDelete:
		return d.client.Delete(ctx, actor, id, audit)
	case models.BulkPasswordReset:
		return d.client.SendPasswordResetFor(ctx, actor, id, audit)
	}
	return failed(appErrors.Clone(appErrors.ErrValidation, "unsupported bulk operation"))
}

func (d *BulkDispatcher) setStatus(ctx context.Context, actor *models.Actor, id string, status models.AccountStatus, audit MutationOption) Result {
	_, res := d.client.Update(ctx, actor, id, models.UpdateAccountRequest{ProfileFields: models.ProfileFields{Status: &status}}, audit)
	return res
}
