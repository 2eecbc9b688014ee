package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/userflow-api/internal/models"
	appErrors "github.com/noah-isme/userflow-api/pkg/errors"
)

func TestBulkDeactivateToleratesFailures(t *testing.T) {
	f := newClientFixture(t)
	dispatcher := NewBulkDispatcher(f.client, f.metrics, nil, zap.NewNop())

	report, err := dispatcher.Dispatch(context.Background(), testAdmin, models.BulkRequest{
		Operation: models.BulkDeactivate,
		IDs:       []string{"user-2", "missing", "user-4"},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, report.Attempted)
	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, 1, report.Failed())
	require.Len(t, report.Results, 3)
	assert.Equal(t, "missing", report.Results[1].ID)
	assert.False(t, report.Results[1].OK)
	assert.Equal(t, "User not found", report.Results[1].Message)

	for _, id := range []string{"user-2", "user-4"} {
		account, res := f.client.GetProfile(context.Background(), id)
		require.True(t, res.OK)
		assert.Equal(t, models.StatusInactive, account.Status)
	}

	entries := f.auditFor(t, "bulk_deactivate")
	require.Len(t, entries, 3)
	for _, e := range entries {
		assert.Equal(t, models.AuditBatchBulk, e.Details["batch"])
		assert.Equal(t, "deactivate", e.Details["operation"])
	}
	assert.Len(t, f.audit(t), 3)
}

func TestBulkChangeRoleRequiresRole(t *testing.T) {
	f := newClientFixture(t)
	dispatcher := NewBulkDispatcher(f.client, nil, nil, zap.NewNop())

	_, err := dispatcher.Dispatch(context.Background(), testAdmin, models.BulkRequest{Operation: models.BulkChangeRole, IDs: []string{"user-2"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	report, err := dispatcher.Dispatch(context.Background(), testAdmin, models.BulkRequest{Operation: models.BulkChangeRole, IDs: []string{"user-2", "user-3"}, Role: models.RoleModerator})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Succeeded)

	entries := f.auditFor(t, "bulk_change_role")
	require.Len(t, entries, 2)
	assert.Equal(t, "moderator", entries[0].Details["role"])
}

func TestBulkDeleteSkipsSelf(t *testing.T) {
	f := newClientFixture(t)
	dispatcher := NewBulkDispatcher(f.client, nil, nil, zap.NewNop())

	report, err := dispatcher.Dispatch(context.Background(), testAdmin, models.BulkRequest{Operation: models.BulkDelete, IDs: []string{testAdmin.ID, "user-3"}})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Succeeded)
	assert.False(t, report.Results[0].OK)

	accounts, _ := f.client.ListAll(context.Background())
	assert.Len(t, accounts, 3)
	assert.Len(t, f.auditFor(t, "bulk_delete"), 2)
}

func TestBulkPasswordResetSendsPerAccount(t *testing.T) {
	f := newClientFixture(t)
	dispatcher := NewBulkDispatcher(f.client, nil, nil, zap.NewNop())

	report, err := dispatcher.Dispatch(context.Background(), testAdmin, models.BulkRequest{Operation: models.BulkPasswordReset, IDs: []string{"user-2", "user-3"}})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, 2, f.notifier.sent)
	assert.Len(t, f.auditFor(t, "bulk_password_reset"), 2)
}

func TestBulkRejectsEmptySelection(t *testing.T) {
	f := newClientFixture(t)
	dispatcher := NewBulkDispatcher(f.client, nil, nil, zap.NewNop())

	_, err := dispatcher.Dispatch(context.Background(), testAdmin, models.BulkRequest{Operation: models.BulkActivate})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Empty(t, f.audit(t))
}

func TestRowActionConfirm(t *testing.T) {
	f := newClientFixture(t)
	rows := NewRowActionService(NewPendingActions(), f.client)
	session := &models.Session{Token: "session-token", AccountID: testAdmin.ID}
	ctx := context.Background()

	_, _, err := rows.Stage(ctx, session, models.PendingDelete, "missing")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	action, account, err := rows.Stage(ctx, session, models.PendingEdit, "user-2")
	require.NoError(t, err)
	assert.Equal(t, models.PendingEdit, action.Kind)
	assert.Equal(t, "john.doe@example.com", account.Email)

	_, res := rows.Confirm(ctx, session, testAdmin, nil)
	assert.False(t, res.OK)
	current, ok := rows.Current(session)
	require.True(t, ok, "edit without changes stays staged")
	assert.Equal(t, "user-2", current.AccountID)

	_, res = rows.Confirm(ctx, session, testAdmin, &models.UpdateAccountRequest{ProfileFields: models.ProfileFields{Department: strPtr("Operations")}})
	require.True(t, res.OK, res.Message)
	_, ok = rows.Current(session)
	assert.False(t, ok)

	_, _, err = rows.Stage(ctx, session, models.PendingDelete, "user-3")
	require.NoError(t, err)
	rows.Cancel(session)
	_, res = rows.Confirm(ctx, session, testAdmin, nil)
	assert.Equal(t, appErrors.ErrNotFound.Code, res.Code)
}
