package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/userflow-api/internal/models"
)

func TestAccountHandlerListFilters(t *testing.T) {
	a := newApp(t)
	token := a.bearer(t, "user-1")

	cases := []struct {
		query   string
		matched int
	}{
		{query: "", matched: 4},
		{query: "?status=Active", matched: 3},
		{query: "?status=All&role=moderator", matched: 1},
		{query: "?search=SMITH", matched: 1},
		{query: "?search=nobody", matched: 0},
	}
	for _, tc := range cases {
		t.Run(tc.query, func(t *testing.T) {
			rec := a.do(t, http.MethodGet, "/api/v1/accounts"+tc.query, token, nil)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			envelope := decodeEnvelope(t, rec)
			var accounts []models.Account
			require.NoError(t, json.Unmarshal(envelope.Data, &accounts))
			assert.Len(t, accounts, tc.matched)
			assert.EqualValues(t, 4, envelope.Meta["total"])
			assert.EqualValues(t, tc.matched, envelope.Meta["matched"])
		})
	}
}

func TestAccountHandlerRequiresAdmin(t *testing.T) {
	a := newApp(t)
	token := a.bearer(t, "user-2")

	rec := a.do(t, http.MethodGet, "/api/v1/accounts", token, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "INSUFFICIENT_ROLE", decodeEnvelope(t, rec).Error.Code)

	// The portal stays reachable for the same session.
	rec = a.do(t, http.MethodGet, "/api/v1/me", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAccountHandlerCreate(t *testing.T) {
	a := newApp(t)
	token := a.bearer(t, "user-1")

	t.Run("validation", func(t *testing.T) {
		rec := a.do(t, http.MethodPost, "/api/v1/accounts", token, map[string]string{
			"email":            "not-an-email",
			"password":         "short",
			"confirm_password": "different",
			"full_name":        "Bad Input",
		})
		require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		envelope := decodeEnvelope(t, rec)
		assert.Equal(t, "VALIDATION_ERROR", envelope.Error.Code)
		assert.NotEmpty(t, envelope.Error.Details)
		assert.Empty(t, a.auditFor(t, models.AuditActionCreateUser), "validation failures are not audited")
	})

	t.Run("success", func(t *testing.T) {
		rec := a.do(t, http.MethodPost, "/api/v1/accounts", token, map[string]string{
			"email":            "new.person@example.com",
			"password":         "Sup3rSecret!",
			"confirm_password": "Sup3rSecret!",
			"full_name":        "New Person",
			"role":             "moderator",
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var created models.Account
		require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &created))
		assert.Equal(t, "new.person@example.com", created.Email)
		assert.Equal(t, models.RoleModerator, created.Role)

		entries := a.auditFor(t, models.AuditActionCreateUser)
		require.Len(t, entries, 1)
		assert.Equal(t, created.ID, entries[0].Target())
	})

	t.Run("duplicate email", func(t *testing.T) {
		rec := a.do(t, http.MethodPost, "/api/v1/accounts", token, map[string]string{
			"email":            "john.doe@example.com",
			"password":         "Sup3rSecret!",
			"confirm_password": "Sup3rSecret!",
			"full_name":        "Second John",
		})
		assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
	})
}

func TestAccountHandlerDeleteSelfIsRefused(t *testing.T) {
	a := newApp(t)
	token := a.bearer(t, "user-1")

	rec := a.do(t, http.MethodDelete, "/api/v1/accounts/user-1", token, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	_, err := a.store.GetAccount(context.Background(), "user-1")
	assert.NoError(t, err)

	entries := a.auditFor(t, models.AuditActionDeleteUser)
	require.Len(t, entries, 1)
	assert.Equal(t, models.OutcomeFailure, entries[0].Outcome)
}

func TestAccountHandlerDelete(t *testing.T) {
	a := newApp(t)
	token := a.bearer(t, "user-1")

	rec := a.do(t, http.MethodDelete, "/api/v1/accounts/user-3", token, nil)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = a.do(t, http.MethodGet, "/api/v1/accounts/user-3", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBulkHandlerDeactivate(t *testing.T) {
	a := newApp(t)
	token := a.bearer(t, "user-1")

	rec := a.do(t, http.MethodPost, "/api/v1/accounts/bulk", token, map[string]interface{}{
		"operation": "deactivate",
		"ids":       []string{"user-2", "missing", "user-4"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	envelope := decodeEnvelope(t, rec)
	var report models.BulkReport
	require.NoError(t, json.Unmarshal(envelope.Data, &report))
	assert.Equal(t, 3, report.Attempted)
	assert.Equal(t, 2, report.Succeeded)
	assert.EqualValues(t, 1, envelope.Meta["failed"])
	require.Len(t, report.Results, 3)
	assert.False(t, report.Results[1].OK)

	for _, id := range []string{"user-2", "user-4"} {
		account, err := a.store.GetAccount(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, models.StatusInactive, account.Status)
	}
	assert.Len(t, a.auditFor(t, models.BulkDeactivate.AuditAction()), 3)
}

func TestPendingHandlerStageConfirm(t *testing.T) {
	a := newApp(t)
	token := a.bearer(t, "user-1")

	rec := a.do(t, http.MethodPost, "/api/v1/accounts/user-2/actions/reset_password", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = a.do(t, http.MethodGet, "/api/v1/pending", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var staged models.PendingAction
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &staged))
	assert.Equal(t, models.PendingResetPassword, staged.Kind)
	assert.Equal(t, "user-2", staged.AccountID)

	rec = a.do(t, http.MethodPost, "/api/v1/pending/confirm", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, a.auditFor(t, models.AuditActionPasswordResetEmail), 1)

	rec = a.do(t, http.MethodGet, "/api/v1/pending", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPendingHandlerEditNeedsChanges(t *testing.T) {
	a := newApp(t)
	token := a.bearer(t, "user-1")

	rec := a.do(t, http.MethodPost, "/api/v1/accounts/user-2/actions/edit", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(t, http.MethodPost, "/api/v1/pending/confirm", token, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, http.MethodPost, "/api/v1/pending/confirm", token, map[string]string{"department": "Finance"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	account, err := a.store.GetAccount(context.Background(), "user-2")
	require.NoError(t, err)
	assert.Equal(t, "Finance", account.Department)
}

func TestPendingHandlerRejectsUnknownKind(t *testing.T) {
	a := newApp(t)
	token := a.bearer(t, "user-1")

	rec := a.do(t, http.MethodPost, "/api/v1/accounts/user-2/actions/promote", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, http.MethodDelete, "/api/v1/pending", token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
