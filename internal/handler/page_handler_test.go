package handler

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/userflow-api/internal/models"
)

func TestPagesRedirectWithoutSession(t *testing.T) {
	a := newApp(t)
	b := a.browser(t)

	rec := b.get("/users")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login?next=%2Fusers", rec.Header().Get("Location"))

	rec = b.get("/login")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Sign in")
}

func TestPagesAdminFlow(t *testing.T) {
	a := newApp(t)
	b := a.browser(t)

	rec := b.login(testAdminEmail, testAdminPassword)
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	assert.Equal(t, "/", rec.Header().Get("Location"))
	require.NotEmpty(t, b.cookies)

	rec = b.get("/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Demo mode")

	rec = b.get("/users?status=Active")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "john.doe@example.com")
	assert.NotContains(t, body, "jane.smith@example.com")

	rec = b.post("/users/bulk", url.Values{"operation": {"activate"}, "ids": {"user-3"}})
	require.Equal(t, http.StatusOK, rec.Code)
	account, err := a.store.GetAccount(context.Background(), "user-3")
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, account.Status)

	rec = b.post("/users/user-2/actions/delete", nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	rec = b.get("/users")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Confirm delete")

	rec = b.post("/users/pending/confirm", nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	_, err = a.store.GetAccount(context.Background(), "user-2")
	assert.Error(t, err)

	rec = b.post("/logout", nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Len(t, a.auditFor(t, models.AuditActionLogout), 1)

	rec = b.get("/")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
}

func TestPagesUserLandsOnOwnAccount(t *testing.T) {
	a := newApp(t)
	b := a.browser(t)

	rec := b.login("john.doe@example.com", testUserPassword)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/me", rec.Header().Get("Location"))

	rec = b.get("/users")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/me", rec.Header().Get("Location"))

	rec = b.get("/me")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "john.doe@example.com")
	assert.Contains(t, body, "Access denied: administrator privileges required")
}

func TestPagesLoginFailureRerendersForm(t *testing.T) {
	a := newApp(t)
	b := a.browser(t)

	rec := b.login(testAdminEmail, "wrong")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid email or password")
	assert.Empty(t, b.cookies)
}
