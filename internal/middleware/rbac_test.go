package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/userflow-api/internal/models"
)

func rbacRouter(session *models.Session, allowed ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if session != nil {
			c.Set(ContextSessionKey, session)
		}
		c.Next()
	})
	router.GET("/accounts/:id", RBAC(allowed...), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return router
}

func errorCode(t *testing.T, body []byte) string {
	t.Helper()
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return envelope.Error.Code
}

func TestRBACRejectsMissingSession(t *testing.T) {
	router := rbacRouter(nil, string(models.RoleAdmin))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/accounts/user-2", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	if code := errorCode(t, rec.Body.Bytes()); code != "UNAUTHORIZED" {
		t.Fatalf("unexpected code: %s", code)
	}
}

func TestRBACAllowsListedRole(t *testing.T) {
	router := rbacRouter(&models.Session{AccountID: "user-1", Role: models.RoleAdmin}, string(models.RoleAdmin))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/accounts/user-2", nil))

	if rec.Code != http.StatusNoContent {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
}

func TestRBACRejectsOtherRoles(t *testing.T) {
	router := rbacRouter(&models.Session{AccountID: "user-4", Role: models.RoleModerator}, string(models.RoleAdmin))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/accounts/user-2", nil))

	if rec.Code != http.StatusForbidden {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	if code := errorCode(t, rec.Body.Bytes()); code != "INSUFFICIENT_ROLE" {
		t.Fatalf("unexpected code: %s", code)
	}
}

func TestRBACSelfMatchesOwnAccountOnly(t *testing.T) {
	session := &models.Session{AccountID: "user-2", Role: models.RoleUser}
	router := rbacRouter(session, string(models.RoleAdmin), "SELF")

	own := httptest.NewRecorder()
	router.ServeHTTP(own, httptest.NewRequest(http.MethodGet, "/accounts/user-2", nil))
	if own.Code != http.StatusNoContent {
		t.Fatalf("own account: unexpected status %d", own.Code)
	}

	other := httptest.NewRecorder()
	router.ServeHTTP(other, httptest.NewRequest(http.MethodGet, "/accounts/user-3", nil))
	if other.Code != http.StatusForbidden {
		t.Fatalf("other account: unexpected status %d", other.Code)
	}
}

func TestRequireRolesAcceptsTypedRoles(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(ContextSessionKey, &models.Session{AccountID: "user-4", Role: models.RoleModerator})
		c.Next()
	})
	router.GET("/", RequireRoles(models.RoleAdmin, models.RoleModerator), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
}
