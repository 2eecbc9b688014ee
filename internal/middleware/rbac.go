package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/userflow-api/internal/models"
	appErrors "github.com/noah-isme/userflow-api/pkg/errors"
	"github.com/noah-isme/userflow-api/pkg/response"
)

// RBAC enforces role-based access control for routes. "SELF" admits the
// session owner when the :id route parameter is their own account.
func RBAC(allowed ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := SessionFromContext(c)
		if session == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		allowSelf := false
		allowedRoles := make(map[models.AccountRole]struct{})
		for _, a := range allowed {
			if a == "SELF" {
				allowSelf = true
				continue
			}
			allowedRoles[models.AccountRole(a)] = struct{}{}
		}

		if _, ok := allowedRoles[session.Role]; ok {
			c.Next()
			return
		}
		if allowSelf {
			if targetID := c.Param("id"); targetID != "" && targetID == session.AccountID {
				c.Next()
				return
			}
		}

		response.Error(c, appErrors.Clone(appErrors.ErrInsufficientRole, "Access denied: administrator privileges required"))
		c.Abort()
	}
}

// RequireRoles is a helper that accepts a list of roles.
func RequireRoles(roles ...models.AccountRole) gin.HandlerFunc {
	allowed := make([]string, len(roles))
	for i, r := range roles {
		allowed[i] = string(r)
	}
	return RBAC(allowed...)
}
