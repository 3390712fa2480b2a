package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/uphsl-enrollment-api/internal/models"
	appErrors "github.com/noah-isme/uphsl-enrollment-api/pkg/errors"
	"github.com/noah-isme/uphsl-enrollment-api/pkg/response"
)

// accessRule decides whether the authenticated caller may reach a route.
type accessRule func(c *gin.Context, claims *models.JWTClaims) bool

// RequireRoles admits callers holding one of roles.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	return authorize(roleRule(roles))
}

// RequireRolesOrSelf admits callers holding one of roles, and callers whose
// user ID matches the path parameter param. Student IDs are compared case
// insensitively since "M25-1470-001" and "m25-1470-001" name the same student.
func RequireRolesOrSelf(param string, roles ...models.UserRole) gin.HandlerFunc {
	byRole := roleRule(roles)
	return authorize(func(c *gin.Context, claims *models.JWTClaims) bool {
		if byRole(c, claims) {
			return true
		}
		target := c.Param(param)
		return target != "" && claims.UserID != "" && strings.EqualFold(target, claims.UserID)
	})
}

func roleRule(roles []models.UserRole) accessRule {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(_ *gin.Context, claims *models.JWTClaims) bool {
		_, ok := allowed[claims.Role]
		return ok
	}
}

func authorize(rule accessRule) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := ClaimsFromContext(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if !rule(c, claims) {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "role "+string(claims.Role)+" may not access this resource"))
			c.Abort()
			return
		}
		c.Next()
	}
}
