package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/refreeg/moderation-api/internal/models"
	appErrors "github.com/refreeg/moderation-api/pkg/errors"
	"github.com/refreeg/moderation-api/pkg/response"
)

type roleResolver interface {
	GetRole(ctx context.Context, userID string) (models.UserRole, error)
}

// ResolveRole looks up the caller's role from the roles table and stores
// it in the context. Requires JWT to have run first.
func ResolveRole(roles roleResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims := claimsValue.(*models.JWTClaims)

		role, err := roles.GetRole(c.Request.Context(), claims.UserID)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		c.Set(ContextRoleKey, role)
		c.Next()
	}
}

// OptionalResolveRole resolves the role when claims are present and is a
// no-op for anonymous callers.
func OptionalResolveRole(roles roleResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			c.Next()
			return
		}
		claims := claimsValue.(*models.JWTClaims)
		role, err := roles.GetRole(c.Request.Context(), claims.UserID)
		if err != nil {
			c.Next()
			return
		}
		c.Set(ContextRoleKey, role)
		c.Next()
	}
}

// RequireRoles enforces that the resolved role is one of the allowed set.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(c *gin.Context) {
		roleValue, exists := c.Get(ContextRoleKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		role := roleValue.(models.UserRole)
		if _, ok := allowed[role]; !ok {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireStaff restricts a route to managers and admins.
func RequireStaff() gin.HandlerFunc {
	return RequireRoles(models.RoleManager, models.RoleAdmin)
}
