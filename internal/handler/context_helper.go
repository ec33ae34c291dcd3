package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/refreeg/moderation-api/internal/middleware"
	"github.com/refreeg/moderation-api/internal/models"
	"github.com/refreeg/moderation-api/internal/service"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// actorFromContext combines the verified identity with the resolved role.
// Anonymous callers get a zero Actor; authenticated callers without an
// explicit assignment default to the plain user role.
func actorFromContext(c *gin.Context) service.Actor {
	claims := claimsFromContext(c)
	if claims == nil {
		return service.Actor{}
	}
	actor := service.Actor{UserID: claims.UserID, Role: models.RoleUser}
	if value, exists := c.Get(middleware.ContextRoleKey); exists {
		if role, ok := value.(models.UserRole); ok {
			actor.Role = role
		}
	}
	return actor
}
