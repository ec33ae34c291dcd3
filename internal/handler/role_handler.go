package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/refreeg/moderation-api/internal/dto"
	"github.com/refreeg/moderation-api/internal/models"
	"github.com/refreeg/moderation-api/internal/service"
	appErrors "github.com/refreeg/moderation-api/pkg/errors"
	"github.com/refreeg/moderation-api/pkg/response"
)

type roleService interface {
	GetRole(ctx context.Context, userID string) (models.UserRole, error)
	SetRole(ctx context.Context, actor service.Actor, targetUserID string, role models.UserRole) error
	ListUsersWithRoles(ctx context.Context, actor service.Actor) ([]models.UserWithRole, error)
	SetBlocked(ctx context.Context, actor service.Actor, targetUserID string, blocked bool) error
}

// RoleHandler serves role assignment endpoints.
type RoleHandler struct {
	service roleService
}

// NewRoleHandler constructs the handler.
func NewRoleHandler(service roleService) *RoleHandler {
	return &RoleHandler{service: service}
}

// Me godoc
// @Summary Fetch the caller's effective role
// @Tags Roles
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /roles/me [get]
func (h *RoleHandler) Me(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	role, err := h.service.GetRole(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.RoleResponse{UserID: claims.UserID, Role: role}, nil)
}

// Set godoc
// @Summary Assign a role to a user
// @Tags Roles
// @Accept json
// @Success 204
// @Router /roles [put]
func (h *RoleHandler) Set(c *gin.Context) {
	var req dto.SetRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid role payload"))
		return
	}
	if err := h.service.SetRole(c.Request.Context(), actorFromContext(c), req.UserID, req.Role); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Block godoc
// @Summary Block or unblock a user
// @Tags Roles
// @Accept json
// @Param id path string true "user id"
// @Success 204
// @Router /roles/users/{id}/block [put]
func (h *RoleHandler) Block(c *gin.Context) {
	var req dto.BlockUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid block payload"))
		return
	}
	if err := h.service.SetBlocked(c.Request.Context(), actorFromContext(c), c.Param("id"), req.Blocked); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Users godoc
// @Summary List users with roles and verification status
// @Tags Roles
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /roles/users [get]
func (h *RoleHandler) Users(c *gin.Context) {
	users, err := h.service.ListUsersWithRoles(c.Request.Context(), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, users, nil)
}
