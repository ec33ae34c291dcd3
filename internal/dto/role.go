package dto

import "github.com/refreeg/moderation-api/internal/models"

// SetRoleRequest assigns a role to a user. Admin only.
type SetRoleRequest struct {
	UserID string          `json:"user_id" validate:"required"`
	Role   models.UserRole `json:"role" validate:"required"`
}

// BlockUserRequest flips a profile's blocked flag. Admin only.
type BlockUserRequest struct {
	Blocked bool `json:"blocked"`
}

// RoleResponse reports a user's effective role.
type RoleResponse struct {
	UserID string          `json:"user_id"`
	Role   models.UserRole `json:"role"`
}
