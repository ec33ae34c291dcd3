package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/refreeg/moderation-api/internal/models"
)

// RoleRepository provides persistence for role assignments.
type RoleRepository struct {
	db *sqlx.DB
}

// NewRoleRepository creates the repository.
func NewRoleRepository(db *sqlx.DB) *RoleRepository {
	return &RoleRepository{db: db}
}

// GetRole returns the user's assigned role, or RoleUser when no row exists.
func (r *RoleRepository) GetRole(ctx context.Context, userID string) (models.UserRole, error) {
	var role models.UserRole
	if err := r.db.GetContext(ctx, &role, "SELECT role FROM roles WHERE user_id = $1", userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.RoleUser, nil
		}
		return "", fmt.Errorf("get role: %w", err)
	}
	return role, nil
}

// SetRole assigns a role, inserting or updating as needed.
func (r *RoleRepository) SetRole(ctx context.Context, userID string, role models.UserRole) error {
	const query = `INSERT INTO roles (user_id, role, created_at, updated_at)
VALUES ($1, $2, NOW(), NOW())
ON CONFLICT (user_id) DO UPDATE SET role = EXCLUDED.role, updated_at = NOW()`
	if _, err := r.db.ExecContext(ctx, query, userID, role); err != nil {
		return fmt.Errorf("set role: %w", err)
	}
	return nil
}

// ListUsersWithRoles joins profiles with role assignments and the latest
// verification status for the admin user listing.
func (r *RoleRepository) ListUsersWithRoles(ctx context.Context) ([]models.UserWithRole, error) {
	const query = `SELECT p.id AS user_id, p.email, p.full_name,
COALESCE(ro.role, 'user') AS role, p.is_verified,
v.status AS verification_status, p.created_at
FROM profiles p
LEFT JOIN roles ro ON ro.user_id = p.id
LEFT JOIN LATERAL (
	SELECT status FROM verifications WHERE user_id = p.id ORDER BY created_at DESC LIMIT 1
) v ON TRUE
ORDER BY p.created_at DESC`
	var users []models.UserWithRole
	if err := r.db.SelectContext(ctx, &users, query); err != nil {
		return nil, fmt.Errorf("list users with roles: %w", err)
	}
	return users, nil
}
