package models

import "time"

// UserRole represents the available roles for the RBAC system.
// Users without a roles row default to RoleUser.
type UserRole string

const (
	RoleUser    UserRole = "user"
	RoleManager UserRole = "manager"
	RoleAdmin   UserRole = "admin"
)

// Valid reports whether the role is one of the known values.
func (r UserRole) Valid() bool {
	return r == RoleUser || r == RoleManager || r == RoleAdmin
}

// RoleAssignment maps a user to an explicit role.
type RoleAssignment struct {
	UserID    string    `db:"user_id" json:"user_id"`
	Role      UserRole  `db:"role" json:"role"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// UserWithRole joins a profile with its effective role and latest
// verification status for the admin user listing.
type UserWithRole struct {
	UserID             string              `db:"user_id" json:"user_id"`
	Email              string              `db:"email" json:"email"`
	FullName           string              `db:"full_name" json:"full_name"`
	Role               UserRole            `db:"role" json:"role"`
	IsVerified         bool                `db:"is_verified" json:"is_verified"`
	VerificationStatus *VerificationStatus `db:"verification_status" json:"verification_status,omitempty"`
	CreatedAt          time.Time           `db:"created_at" json:"created_at"`
}
