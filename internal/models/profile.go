package models

import "time"

// Profile is the public-facing account record. is_verified mirrors the
// outcome of the latest verification review.
type Profile struct {
	ID         string    `db:"id" json:"id"`
	Email      string    `db:"email" json:"email"`
	FullName   string    `db:"full_name" json:"full_name"`
	IsVerified bool      `db:"is_verified" json:"is_verified"`
	IsBlocked  bool      `db:"is_blocked" json:"is_blocked"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}
