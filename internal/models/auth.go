package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims represents the access-token payload issued by the identity
// provider. Roles are deliberately absent; the effective role is always
// resolved from the roles table.
type JWTClaims struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	jwt.RegisteredClaims
}
