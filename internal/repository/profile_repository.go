package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/refreeg/moderation-api/internal/models"
)

// ProfileRepository provides read access to account profiles.
type ProfileRepository struct {
	db *sqlx.DB
}

// NewProfileRepository creates the repository.
func NewProfileRepository(db *sqlx.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// GetByID returns a profile by identifier.
func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	const query = `SELECT id, email, full_name, is_verified, is_blocked, created_at, updated_at
FROM profiles WHERE id = $1`
	var profile models.Profile
	if err := r.db.GetContext(ctx, &profile, query, id); err != nil {
		return nil, err
	}
	return &profile, nil
}

// SetBlocked toggles the moderation block flag on a profile.
func (r *ProfileRepository) SetBlocked(ctx context.Context, id string, blocked bool) error {
	const query = `UPDATE profiles SET is_blocked = $1, updated_at = NOW() WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, blocked, id)
	if err != nil {
		return fmt.Errorf("set blocked: %w", err)
	}
	return requireRow(result, sql.ErrNoRows)
}
