package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/refreeg/moderation-api/internal/models"
)

const verificationColumns = `id, user_id, document_type, document_path, full_name, date_of_birth, phone, address, city, state, postal_code, country, status, notes, created_at, updated_at`

// VerificationRepository provides persistence for KYC records.
type VerificationRepository struct {
	db *sqlx.DB
}

// NewVerificationRepository creates the repository.
func NewVerificationRepository(db *sqlx.DB) *VerificationRepository {
	return &VerificationRepository{db: db}
}

// Create inserts a new verification record.
func (r *VerificationRepository) Create(ctx context.Context, verification *models.Verification) error {
	if verification.ID == "" {
		verification.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	verification.CreatedAt = now
	verification.UpdatedAt = now
	const query = `INSERT INTO verifications (id, user_id, document_type, document_path, full_name, date_of_birth, phone, address, city, state, postal_code, country, status, notes, created_at, updated_at)
VALUES (:id, :user_id, :document_type, :document_path, :full_name, :date_of_birth, :phone, :address, :city, :state, :postal_code, :country, :status, :notes, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, verification); err != nil {
		return fmt.Errorf("create verification: %w", err)
	}
	return nil
}

// Update rewrites a verification record in place. Used by resubmission.
func (r *VerificationRepository) Update(ctx context.Context, verification *models.Verification) error {
	verification.UpdatedAt = time.Now().UTC()
	const query = `UPDATE verifications SET document_type = :document_type, document_path = :document_path, full_name = :full_name,
date_of_birth = :date_of_birth, phone = :phone, address = :address, city = :city, state = :state,
postal_code = :postal_code, country = :country, status = :status, notes = :notes, updated_at = :updated_at
WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, verification); err != nil {
		return fmt.Errorf("update verification: %w", err)
	}
	return nil
}

// GetByID returns a verification record by identifier.
func (r *VerificationRepository) GetByID(ctx context.Context, id string) (*models.Verification, error) {
	query := fmt.Sprintf("SELECT %s FROM verifications WHERE id = $1", verificationColumns)
	var verification models.Verification
	if err := r.db.GetContext(ctx, &verification, query, id); err != nil {
		return nil, err
	}
	return &verification, nil
}

// FindLatestByUser returns the user's most recent verification record, or
// nil when the user has never submitted one.
func (r *VerificationRepository) FindLatestByUser(ctx context.Context, userID string) (*models.Verification, error) {
	query := fmt.Sprintf(`SELECT %s FROM verifications WHERE user_id = $1
ORDER BY created_at DESC LIMIT 1`, verificationColumns)
	var verification models.Verification
	if err := r.db.GetContext(ctx, &verification, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find verification: %w", err)
	}
	return &verification, nil
}

// ListPending returns the admin review queue, oldest first.
func (r *VerificationRepository) ListPending(ctx context.Context) ([]models.Verification, error) {
	query := fmt.Sprintf(`SELECT %s FROM verifications WHERE status = 'pending' ORDER BY created_at ASC`, verificationColumns)
	var verifications []models.Verification
	if err := r.db.SelectContext(ctx, &verifications, query); err != nil {
		return nil, fmt.Errorf("list pending verifications: %w", err)
	}
	return verifications, nil
}

// Review records an admin decision and mirrors the outcome onto the
// user's profile in the same transaction. Last review wins.
func (r *VerificationRepository) Review(ctx context.Context, id string, status models.VerificationStatus, notes string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin review verification: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var userID string
	const updateQuery = `UPDATE verifications SET status = $1, notes = $2, updated_at = NOW() WHERE id = $3 RETURNING user_id`
	if err := tx.GetContext(ctx, &userID, updateQuery, status, notes, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sql.ErrNoRows
		}
		return fmt.Errorf("review verification: %w", err)
	}

	const mirrorQuery = `UPDATE profiles SET is_verified = $1, updated_at = NOW() WHERE id = $2`
	result, err := tx.ExecContext(ctx, mirrorQuery, status == models.VerificationApproved, userID)
	if err != nil {
		return fmt.Errorf("mirror verification onto profile: %w", err)
	}
	if err := requireRow(result, sql.ErrNoRows); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit review verification: %w", err)
	}
	return nil
}
