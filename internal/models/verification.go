package models

import "time"

// VerificationStatus tracks an identity verification record.
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationApproved VerificationStatus = "approved"
	VerificationRejected VerificationStatus = "rejected"
)

// Verification represents a KYC record. A user keeps a single meaningful
// row; resubmission updates it in place.
type Verification struct {
	ID           string             `db:"id" json:"id"`
	UserID       string             `db:"user_id" json:"user_id"`
	DocumentType string             `db:"document_type" json:"document_type"`
	DocumentPath string             `db:"document_path" json:"-"`
	FullName     string             `db:"full_name" json:"full_name"`
	DateOfBirth  string             `db:"date_of_birth" json:"date_of_birth"`
	Phone        string             `db:"phone" json:"phone"`
	Address      string             `db:"address" json:"address"`
	City         string             `db:"city" json:"city"`
	State        string             `db:"state" json:"state"`
	PostalCode   string             `db:"postal_code" json:"postal_code"`
	Country      string             `db:"country" json:"country"`
	Status       VerificationStatus `db:"status" json:"status"`
	Notes        *string            `db:"notes" json:"notes,omitempty"`
	CreatedAt    time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `db:"updated_at" json:"updated_at"`
}
