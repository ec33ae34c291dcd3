package dto

import "github.com/refreeg/moderation-api/internal/models"

// SubmitVerificationRequest carries the personal data half of a KYC
// submission; the document arrives as a multipart file alongside it.
type SubmitVerificationRequest struct {
	DocumentType string `form:"document_type" json:"document_type" validate:"required"`
	FullName     string `form:"full_name" json:"full_name" validate:"required"`
	DateOfBirth  string `form:"date_of_birth" json:"date_of_birth" validate:"required"`
	Phone        string `form:"phone" json:"phone" validate:"required"`
	Address      string `form:"address" json:"address" validate:"required"`
	City         string `form:"city" json:"city" validate:"required"`
	State        string `form:"state" json:"state" validate:"required"`
	PostalCode   string `form:"postal_code" json:"postal_code" validate:"required"`
	Country      string `form:"country" json:"country" validate:"required"`
}

// ReviewVerificationRequest records an admin decision on a KYC record.
type ReviewVerificationRequest struct {
	Approve bool   `json:"approve"`
	Notes   string `json:"notes"`
}

// VerificationStatusResponse is the owner-facing view of a record with
// the stored document path resolved to a fetchable URL.
type VerificationStatusResponse struct {
	models.Verification
	DocumentURL string `json:"document_url,omitempty"`
}
