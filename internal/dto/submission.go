package dto

import "github.com/refreeg/moderation-api/internal/models"

// SectionInput is one ordered content block in a create or edit payload.
type SectionInput struct {
	Heading string `json:"heading" validate:"required"`
	Body    string `json:"body" validate:"required"`
}

// CreateSubmissionRequest carries a new cause or petition draft. Media
// fields hold blob-store references produced by the upload step.
type CreateSubmissionRequest struct {
	Title      string         `json:"title" validate:"required,min=3,max=200"`
	Category   string         `json:"category" validate:"required"`
	Goal       int64          `json:"goal" validate:"required,gt=0"`
	CoverImage *string        `json:"cover_image"`
	Multimedia []string       `json:"multimedia"`
	VideoLinks []string       `json:"video_links"`
	StartDate  *string        `json:"start_date"`
	EndDate    *string        `json:"end_date"`
	Sections   []SectionInput `json:"sections"`
}

// ProposedContent is the full replacement payload staged by an edit.
// Every editable submission field appears here; merge copies all of them.
type ProposedContent struct {
	Title      string         `json:"title" validate:"required,min=3,max=200"`
	Category   string         `json:"category" validate:"required"`
	Goal       int64          `json:"goal" validate:"required,gt=0"`
	CoverImage *string        `json:"cover_image"`
	Multimedia []string       `json:"multimedia"`
	VideoLinks []string       `json:"video_links"`
	DaysActive *int           `json:"days_active"`
	Sections   []SectionInput `json:"sections"`
}

// RejectSubmissionRequest carries the moderation rejection reason.
type RejectSubmissionRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// ListSubmissionsQuery captures query parameters for listing.
type ListSubmissionsQuery struct {
	Category string `form:"category"`
	Status   string `form:"status"`
	Owner    string `form:"owner"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}

// ListSubmissionsResponse wraps a page of submissions.
type ListSubmissionsResponse struct {
	Items      []models.Submission `json:"items"`
	Pagination models.Pagination   `json:"pagination"`
}
