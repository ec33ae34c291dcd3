package models

import (
	"time"

	"github.com/lib/pq"
)

// SubmissionKind distinguishes the two moderated entity families.
type SubmissionKind string

const (
	KindCause    SubmissionKind = "cause"
	KindPetition SubmissionKind = "petition"
)

// Valid reports whether the kind is one of the known values.
func (k SubmissionKind) Valid() bool {
	return k == KindCause || k == KindPetition
}

// SubmissionStatus is the lifecycle state of a submission.
type SubmissionStatus string

const (
	StatusPending  SubmissionStatus = "pending"
	StatusApproved SubmissionStatus = "approved"
	StatusRejected SubmissionStatus = "rejected"
	StatusExpired  SubmissionStatus = "expired"
)

// Submission represents a persisted cause or petition row.
type Submission struct {
	ID              string           `db:"id" json:"id"`
	OwnerID         string           `db:"owner_id" json:"owner_id"`
	Kind            SubmissionKind   `db:"kind" json:"kind"`
	Title           string           `db:"title" json:"title"`
	Category        string           `db:"category" json:"category"`
	Goal            int64            `db:"goal" json:"goal"`
	Raised          int64            `db:"raised" json:"raised"`
	Shared          int64            `db:"shared" json:"shared"`
	CoverImage      *string          `db:"cover_image" json:"cover_image,omitempty"`
	Multimedia      pq.StringArray   `db:"multimedia" json:"multimedia"`
	VideoLinks      pq.StringArray   `db:"video_links" json:"video_links"`
	DaysActive      *int             `db:"days_active" json:"days_active,omitempty"`
	Status          SubmissionStatus `db:"status" json:"status"`
	RejectionReason *string          `db:"rejection_reason" json:"rejection_reason,omitempty"`
	CreatedAt       time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time        `db:"updated_at" json:"updated_at"`

	Sections []SubmissionSection `db:"-" json:"sections,omitempty"`
}

// SubmissionSection is one ordered content block of a submission.
type SubmissionSection struct {
	ID           string    `db:"id" json:"id"`
	SubmissionID string    `db:"submission_id" json:"submission_id"`
	Heading      string    `db:"heading" json:"heading"`
	Body         string    `db:"body" json:"body"`
	Position     int       `db:"position" json:"position"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// EditStatus is the lifecycle state of a staged edit. Approval consumes
// the edit row, so "approved" never appears in storage.
type EditStatus string

const (
	EditStatusPending  EditStatus = "pending"
	EditStatusRejected EditStatus = "rejected"
)

// SubmissionEdit is a staged full-content replacement awaiting review.
type SubmissionEdit struct {
	ID              string         `db:"id" json:"id"`
	SubmissionID    string         `db:"submission_id" json:"submission_id"`
	OwnerID         string         `db:"owner_id" json:"owner_id"`
	Title           string         `db:"title" json:"title"`
	Category        string         `db:"category" json:"category"`
	Goal            int64          `db:"goal" json:"goal"`
	CoverImage      *string        `db:"cover_image" json:"cover_image,omitempty"`
	Multimedia      pq.StringArray `db:"multimedia" json:"multimedia"`
	VideoLinks      pq.StringArray `db:"video_links" json:"video_links"`
	DaysActive      *int           `db:"days_active" json:"days_active,omitempty"`
	Status          EditStatus     `db:"status" json:"status"`
	RejectionReason *string        `db:"rejection_reason" json:"rejection_reason,omitempty"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`

	Sections []SubmissionSection `db:"-" json:"sections,omitempty"`
}

// SubmissionFilter captures listing criteria.
type SubmissionFilter struct {
	Kind     SubmissionKind
	Category string
	Status   *SubmissionStatus
	OwnerID  string
	Page     int
	PageSize int
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
