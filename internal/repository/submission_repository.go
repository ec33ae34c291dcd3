package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/refreeg/moderation-api/internal/models"
)

const submissionColumns = `id, owner_id, kind, title, category, goal, raised, shared, cover_image, multimedia, video_links, days_active, status, rejection_reason, created_at, updated_at`

const editColumns = `id, submission_id, owner_id, title, category, goal, cover_image, multimedia, video_links, days_active, status, rejection_reason, created_at, updated_at`

// SubmissionRepository provides persistence for causes and petitions,
// their ordered sections, and staged edits.
type SubmissionRepository struct {
	db *sqlx.DB
}

// NewSubmissionRepository creates the repository.
func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// Create inserts a submission together with its sections in one transaction.
func (r *SubmissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	if submission.ID == "" {
		submission.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	submission.CreatedAt = now
	submission.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create submission: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const query = `INSERT INTO submissions (id, owner_id, kind, title, category, goal, raised, shared, cover_image, multimedia, video_links, days_active, status, rejection_reason, created_at, updated_at)
VALUES (:id, :owner_id, :kind, :title, :category, :goal, :raised, :shared, :cover_image, :multimedia, :video_links, :days_active, :status, :rejection_reason, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, submission); err != nil {
		return fmt.Errorf("create submission: %w", err)
	}
	if err := insertSections(ctx, tx, "submission_sections", "submission_id", submission.ID, submission.Sections); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create submission: %w", err)
	}
	return nil
}

// GetByID returns a submission with its sections.
func (r *SubmissionRepository) GetByID(ctx context.Context, id string) (*models.Submission, error) {
	query := fmt.Sprintf("SELECT %s FROM submissions WHERE id = $1", submissionColumns)
	var submission models.Submission
	if err := r.db.GetContext(ctx, &submission, query, id); err != nil {
		return nil, err
	}
	sections, err := r.loadSections(ctx, "submission_sections", "submission_id", submission.ID)
	if err != nil {
		return nil, err
	}
	submission.Sections = sections
	return &submission, nil
}

// List returns a page of submissions matching the filter plus the total count.
func (r *SubmissionRepository) List(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, int, error) {
	where := []string{"kind = $1"}
	args := []interface{}{filter.Kind}
	if filter.Category != "" {
		where = append(where, fmt.Sprintf("category = $%d", len(args)+1))
		args = append(args, filter.Category)
	}
	if filter.Status != nil {
		where = append(where, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.OwnerID != "" {
		where = append(where, fmt.Sprintf("owner_id = $%d", len(args)+1))
		args = append(args, filter.OwnerID)
	}
	whereClause := strings.Join(where, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s FROM submissions WHERE %s
ORDER BY created_at DESC
LIMIT %d OFFSET %d`, submissionColumns, whereClause, size, offset)
	var submissions []models.Submission
	if err := r.db.SelectContext(ctx, &submissions, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list submissions: %w", err)
	}
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM submissions WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count submissions: %w", err)
	}
	return submissions, total, nil
}

// MarkExpired transitions the given approved submissions to expired in a
// single batched statement.
func (r *SubmissionRepository) MarkExpired(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	const query = `UPDATE submissions SET status = 'expired', updated_at = NOW()
WHERE id = ANY($1) AND status = 'approved'`
	if _, err := r.db.ExecContext(ctx, query, pq.Array(ids)); err != nil {
		return fmt.Errorf("mark submissions expired: %w", err)
	}
	return nil
}

// ExpireDue transitions every approved submission whose active window has
// run out. Used by the background sweep.
func (r *SubmissionRepository) ExpireDue(ctx context.Context) (int64, error) {
	const query = `UPDATE submissions SET status = 'expired', updated_at = NOW()
WHERE status = 'approved' AND days_active IS NOT NULL AND days_active <= 0`
	result, err := r.db.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("expire due submissions: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("expire due submissions rows: %w", err)
	}
	return affected, nil
}

// Approve transitions a submission to approved without touching content.
func (r *SubmissionRepository) Approve(ctx context.Context, id string) error {
	const query = `UPDATE submissions SET status = 'approved', rejection_reason = NULL, updated_at = NOW() WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("approve submission: %w", err)
	}
	return requireRow(result, sql.ErrNoRows)
}

// ApproveWithEdit merges a staged edit onto the submission, replaces its
// sections, deletes the edit row, and approves — all in one transaction.
func (r *SubmissionRepository) ApproveWithEdit(ctx context.Context, submissionID string, edit *models.SubmissionEdit) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin approve with edit: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const mergeQuery = `UPDATE submissions SET title = $1, category = $2, goal = $3, cover_image = $4,
multimedia = $5, video_links = $6, days_active = $7, status = 'approved', rejection_reason = NULL, updated_at = NOW()
WHERE id = $8`
	result, err := tx.ExecContext(ctx, mergeQuery,
		edit.Title, edit.Category, edit.Goal, edit.CoverImage,
		edit.Multimedia, edit.VideoLinks, edit.DaysActive, submissionID)
	if err != nil {
		return fmt.Errorf("merge edit into submission: %w", err)
	}
	if err := requireRow(result, sql.ErrNoRows); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM submission_sections WHERE submission_id = $1", submissionID); err != nil {
		return fmt.Errorf("clear submission sections: %w", err)
	}
	sections := make([]models.SubmissionSection, len(edit.Sections))
	copy(sections, edit.Sections)
	for i := range sections {
		sections[i].ID = ""
	}
	if err := insertSections(ctx, tx, "submission_sections", "submission_id", submissionID, sections); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM submission_edit_sections WHERE edit_id = $1", edit.ID); err != nil {
		return fmt.Errorf("clear edit sections: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM submission_edits WHERE id = $1", edit.ID); err != nil {
		return fmt.Errorf("consume edit: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit approve with edit: %w", err)
	}
	return nil
}

// Reject marks a submission rejected with the supplied reason.
func (r *SubmissionRepository) Reject(ctx context.Context, id, reason string) error {
	const query = `UPDATE submissions SET status = 'rejected', rejection_reason = $1, updated_at = NOW() WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, reason, id)
	if err != nil {
		return fmt.Errorf("reject submission: %w", err)
	}
	return requireRow(result, sql.ErrNoRows)
}

// IncrementShared bumps the share counter atomically.
func (r *SubmissionRepository) IncrementShared(ctx context.Context, id string) error {
	const query = `UPDATE submissions SET shared = shared + 1, updated_at = NOW() WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("increment shared: %w", err)
	}
	return requireRow(result, sql.ErrNoRows)
}

// Delete removes a submission and its dependents.
func (r *SubmissionRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete submission: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM submission_edit_sections WHERE edit_id IN (SELECT id FROM submission_edits WHERE submission_id = $1)", id); err != nil {
		return fmt.Errorf("delete edit sections: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM submission_edits WHERE submission_id = $1", id); err != nil {
		return fmt.Errorf("delete edits: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM submission_sections WHERE submission_id = $1", id); err != nil {
		return fmt.Errorf("delete sections: %w", err)
	}
	result, err := tx.ExecContext(ctx, "DELETE FROM submissions WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete submission: %w", err)
	}
	if err := requireRow(result, sql.ErrNoRows); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete submission: %w", err)
	}
	return nil
}

// CreateEdit stages a full-content replacement for a submission.
func (r *SubmissionRepository) CreateEdit(ctx context.Context, edit *models.SubmissionEdit) error {
	if edit.ID == "" {
		edit.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	edit.CreatedAt = now
	edit.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create edit: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const query = `INSERT INTO submission_edits (id, submission_id, owner_id, title, category, goal, cover_image, multimedia, video_links, days_active, status, rejection_reason, created_at, updated_at)
VALUES (:id, :submission_id, :owner_id, :title, :category, :goal, :cover_image, :multimedia, :video_links, :days_active, :status, :rejection_reason, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, edit); err != nil {
		return fmt.Errorf("create edit: %w", err)
	}
	if err := insertSections(ctx, tx, "submission_edit_sections", "edit_id", edit.ID, edit.Sections); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create edit: %w", err)
	}
	return nil
}

// FindLatestPendingEdit returns the newest pending edit for a submission,
// or nil when none exists.
func (r *SubmissionRepository) FindLatestPendingEdit(ctx context.Context, submissionID string) (*models.SubmissionEdit, error) {
	query := fmt.Sprintf(`SELECT %s FROM submission_edits
WHERE submission_id = $1 AND status = 'pending'
ORDER BY created_at DESC LIMIT 1`, editColumns)
	var edit models.SubmissionEdit
	if err := r.db.GetContext(ctx, &edit, query, submissionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find pending edit: %w", err)
	}
	sections, err := r.loadSections(ctx, "submission_edit_sections", "edit_id", edit.ID)
	if err != nil {
		return nil, err
	}
	edit.Sections = sections
	return &edit, nil
}

// RejectEdit marks an edit rejected with the supplied reason.
func (r *SubmissionRepository) RejectEdit(ctx context.Context, editID, reason string) error {
	const query = `UPDATE submission_edits SET status = 'rejected', rejection_reason = $1, updated_at = NOW() WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, reason, editID)
	if err != nil {
		return fmt.Errorf("reject edit: %w", err)
	}
	return requireRow(result, sql.ErrNoRows)
}

// ListPendingEdits returns the moderation queue of staged edits for a kind.
func (r *SubmissionRepository) ListPendingEdits(ctx context.Context, kind models.SubmissionKind) ([]models.SubmissionEdit, error) {
	query := fmt.Sprintf(`SELECT %s FROM submission_edits e
JOIN submissions s ON s.id = e.submission_id
WHERE e.status = 'pending' AND s.kind = $1
ORDER BY e.created_at ASC`, "e."+strings.ReplaceAll(editColumns, ", ", ", e."))
	var edits []models.SubmissionEdit
	if err := r.db.SelectContext(ctx, &edits, query, kind); err != nil {
		return nil, fmt.Errorf("list pending edits: %w", err)
	}
	return edits, nil
}

func (r *SubmissionRepository) loadSections(ctx context.Context, table, fkColumn, id string) ([]models.SubmissionSection, error) {
	query := fmt.Sprintf(`SELECT id, %s AS submission_id, heading, body, position, created_at
FROM %s WHERE %s = $1 ORDER BY position ASC`, fkColumn, table, fkColumn)
	var sections []models.SubmissionSection
	if err := r.db.SelectContext(ctx, &sections, query, id); err != nil {
		return nil, fmt.Errorf("load sections: %w", err)
	}
	return sections, nil
}

func insertSections(ctx context.Context, tx *sqlx.Tx, table, fkColumn, parentID string, sections []models.SubmissionSection) error {
	if len(sections) == 0 {
		return nil
	}
	query := fmt.Sprintf(`INSERT INTO %s (id, %s, heading, body, position, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`, table, fkColumn)
	now := time.Now().UTC()
	for i, section := range sections {
		id := section.ID
		if id == "" {
			id = uuid.NewString()
		}
		if _, err := tx.ExecContext(ctx, query, id, parentID, section.Heading, section.Body, i, now); err != nil {
			return fmt.Errorf("insert section: %w", err)
		}
	}
	return nil
}

func requireRow(result sql.Result, missing error) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return missing
	}
	return nil
}
