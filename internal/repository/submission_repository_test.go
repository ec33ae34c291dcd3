package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/refreeg/moderation-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestSubmissionRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSubmissionRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO submissions")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO submission_sections")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	submission := &models.Submission{
		OwnerID:  "user-1",
		Kind:     models.KindCause,
		Title:    "Clean Water",
		Category: "health",
		Goal:     50000,
		Status:   models.StatusPending,
		Sections: []models.SubmissionSection{{Heading: "Story", Body: "Details"}},
	}
	require.NoError(t, repo.Create(context.Background(), submission))
	require.NotEmpty(t, submission.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryGetByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSubmissionRepository(db)
	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "owner_id", "kind", "title", "category", "goal", "raised", "shared", "cover_image", "multimedia", "video_links", "days_active", "status", "rejection_reason", "created_at", "updated_at"}).
		AddRow("sub-1", "user-1", "cause", "Clean Water", "health", 50000, 0, 0, nil, "{}", "{}", 30, "pending", nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, owner_id, kind")).
		WithArgs("sub-1").
		WillReturnRows(rows)
	sectionRows := sqlmock.NewRows([]string{"id", "submission_id", "heading", "body", "position", "created_at"}).
		AddRow("sec-1", "sub-1", "Story", "Details", 0, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM submission_sections")).
		WithArgs("sub-1").
		WillReturnRows(sectionRows)

	found, err := repo.GetByID(context.Background(), "sub-1")
	require.NoError(t, err)
	require.Equal(t, "sub-1", found.ID)
	require.Len(t, found.Sections, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSubmissionRepository(db)
	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "owner_id", "kind", "title", "category", "goal", "raised", "shared", "cover_image", "multimedia", "video_links", "days_active", "status", "rejection_reason", "created_at", "updated_at"}).
		AddRow("sub-1", "user-1", "cause", "Clean Water", "health", 50000, 0, 0, nil, "{}", "{}", 30, "approved", nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, owner_id, kind")).
		WithArgs("cause", "health", "approved").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM submissions")).
		WithArgs("cause", "health", "approved").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	status := models.StatusApproved
	items, total, err := repo.List(context.Background(), models.SubmissionFilter{
		Kind:     models.KindCause,
		Category: "health",
		Status:   &status,
	})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, 1, total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryMarkExpiredBatch(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSubmissionRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE submissions SET status = 'expired'")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, repo.MarkExpired(context.Background(), []string{"sub-1", "sub-2"}))
	require.NoError(t, mock.ExpectationsWereMet())

	// Empty batch performs no query.
	require.NoError(t, repo.MarkExpired(context.Background(), nil))
}

func TestSubmissionRepositoryIncrementShared(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSubmissionRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE submissions SET shared = shared + 1")).
		WithArgs("sub-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.IncrementShared(context.Background(), "sub-1"))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE submissions SET shared = shared + 1")).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.IncrementShared(context.Background(), "missing")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryApproveWithEdit(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSubmissionRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE submissions SET title = $1")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM submission_sections WHERE submission_id = $1")).
		WithArgs("sub-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO submission_sections")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM submission_edit_sections WHERE edit_id = $1")).
		WithArgs("edit-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM submission_edits WHERE id = $1")).
		WithArgs("edit-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	edit := &models.SubmissionEdit{
		ID:           "edit-1",
		SubmissionID: "sub-1",
		Title:        "Cleaner Water",
		Category:     "health",
		Goal:         75000,
		Sections:     []models.SubmissionSection{{Heading: "Updated", Body: "New details"}},
	}
	require.NoError(t, repo.ApproveWithEdit(context.Background(), "sub-1", edit))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryFindLatestPendingEdit(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSubmissionRepository(db)
	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "submission_id", "owner_id", "title", "category", "goal", "cover_image", "multimedia", "video_links", "days_active", "status", "rejection_reason", "created_at", "updated_at"}).
		AddRow("edit-2", "sub-1", "user-1", "Newest", "health", 60000, nil, "{}", "{}", nil, "pending", nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM submission_edits")).
		WithArgs("sub-1").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("FROM submission_edit_sections")).
		WithArgs("edit-2").
		WillReturnRows(sqlmock.NewRows([]string{"id", "submission_id", "heading", "body", "position", "created_at"}))

	edit, err := repo.FindLatestPendingEdit(context.Background(), "sub-1")
	require.NoError(t, err)
	require.Equal(t, "edit-2", edit.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryFindLatestPendingEditNone(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSubmissionRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("FROM submission_edits")).
		WithArgs("sub-1").
		WillReturnError(sql.ErrNoRows)

	edit, err := repo.FindLatestPendingEdit(context.Background(), "sub-1")
	require.NoError(t, err)
	require.Nil(t, edit)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryReject(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSubmissionRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE submissions SET status = 'rejected'")).
		WithArgs("inappropriate content", "sub-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Reject(context.Background(), "sub-1", "inappropriate content"))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE submission_edits SET status = 'rejected'")).
		WithArgs("needs work", "edit-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.RejectEdit(context.Background(), "edit-1", "needs work"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryExpireDue(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSubmissionRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE submissions SET status = 'expired'")).
		WillReturnResult(sqlmock.NewResult(0, 3))

	affected, err := repo.ExpireDue(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 3, affected)
	require.NoError(t, mock.ExpectationsWereMet())
}
