package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/refreeg/moderation-api/internal/models"
)

func TestVerificationRepositoryCreateAndFind(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewVerificationRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO verifications")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	verification := &models.Verification{
		UserID:       "user-1",
		DocumentType: "passport",
		DocumentPath: "kyc/user-1/doc.pdf",
		FullName:     "Ada Obi",
		Status:       models.VerificationPending,
	}
	require.NoError(t, repo.Create(context.Background(), verification))
	require.NotEmpty(t, verification.ID)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "user_id", "document_type", "document_path", "full_name", "date_of_birth", "phone", "address", "city", "state", "postal_code", "country", "status", "notes", "created_at", "updated_at"}).
		AddRow(verification.ID, "user-1", "passport", "kyc/user-1/doc.pdf", "Ada Obi", "1990-01-01", "", "", "", "", "", "", "pending", nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, document_type")).
		WithArgs("user-1").
		WillReturnRows(rows)

	found, err := repo.FindLatestByUser(context.Background(), "user-1")
	require.NoError(t, err)
	require.Equal(t, verification.ID, found.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVerificationRepositoryFindLatestNone(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewVerificationRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, document_type")).
		WithArgs("user-2").
		WillReturnError(sql.ErrNoRows)

	found, err := repo.FindLatestByUser(context.Background(), "user-2")
	require.NoError(t, err)
	require.Nil(t, found)
}

func TestVerificationRepositoryReviewMirrorsProfile(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewVerificationRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE verifications SET status = $1")).
		WithArgs("approved", "Verification approved", "ver-1").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow("user-1"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE profiles SET is_verified = $1")).
		WithArgs(true, "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Review(context.Background(), "ver-1", models.VerificationApproved, "Verification approved"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVerificationRepositoryReviewRejectClearsFlag(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewVerificationRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE verifications SET status = $1")).
		WithArgs("rejected", "Blurry document", "ver-1").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow("user-1"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE profiles SET is_verified = $1")).
		WithArgs(false, "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Review(context.Background(), "ver-1", models.VerificationRejected, "Blurry document"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVerificationRepositoryReviewMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewVerificationRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE verifications SET status = $1")).
		WithArgs("approved", "ok", "missing").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := repo.Review(context.Background(), "missing", models.VerificationApproved, "ok")
	require.ErrorIs(t, err, sql.ErrNoRows)
}
