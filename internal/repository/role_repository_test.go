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

func TestRoleRepositoryGetRoleDefaultsToUser(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewRoleRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT role FROM roles")).
		WithArgs("user-1").
		WillReturnError(sql.ErrNoRows)

	role, err := repo.GetRole(context.Background(), "user-1")
	require.NoError(t, err)
	require.Equal(t, models.RoleUser, role)
}

func TestRoleRepositoryGetRoleAssigned(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewRoleRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT role FROM roles")).
		WithArgs("admin-1").
		WillReturnRows(sqlmock.NewRows([]string{"role"}).AddRow("admin"))

	role, err := repo.GetRole(context.Background(), "admin-1")
	require.NoError(t, err)
	require.Equal(t, models.RoleAdmin, role)
}

func TestRoleRepositorySetRoleUpsert(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewRoleRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO roles")).
		WithArgs("user-1", "manager").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SetRole(context.Background(), "user-1", models.RoleManager))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRoleRepositoryListUsersWithRoles(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewRoleRepository(db)
	now := time.Now()
	rows := sqlmock.NewRows([]string{"user_id", "email", "full_name", "role", "is_verified", "verification_status", "created_at"}).
		AddRow("user-1", "ada@example.com", "Ada Obi", "manager", true, "approved", now).
		AddRow("user-2", "eze@example.com", "Eze Nwa", "user", false, nil, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM profiles p")).
		WillReturnRows(rows)

	users, err := repo.ListUsersWithRoles(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	require.Equal(t, models.RoleManager, users[0].Role)
	require.Nil(t, users[1].VerificationStatus)
	require.NoError(t, mock.ExpectationsWereMet())
}
