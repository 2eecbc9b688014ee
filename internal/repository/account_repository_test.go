package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/userflow-api/internal/models"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

var accountRowColumns = []string{"id", "email", "full_name", "avatar_url", "role", "status", "phone", "department", "job_title", "bio", "location", "website", "email_notifications", "totp_enabled", "totp_secret", "last_login", "created_at", "updated_at"}

func TestAccountRepositoryFindByEmailLowercases(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAccountRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(accountRowColumns).
		AddRow("u1", "john@example.com", "John", "", "user", "active", "", "Sales", "", "", "", "", true, false, "", nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta(findByEmailQuery)).
		WithArgs("john@example.com").
		WillReturnRows(rows)

	account, err := repo.FindByEmail(context.Background(), "John@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", account.ID)
	assert.Equal(t, models.RoleUser, account.Role)
	assert.Equal(t, "Sales", account.Department)
	assert.Nil(t, account.LastLogin)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepositoryFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAccountRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(findAccountQuery)).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepositorySearchUsesPattern(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAccountRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(accountRowColumns).
		AddRow("u2", "jane@example.com", "Jane Smith", "", "user", "inactive", "", "", "", "", "", "", true, false, "", now, now, now)
	mock.ExpectQuery(regexp.QuoteMeta(searchAccountsQuery)).
		WithArgs("%smith%").
		WillReturnRows(rows)

	accounts, err := repo.Search(context.Background(), "  SMITH ")
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, models.StatusInactive, accounts[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepositoryUpdateBuildsSetClause(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAccountRepository(db)

	name := "New Name"
	status := models.StatusInactive
	mock.ExpectExec(regexp.QuoteMeta("UPDATE profiles SET full_name = $1, status = $2, updated_at = $3 WHERE id = $4")).
		WithArgs(name, "inactive", sqlmock.AnyArg(), "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Update(context.Background(), "u1", models.ProfileFields{FullName: &name, Status: &status})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepositoryUpdateUnknownID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAccountRepository(db)

	role := models.RoleAdmin
	mock.ExpectExec("UPDATE profiles SET role").WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), "ghost", models.ProfileFields{Role: &role})
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestAccountRepositoryUpdateNoFieldsSkipsQuery(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAccountRepository(db)

	require.NoError(t, repo.Update(context.Background(), "u1", models.ProfileFields{}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepositoryUpsert(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAccountRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO profiles (id, email, full_name")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	account := &models.Account{ID: "u1", Email: "MIKE@example.com", Role: models.RoleModerator, Status: models.StatusActive}
	require.NoError(t, repo.Upsert(context.Background(), account))
	assert.Equal(t, "mike@example.com", account.Email)
	assert.False(t, account.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAccountRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM profiles WHERE id = $1")).
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "u1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
