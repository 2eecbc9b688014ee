package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/userflow-api/internal/models"
)

func TestCredentialRepositoryCreateReturnsID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCredentialRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO auth.users (email, encrypted_password, raw_user_meta_data")).
		WithArgs("new@example.com", "hash", "New User", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("u9"))

	id, err := repo.Create(context.Background(), "New@Example.com", "hash", "New User")
	require.NoError(t, err)
	assert.Equal(t, "u9", id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCredentialRepositoryFindByEmail(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCredentialRepository(db)

	rows := sqlmock.NewRows([]string{"id", "email", "encrypted_password", "created_at"}).
		AddRow("u1", "a@example.com", "hash", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, email, encrypted_password, created_at FROM auth.users WHERE email = $1 LIMIT 1")).
		WithArgs("a@example.com").
		WillReturnRows(rows)

	cred, err := repo.FindByEmail(context.Background(), "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "hash", cred.PasswordHash)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCredentialRepositoryUpdateBothFields(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCredentialRepository(db)

	email := "Moved@Example.com"
	hash := "newhash"
	mock.ExpectExec(regexp.QuoteMeta("UPDATE auth.users SET email = $1, encrypted_password = $2, updated_at = $3 WHERE id = $4")).
		WithArgs("moved@example.com", "newhash", sqlmock.AnyArg(), "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Update(context.Background(), "u1", models.CredentialFields{Email: &email, PasswordHash: &hash})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
