package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/userflow-api/internal/models"
)

func TestResetTokenRepositoryConsume(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewResetTokenRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "user_id", "token", "expires_at", "used_at", "created_at"}).
		AddRow("t1", "u1", "hash", now.Add(time.Hour), now, now.Add(-time.Minute))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE password_reset_tokens SET used_at = $2 WHERE token = $1 AND used_at IS NULL AND expires_at > $2")).
		WithArgs("hash", now).
		WillReturnRows(rows)

	token, err := repo.Consume(context.Background(), "hash", now)
	require.NoError(t, err)
	assert.Equal(t, "u1", token.UserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResetTokenRepositoryConsumeUsedToken(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewResetTokenRepository(db)

	mock.ExpectQuery("UPDATE password_reset_tokens").WillReturnError(sql.ErrNoRows)

	_, err := repo.Consume(context.Background(), "hash", time.Now())
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestResetTokenRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewResetTokenRepository(db)

	mock.ExpectExec("INSERT INTO password_reset_tokens").WillReturnResult(sqlmock.NewResult(1, 1))
	token := &models.ResetToken{UserID: "u1", TokenHash: "hash", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, repo.Create(context.Background(), token))
	assert.NotEmpty(t, token.ID)
}

func TestResetTokenRepositoryFindLeavesTokenUnused(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewResetTokenRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "user_id", "token", "expires_at", "used_at", "created_at"}).
		AddRow("t1", "u1", "hash", now.Add(time.Hour), nil, now.Add(-time.Minute))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, token, expires_at, used_at, created_at FROM password_reset_tokens WHERE token = $1 AND used_at IS NULL AND expires_at > $2")).
		WithArgs("hash", now).
		WillReturnRows(rows)

	token, err := repo.Find(context.Background(), "hash", now)
	require.NoError(t, err)
	assert.Equal(t, "u1", token.UserID)
	assert.Nil(t, token.UsedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}
