package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/userflow-api/internal/models"
)

func TestSessionRepositoryCreateAndEnd(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	now := time.Now()
	mock.ExpectExec("INSERT INTO user_sessions").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE user_sessions SET ended_at = $2 WHERE session_token = $1 AND ended_at IS NULL")).
		WithArgs("hash", now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	record := &models.SessionRecord{UserID: "u1", TokenHash: "hash", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	require.NoError(t, repo.Create(context.Background(), record))
	assert.NotEmpty(t, record.ID)
	require.NoError(t, repo.End(context.Background(), "hash", now))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryIsOpen(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM user_sessions WHERE session_token = $1 AND ended_at IS NULL AND expires_at > $2)")).
		WithArgs("ended", now).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("live", now).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	open, err := repo.IsOpen(context.Background(), "ended", now)
	require.NoError(t, err)
	assert.False(t, open)

	open, err = repo.IsOpen(context.Background(), "live", now)
	require.NoError(t, err)
	assert.True(t, open)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryIsOpenPropagatesErrors(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectQuery("SELECT EXISTS").WillReturnError(errors.New("connection reset"))

	open, err := repo.IsOpen(context.Background(), "hash", time.Now())
	assert.Error(t, err)
	assert.False(t, open)
}

func TestSessionRepositoryEndForUser(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	now := time.Now()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE user_sessions SET ended_at = $2 WHERE user_id = $1 AND ended_at IS NULL")).
		WithArgs("u1", now).
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, repo.EndForUser(context.Background(), "u1", now))
	assert.NoError(t, mock.ExpectationsWereMet())
}
