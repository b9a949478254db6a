package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestHashTokenStable(t *testing.T) {
	h1 := HashToken("some-refresh-token")
	h2 := HashToken("some-refresh-token")
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64) // sha256 hex
	assert.NotEqual(t, h1, HashToken("other"))
}

func TestSessionCreate(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSessionRepo(db)
	exp := time.Now().UTC().Add(24 * time.Hour)

	mock.ExpectExec("INSERT INTO refresh_sessions (account_id, token_hash, expires_at) VALUES (?,?,?)").
		WithArgs(uint64(7), "abc", exp).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.Create(context.Background(), 7, "abc", exp))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionFindActive(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSessionRepo(db)
	now := time.Now().UTC()

	cols := []string{"id", "account_id", "token_hash", "expires_at", "revoked_at", "created_at"}
	mock.ExpectQuery("SELECT id,account_id,token_hash,expires_at,revoked_at,created_at FROM refresh_sessions WHERE token_hash=? AND account_id=? LIMIT 1").
		WithArgs("abc", uint64(7)).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(1, 7, "abc", now.Add(time.Hour), nil, now))

	s, err := repo.FindActive(context.Background(), "abc", 7)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), s.AccountID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionFindActiveRevoked(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSessionRepo(db)
	now := time.Now().UTC()

	cols := []string{"id", "account_id", "token_hash", "expires_at", "revoked_at", "created_at"}
	mock.ExpectQuery("SELECT id,account_id,token_hash,expires_at,revoked_at,created_at FROM refresh_sessions WHERE token_hash=? AND account_id=? LIMIT 1").
		WithArgs("abc", uint64(7)).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(1, 7, "abc", now.Add(time.Hour), now, now))

	_, err := repo.FindActive(context.Background(), "abc", 7)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestSessionRevokeIdempotent(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSessionRepo(db)

	mock.ExpectExec("UPDATE refresh_sessions SET revoked_at=NOW() WHERE token_hash=? AND account_id=? AND revoked_at IS NULL").
		WithArgs("abc", uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE refresh_sessions SET revoked_at=NOW() WHERE token_hash=? AND account_id=? AND revoked_at IS NULL").
		WithArgs("abc", uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	flipped, err := repo.Revoke(context.Background(), "abc", 7)
	require.NoError(t, err)
	assert.True(t, flipped)

	// Second revocation is a no-op, not an error.
	flipped, err = repo.Revoke(context.Background(), "abc", 7)
	require.NoError(t, err)
	assert.False(t, flipped)
	assert.NoError(t, mock.ExpectationsWereMet())
}
