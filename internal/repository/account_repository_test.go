package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountCreateDuplicateEmail(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAccountRepo(db)

	mock.ExpectExec("INSERT INTO accounts (name, email, password_hash, role_id, verified, is_active) VALUES (?,?,?,?,0,1)").
		WithArgs("Alice", "a@x.com", sqlmock.AnyArg(), uint64(1)).
		WillReturnError(errors.New("Error 1062 (23000): Duplicate entry 'a@x.com' for key 'accounts.email'"))

	_, err := repo.Create(context.Background(), "Alice", "A@x.com ", "pw1", 1, 4)
	assert.ErrorIs(t, err, ErrEmailExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountGetByEmailNormalizes(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAccountRepo(db)
	now := time.Now().UTC()

	cols := []string{"id", "name", "email", "password_hash", "role_id", "verified", "is_active",
		"two_factor_secret", "two_factor_enabled", "created_at", "updated_at"}
	mock.ExpectQuery("SELECT id,name,email,password_hash,role_id,verified,is_active,two_factor_secret,two_factor_enabled,created_at,updated_at FROM accounts WHERE email=? LIMIT 1").
		WithArgs("a@x.com").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(1, "Alice", "a@x.com", "$2a$04$hash", 2, true, true, nil, false, now, now))

	a, err := repo.GetByEmail(context.Background(), " A@X.com ")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), a.ID)
	assert.True(t, a.Verified)
	assert.Nil(t, a.TwoFactorSecret)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountTwoFactorLifecycle(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAccountRepo(db)

	// Storing a secret resets the enabled flag: enrollment is pending until
	// a code proves possession.
	mock.ExpectExec("UPDATE accounts SET two_factor_secret=?, two_factor_enabled=0 WHERE id=?").
		WithArgs("BASE32SECRET", uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE accounts SET two_factor_enabled=1 WHERE id=?").
		WithArgs(uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SetTwoFactorSecret(context.Background(), 5, "BASE32SECRET"))
	require.NoError(t, repo.EnableTwoFactor(context.Background(), 5))
	assert.NoError(t, mock.ExpectationsWereMet())
}
