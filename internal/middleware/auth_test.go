package middleware

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fatimazahra-12/school-manage/internal/repository"
	"github.com/fatimazahra-12/school-manage/internal/token"
)

const (
	findSessionSQL = "SELECT id,account_id,token_hash,expires_at,revoked_at,created_at FROM refresh_sessions WHERE token_hash=? AND account_id=? LIMIT 1"
	getAccountSQL  = "SELECT id,name,email,password_hash,role_id,verified,is_active,two_factor_secret,two_factor_enabled,created_at,updated_at FROM accounts WHERE id=? LIMIT 1"
)

func authCodec(accessTTL time.Duration) *token.Codec {
	return token.NewCodec(
		token.Secrets{Access: "acc", Refresh: "ref", Reset: "rst"},
		token.Lifetimes{Access: accessTTL, Refresh: 24 * time.Hour, Reset: 15 * time.Minute},
	)
}

func mockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

// runAuth sends one request through Authenticate and reports the recorder
// plus the identity seen by the downstream handler.
func runAuth(t *testing.T, codec *token.Codec, db *sql.DB, decorate func(*http.Request)) (*httptest.ResponseRecorder, *Identity) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	if decorate != nil {
		decorate(req)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var seen *Identity
	mw := Authenticate(codec, repository.NewSessionRepo(db), repository.NewAccountRepo(db))
	handler := mw(func(c echo.Context) error {
		if id, ok := IdentityFrom(c); ok {
			seen = &id
		}
		return c.JSON(http.StatusOK, echo.Map{"ok": true})
	})
	require.NoError(t, handler(c))
	return rec, seen
}

func TestAuthenticateMissingBearer(t *testing.T) {
	db, _ := mockDB(t)
	rec, seen := runAuth(t, authCodec(time.Minute), db, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, seen)
}

func TestAuthenticateValidToken(t *testing.T) {
	db, _ := mockDB(t)
	codec := authCodec(time.Minute)
	raw, _, err := codec.Issue(token.Access, token.Claims{AccountID: 42, RoleID: 3, Email: "a@x.com"})
	require.NoError(t, err)

	rec, seen := runAuth(t, codec, db, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+raw)
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, uint64(42), seen.AccountID)
	assert.Equal(t, uint64(3), seen.RoleID)
}

func TestAuthenticateGarbageToken(t *testing.T) {
	db, _ := mockDB(t)
	rec, _ := runAuth(t, authCodec(time.Minute), db, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer not.a.jwt")
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticateSilentRotation(t *testing.T) {
	db, mock := mockDB(t)
	// Access tokens born expired force the refresh path.
	codec := authCodec(-time.Minute)

	expired, _, err := codec.Issue(token.Access, token.Claims{AccountID: 42, RoleID: 3, Email: "a@x.com"})
	require.NoError(t, err)
	refresh, _, err := codec.Issue(token.Refresh, token.Claims{AccountID: 42, RoleID: 3, Email: "a@x.com"})
	require.NoError(t, err)

	now := time.Now().UTC()
	mock.ExpectQuery(findSessionSQL).
		WithArgs(repository.HashToken(refresh), uint64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "account_id", "token_hash", "expires_at", "revoked_at", "created_at"}).
			AddRow(1, 42, repository.HashToken(refresh), now.Add(time.Hour), nil, now))
	// The account's role changed to 5 since the tokens were issued; the
	// rotated identity must carry the current role.
	mock.ExpectQuery(getAccountSQL).
		WithArgs(uint64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "password_hash", "role_id", "verified", "is_active",
			"two_factor_secret", "two_factor_enabled", "created_at", "updated_at"}).
			AddRow(42, "Alice", "a@x.com", "hash", 5, true, true, nil, false, now, now))

	rec, seen := runAuth(t, codec, db, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+expired)
		r.Header.Set("x-refresh-token", refresh)
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("x-access-token"))
	require.NotNil(t, seen)
	assert.Equal(t, uint64(5), seen.RoleID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthenticateRotationRejectsRevokedSession(t *testing.T) {
	db, mock := mockDB(t)
	codec := authCodec(-time.Minute)

	expired, _, err := codec.Issue(token.Access, token.Claims{AccountID: 42})
	require.NoError(t, err)
	refresh, _, err := codec.Issue(token.Refresh, token.Claims{AccountID: 42})
	require.NoError(t, err)

	now := time.Now().UTC()
	mock.ExpectQuery(findSessionSQL).
		WithArgs(repository.HashToken(refresh), uint64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "account_id", "token_hash", "expires_at", "revoked_at", "created_at"}).
			AddRow(1, 42, repository.HashToken(refresh), now.Add(time.Hour), now, now))

	rec, seen := runAuth(t, codec, db, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+expired)
		r.Header.Set("x-refresh-token", refresh)
	})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, seen)
	assert.Empty(t, rec.Header().Get("x-access-token"))
}

func TestAuthenticateRotationRejectsResetKind(t *testing.T) {
	db, _ := mockDB(t)
	codec := authCodec(-time.Minute)

	expired, _, err := codec.Issue(token.Access, token.Claims{AccountID: 42})
	require.NoError(t, err)
	// A reset token must never act as a refresh token.
	reset, _, err := codec.Issue(token.Reset, token.Claims{AccountID: 42})
	require.NoError(t, err)

	rec, _ := runAuth(t, codec, db, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+expired)
		r.Header.Set("x-refresh-token", reset)
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
