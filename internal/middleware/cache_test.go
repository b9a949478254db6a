package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fatimazahra-12/school-manage/internal/config"
	"github.com/fatimazahra-12/school-manage/internal/repository"
	"github.com/fatimazahra-12/school-manage/internal/token"
)

func cacheTestClient(t *testing.T) *redis.Client {
	t.Helper()
	srv := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return rdb
}

func cacheTestConfig() config.CacheConfig {
	return config.CacheConfig{
		Enabled:      true,
		Methods:      map[string]bool{"GET": true},
		TTL:          30 * time.Second,
		KeyStrategy:  "route_query",
		Prefix:       "cache",
		MaxBodyBytes: 1 << 20,
	}
}

func TestCacheServesSecondCaller(t *testing.T) {
	rdb := cacheTestClient(t)
	e := echo.New()
	calls := 0
	e.GET("/v1/courses", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, echo.Map{"courses": []string{"algebra"}})
	}, NewRedisCache(cacheTestConfig(), rdb))

	first := httptest.NewRecorder()
	e.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/v1/courses", nil))
	second := httptest.NewRecorder()
	e.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/v1/courses", nil))

	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, 1, calls)
}

// A cache entry populated by a request that went through silent rotation
// must not replay the rotation header: x-access-token is a live credential
// belonging to the caller that filled the cache, not to whoever hits the
// entry afterwards.
func TestCacheDoesNotReplayRotatedAccessToken(t *testing.T) {
	rdb := cacheTestClient(t)
	db, mock := mockDB(t)
	// Access tokens born expired force the refresh path for user 42.
	mwCodec := authCodec(-time.Minute)

	expiredA, _, err := mwCodec.Issue(token.Access, token.Claims{AccountID: 42, RoleID: 3, Email: "a@x.com"})
	require.NoError(t, err)
	refreshA, _, err := mwCodec.Issue(token.Refresh, token.Claims{AccountID: 42, RoleID: 3, Email: "a@x.com"})
	require.NoError(t, err)
	// User 99's token is minted with a positive lifetime under the same
	// secrets, so it verifies cleanly against the middleware codec.
	validB, _, err := authCodec(time.Minute).Issue(token.Access, token.Claims{AccountID: 99, RoleID: 3, Email: "b@x.com"})
	require.NoError(t, err)

	now := time.Now().UTC()
	mock.ExpectQuery(findSessionSQL).
		WithArgs(repository.HashToken(refreshA), uint64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "account_id", "token_hash", "expires_at", "revoked_at", "created_at"}).
			AddRow(1, 42, repository.HashToken(refreshA), now.Add(time.Hour), nil, now))
	mock.ExpectQuery(getAccountSQL).
		WithArgs(uint64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "password_hash", "role_id", "verified", "is_active",
			"two_factor_secret", "two_factor_enabled", "created_at", "updated_at"}).
			AddRow(42, "Alice", "a@x.com", "hash", 3, true, true, nil, false, now, now))

	e := echo.New()
	e.GET("/v1/courses", func(c echo.Context) error {
		c.SetCookie(&http.Cookie{Name: "session_hint", Value: "42"})
		return c.JSON(http.StatusOK, echo.Map{"courses": []string{"algebra"}})
	}, Authenticate(mwCodec, repository.NewSessionRepo(db), repository.NewAccountRepo(db)),
		NewRedisCache(cacheTestConfig(), rdb))

	reqA := httptest.NewRequest(http.MethodGet, "/v1/courses", nil)
	reqA.Header.Set("Authorization", "Bearer "+expiredA)
	reqA.Header.Set("x-refresh-token", refreshA)
	recA := httptest.NewRecorder()
	e.ServeHTTP(recA, reqA)

	require.Equal(t, http.StatusOK, recA.Code)
	require.NotEmpty(t, recA.Header().Get("x-access-token"))
	require.Equal(t, "MISS", recA.Header().Get("X-Cache"))

	reqB := httptest.NewRequest(http.MethodGet, "/v1/courses", nil)
	reqB.Header.Set("Authorization", "Bearer "+validB)
	recB := httptest.NewRecorder()
	e.ServeHTTP(recB, reqB)

	require.Equal(t, http.StatusOK, recB.Code)
	assert.Equal(t, "HIT", recB.Header().Get("X-Cache"))
	assert.Equal(t, recA.Body.String(), recB.Body.String())
	// User 42's rotated credential and cookie stay with user 42.
	assert.Empty(t, recB.Header().Get("x-access-token"))
	assert.Empty(t, recB.Header().Values("Set-Cookie"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
