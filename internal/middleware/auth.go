package middleware // middleware provides shared request processing for handlers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/fatimazahra-12/school-manage/internal/repository"
	"github.com/fatimazahra-12/school-manage/internal/token"
)

// Identity is the authenticated caller attached to the request context.
// Handlers read it through IdentityFrom instead of poking at loose context
// keys, so the shape of the identity is a compile-time contract.
type Identity struct {
	AccountID uint64
	RoleID    uint64
	Email     string
}

const identityKey = "auth_identity"

// IdentityFrom returns the identity stored by Authenticate.
func IdentityFrom(c echo.Context) (Identity, bool) {
	id, ok := c.Get(identityKey).(Identity)
	return id, ok
}

// refreshFromRequest reads the secondary-channel refresh token: the
// refreshToken cookie when present, otherwise the x-refresh-token header.
func refreshFromRequest(c echo.Context) string {
	if ck, err := c.Cookie("refreshToken"); err == nil && ck.Value != "" {
		return ck.Value
	}
	return c.Request().Header.Get("x-refresh-token")
}

// Authenticate validates the bearer access token on every request and
// attaches the caller's identity to the context.
//
// When the access token is valid the identity comes straight from its
// claims. When verification fails specifically because the token expired,
// the middleware attempts a silent rotation instead of forcing a re-login:
// it verifies a refresh token from the cookie/header channel, confirms a
// matching active session still exists, reloads the account so the identity
// carries the current role rather than the stale claim, mints a fresh access
// token and surfaces it to the client in the x-access-token response header.
// Any other failure terminates the request with 401.
func Authenticate(codec *token.Codec, sessions *repository.SessionRepo, accounts *repository.AccountRepo) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return unauthenticated(c, "missing bearer token")
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			claims, err := codec.Verify(token.Access, raw)
			switch {
			case err == nil:
				c.Set(identityKey, Identity{AccountID: claims.AccountID, RoleID: claims.RoleID, Email: claims.Email})
				return next(c)
			case err == token.ErrExpired:
				// fall through to the refresh path below
			default:
				return unauthenticated(c, "invalid token")
			}

			refresh := refreshFromRequest(c)
			if refresh == "" {
				return unauthenticated(c, "access token expired")
			}
			rc, err := codec.Verify(token.Refresh, refresh)
			if err != nil {
				return unauthenticated(c, "invalid refresh token")
			}

			ctx := c.Request().Context()
			if _, err := sessions.FindActive(ctx, repository.HashToken(refresh), rc.AccountID); err != nil {
				return unauthenticated(c, "session revoked or unknown")
			}
			// Reload the account: role reassignment since signin must win
			// over whatever the refresh token remembers.
			acct, err := accounts.GetByID(ctx, rc.AccountID)
			if err != nil {
				return unauthenticated(c, "account not found")
			}

			newAccess, _, err := codec.Issue(token.Access, token.Claims{
				AccountID: acct.ID, RoleID: acct.RoleID, Email: acct.Email,
			})
			if err != nil {
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "token issue failed"})
			}
			c.Response().Header().Set("x-access-token", newAccess)

			c.Set(identityKey, Identity{AccountID: acct.ID, RoleID: acct.RoleID, Email: acct.Email})
			return next(c)
		}
	}
}

func unauthenticated(c echo.Context, msg string) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated", "message": msg})
}
