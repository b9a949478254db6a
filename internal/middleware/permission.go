package middleware

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fatimazahra-12/school-manage/internal/repository"
)

// RequirePermission returns middleware enforcing that the authenticated
// caller's role carries the given permission code. It must run after
// Authenticate. The role -> permission-code join is looked up per request;
// grants and revocations take effect immediately at the cost of one query.
//
// Admin-only routes use this same gate with the SYSTEM_ADMIN code; there is
// no separate role-id comparison path.
func RequirePermission(roles *repository.RoleRepo, code string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := IdentityFrom(c)
			if !ok {
				return unauthenticated(c, "not authenticated")
			}
			codes, err := roles.PermissionCodes(c.Request().Context(), id.RoleID)
			if err != nil {
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "permission lookup failed"})
			}
			for _, have := range codes {
				if have == code {
					return next(c)
				}
			}
			return c.JSON(http.StatusForbidden, echo.Map{
				"error":   "forbidden",
				"message": fmt.Sprintf("permission %q required", code),
			})
		}
	}
}
