package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/fatimazahra-12/school-manage/internal/repository"
)

// AdminHandler exposes role and permission administration. Role and
// permission routes sit behind the ROLE_MANAGE permission and role
// reassignment behind SYSTEM_ADMIN; there is no role-id shortcut anywhere.
type AdminHandler struct {
	Accounts *repository.AccountRepo
	Roles    *repository.RoleRepo
}

func NewAdminHandler(accounts *repository.AccountRepo, roles *repository.RoleRepo) *AdminHandler {
	return &AdminHandler{Accounts: accounts, Roles: roles}
}

type roleReq struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}
type grantReq struct {
	PermissionID uint64 `json:"permission_id"`
}
type assignRoleReq struct {
	RoleID uint64 `json:"role_id"`
}

func (h *AdminHandler) ListRoles(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	roles, err := h.Roles.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "list roles failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"roles": roles})
}

func (h *AdminHandler) CreateRole(c echo.Context) error {
	var req roleReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_request", "message": "name required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	id, err := h.Roles.Create(ctx, strings.ToUpper(strings.TrimSpace(req.Name)), req.Description)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "create role failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": id})
}

func (h *AdminHandler) ListPermissions(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	perms, err := h.Roles.ListPermissions(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "list permissions failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"permissions": perms})
}

// GrantPermission attaches a permission to a role. Granting twice is a
// no-op, not an error.
func (h *AdminHandler) GrantPermission(c echo.Context) error {
	roleID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_request", "message": "invalid role id"})
	}
	var req grantReq
	if err := c.Bind(&req); err != nil || req.PermissionID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_request", "message": "permission_id required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Roles.GetByID(ctx, roleID); err != nil {
		if errors.Is(err, repository.ErrRoleNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "role_not_found", "message": "role does not exist"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "query failed"})
	}
	if err := h.Roles.GrantPermission(ctx, roleID, req.PermissionID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "grant failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "permission granted"})
}

// AssignRole reassigns an account's role. Access tokens minted before the
// change keep the old role until expiry; the authenticator re-reads the row
// on silent rotation.
func (h *AdminHandler) AssignRole(c echo.Context) error {
	accountID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_request", "message": "invalid account id"})
	}
	var req assignRoleReq
	if err := c.Bind(&req); err != nil || req.RoleID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_request", "message": "role_id required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Roles.GetByID(ctx, req.RoleID); err != nil {
		if errors.Is(err, repository.ErrRoleNotFound) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "role_not_found", "message": "role does not exist"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "query failed"})
	}
	if _, err := h.Accounts.GetByID(ctx, accountID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "not_found", "message": "account not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "query failed"})
	}
	if err := h.Accounts.UpdateRole(ctx, accountID, req.RoleID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "update failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "role assigned"})
}
