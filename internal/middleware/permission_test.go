package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fatimazahra-12/school-manage/internal/repository"
)

const permissionCodesSQL = "SELECT p.code FROM permissions p JOIN role_permissions rp ON rp.permission_id=p.id WHERE rp.role_id=?"

func runGate(t *testing.T, repo *repository.RoleRepo, code string, id *Identity) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/grades", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if id != nil {
		c.Set(identityKey, *id)
	}

	handler := RequirePermission(repo, code)(func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"ok": true})
	})
	require.NoError(t, handler(c))
	return rec
}

func TestRequirePermissionAllows(t *testing.T) {
	db, mock := mockDB(t)
	mock.ExpectQuery(permissionCodesSQL).
		WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"code"}).AddRow("NOTE_VIEW"))

	rec := runGate(t, repository.NewRoleRepo(db), "NOTE_VIEW", &Identity{AccountID: 1, RoleID: 3})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequirePermissionForbids(t *testing.T) {
	db, mock := mockDB(t)
	mock.ExpectQuery(permissionCodesSQL).
		WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"code"}).AddRow("NOTE_VIEW"))

	rec := runGate(t, repository.NewRoleRepo(db), "NOTE_MANAGE", &Identity{AccountID: 1, RoleID: 3})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "forbidden")
}

func TestRequirePermissionNeedsIdentity(t *testing.T) {
	db, _ := mockDB(t)
	rec := runGate(t, repository.NewRoleRepo(db), "NOTE_VIEW", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
