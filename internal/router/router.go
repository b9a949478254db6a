// Package router wires the HTTP surface: public credential endpoints, the
// rate-limited 2FA endpoints, and the protected domain routes sitting behind
// the authenticator and permission gate.
package router

import (
	"database/sql"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/fatimazahra-12/school-manage/internal/config"
	"github.com/fatimazahra-12/school-manage/internal/handler"
	appmw "github.com/fatimazahra-12/school-manage/internal/middleware"
	"github.com/fatimazahra-12/school-manage/internal/repository"
	"github.com/fatimazahra-12/school-manage/internal/token"
)

// Deps carries everything the routes need. Redis may be nil; the limiter and
// cache middlewares degrade to pass-through.
type Deps struct {
	DB        *sql.DB
	Redis     *redis.Client
	Codec     *token.Codec
	Accounts  *repository.AccountRepo
	Roles     *repository.RoleRepo
	Sessions  *repository.SessionRepo
	Auth      *handler.AuthHandler
	TwoFactor *handler.TwoFactorHandler
	Courses   *handler.CourseHandler
	Grades    *handler.GradeHandler
	Admin     *handler.AdminHandler
}

func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())
	e.Use(echomw.CORS())

	limiter := appmw.NewTokenBucket(config.LoadRateLimitConfig(), d.Redis)
	cache := appmw.NewRedisCache(config.LoadCacheConfig(), d.Redis)
	authn := appmw.Authenticate(d.Codec, d.Sessions, d.Accounts)

	e.GET("/healthz", handler.Health(d.DB))

	v1 := e.Group("/v1")

	// Credential endpoints are public but rate limited: the bucket is the
	// only brake on password guessing.
	auth := v1.Group("/auth", limiter)
	auth.POST("/signup", d.Auth.Signup)
	auth.POST("/signin", d.Auth.Signin)
	auth.POST("/refresh-token", d.Auth.Refresh)
	auth.POST("/logout", d.Auth.Logout)
	auth.GET("/verify/:token", d.Auth.VerifyEmail)
	auth.POST("/forgot-password", d.Auth.ForgotPassword)
	auth.POST("/reset-password/:token", d.Auth.ResetPassword)

	twofa := v1.Group("/2fa", limiter)
	twofa.POST("/enable", d.TwoFactor.Enable)
	twofa.POST("/verify", d.TwoFactor.Verify)
	twofa.GET("/qrcode", d.TwoFactor.QRCode)

	// Everything below requires a valid (or silently rotated) access token.
	api := v1.Group("", authn)
	api.GET("/me", d.Auth.Me)

	courses := api.Group("/courses")
	courses.GET("", d.Courses.List, appmw.RequirePermission(d.Roles, "COURSE_VIEW"), cache)
	courses.GET("/:id", d.Courses.Get, appmw.RequirePermission(d.Roles, "COURSE_VIEW"), cache)
	courses.POST("", d.Courses.Create, appmw.RequirePermission(d.Roles, "COURSE_MANAGE"))
	courses.PUT("/:id", d.Courses.Update, appmw.RequirePermission(d.Roles, "COURSE_MANAGE"))
	courses.DELETE("/:id", d.Courses.Delete, appmw.RequirePermission(d.Roles, "COURSE_MANAGE"))
	courses.GET("/:id/grades", d.Grades.ListByCourse, appmw.RequirePermission(d.Roles, "NOTE_VIEW"), cache)

	grades := api.Group("/grades")
	grades.POST("", d.Grades.Create, appmw.RequirePermission(d.Roles, "NOTE_MANAGE"))
	grades.PUT("/:id", d.Grades.UpdateScore, appmw.RequirePermission(d.Roles, "NOTE_MANAGE"))
	grades.DELETE("/:id", d.Grades.Delete, appmw.RequirePermission(d.Roles, "NOTE_MANAGE"))
	api.GET("/students/:id/grades", d.Grades.ListByStudent, appmw.RequirePermission(d.Roles, "NOTE_VIEW"), cache)

	// Role and permission administration goes through the same gate as every
	// other route; there is no role-id backdoor.
	admin := api.Group("/admin")
	roleManage := appmw.RequirePermission(d.Roles, "ROLE_MANAGE")
	admin.GET("/roles", d.Admin.ListRoles, roleManage)
	admin.POST("/roles", d.Admin.CreateRole, roleManage)
	admin.GET("/permissions", d.Admin.ListPermissions, roleManage)
	admin.POST("/roles/:id/permissions", d.Admin.GrantPermission, roleManage)
	admin.PUT("/users/:id/role", d.Admin.AssignRole, appmw.RequirePermission(d.Roles, "SYSTEM_ADMIN"))

	return e
}
