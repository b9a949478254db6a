package handler

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/fatimazahra-12/school-manage/internal/config"
	"github.com/fatimazahra-12/school-manage/internal/mail"
	appmw "github.com/fatimazahra-12/school-manage/internal/middleware"
	"github.com/fatimazahra-12/school-manage/internal/model"
	"github.com/fatimazahra-12/school-manage/internal/queue"
	"github.com/fatimazahra-12/school-manage/internal/repository"
	"github.com/fatimazahra-12/school-manage/internal/token"
	"github.com/fatimazahra-12/school-manage/internal/utils"
)

// defaultRole is assigned when signup carries no explicit role id.
const defaultRole = "STUDENT"

// AuthHandler bundles dependencies for the credential endpoints. It drives
// the account state machine: unregistered -> (signup) -> unverified ->
// (verify email) -> verified; password reset is a side transition that never
// touches verification state.
type AuthHandler struct {
	Cfg       config.Config
	Codec     *token.Codec
	Accounts  *repository.AccountRepo
	Roles     *repository.RoleRepo
	Sessions  *repository.SessionRepo
	Mail      mail.Mailer
	Publisher queue.Publisher // optional; nil disables notifications
}

func NewAuthHandler(cfg config.Config, codec *token.Codec, accounts *repository.AccountRepo,
	roles *repository.RoleRepo, sessions *repository.SessionRepo, mailer mail.Mailer,
	pub queue.Publisher) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Codec: codec, Accounts: accounts, Roles: roles,
		Sessions: sessions, Mail: mailer, Publisher: pub}
}

// ----- DTOs -----

type signupReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	RoleID   uint64 `json:"role_id"`
}
type signinReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type refreshReq struct {
	Token string `json:"token"`
}
type resetReq struct {
	NewPassword string `json:"newPassword"`
}

// Signup creates an unverified account and emails a verification link. The
// response never contains the verification token itself.
func (h *AuthHandler) Signup(c echo.Context) error {
	var req signupReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_request", "message": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_request", "message": "name/email/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	role, err := h.resolveRole(ctx, req.RoleID)
	if err != nil {
		if errors.Is(err, repository.ErrRoleNotFound) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "role_not_found", "message": "role does not exist"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "role lookup failed"})
	}

	id, err := h.Accounts.Create(ctx, req.Name, req.Email, req.Password, role.ID, h.Cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "conflict", "message": "email already registered"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "create account failed"})
	}

	verify, _, err := h.Codec.Issue(token.Access, token.Claims{AccountID: id, RoleID: role.ID, Email: req.Email})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "issue token failed"})
	}
	link := h.Cfg.AppURL + "/v1/auth/verify/" + verify
	// Delivery failure must not roll back the signup; it is logged so the
	// gap stays observable.
	if err := h.Mail.Send(req.Email, "Verify your email address",
		fmt.Sprintf("Hello %s, please verify your email by clicking this link: %s", req.Name, link)); err != nil {
		log.Printf("signup: verification mail to %s failed: %v", req.Email, err)
	}
	h.notify(ctx, id, queue.KindRegistered, "account created, verification pending")

	return c.JSON(http.StatusCreated, echo.Map{
		"message": "Account created! Please check your email to verify your account.",
	})
}

// Signin verifies credentials and opens a refresh session. The response
// carries both tokens plus the resolved permission list for client-side UI
// gating.
func (h *AuthHandler) Signin(c echo.Context) error {
	var req signinReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_request", "message": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_request", "message": "email/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	acct, err := h.Accounts.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "not_found", "message": "account not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "query failed"})
	}
	if !acct.Verified {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unverified", "message": "verify your email before signing in"})
	}
	if !utils.VerifyPassword(acct.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid_credentials", "message": "invalid credentials"})
	}

	claims := token.Claims{AccountID: acct.ID, RoleID: acct.RoleID, Email: acct.Email}
	refresh, refreshExp, err := h.Codec.Issue(token.Refresh, claims)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "issue refresh failed"})
	}
	// One session row per issuance; concurrent sessions per account are
	// legal and rows are never overwritten.
	if err := h.Sessions.Create(ctx, acct.ID, repository.HashToken(refresh), refreshExp); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "save session failed"})
	}
	access, _, err := h.Codec.Issue(token.Access, claims)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "issue access failed"})
	}
	permissions, err := h.Roles.PermissionCodes(ctx, acct.RoleID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "permission lookup failed"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"accessToken":  access,
		"refreshToken": refresh,
		"permissions":  permissions,
		"user": echo.Map{
			"id": acct.ID, "name": acct.Name, "email": acct.Email, "role_id": acct.RoleID,
		},
	})
}

// Refresh exchanges a still-valid refresh token for a new access token. It
// does not rotate the refresh token and does not open a new session; the
// token stays reusable until logout or natural expiry.
func (h *AuthHandler) Refresh(c echo.Context) error {
	raw := refreshTokenFrom(c)
	if raw == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_request", "message": "refresh token required"})
	}
	claims, err := h.Codec.Verify(token.Refresh, raw)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid_token", "message": "invalid refresh token"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Sessions.FindActive(ctx, repository.HashToken(raw), claims.AccountID); err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid_token", "message": "session revoked or unknown"})
	}
	// Mint against the account's current role, not the stale claim.
	acct, err := h.Accounts.GetByID(ctx, claims.AccountID)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid_token", "message": "account not found"})
	}
	access, _, err := h.Codec.Issue(token.Access, token.Claims{AccountID: acct.ID, RoleID: acct.RoleID, Email: acct.Email})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "issue access failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"accessToken": access})
}

// Logout revokes the session matching the presented refresh token.
// Revocation is idempotent: logging out twice is still a 200.
func (h *AuthHandler) Logout(c echo.Context) error {
	raw := refreshTokenFrom(c)
	if raw == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_request", "message": "refresh token required"})
	}
	claims, err := h.Codec.Verify(token.Refresh, raw)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_token", "message": "invalid refresh token"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Sessions.Revoke(ctx, repository.HashToken(raw), claims.AccountID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "logout failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Logged out successfully."})
}

// VerifyEmail consumes the link token from the signup mail and flips the
// account to verified.
func (h *AuthHandler) VerifyEmail(c echo.Context) error {
	claims, err := h.Codec.Verify(token.Access, c.Param("token"))
	if err != nil {
		if errors.Is(err, token.ErrExpired) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "expired", "message": "verification link expired"})
		}
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_token", "message": "invalid verification link"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	acct, err := h.Accounts.GetByID(ctx, claims.AccountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "not_found", "message": "account not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "query failed"})
	}
	if acct.Verified {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "already_verified", "message": "email already verified"})
	}
	if err := h.Accounts.MarkVerified(ctx, acct.ID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "update failed"})
	}

	if err := h.Mail.Send(acct.Email, "Welcome!",
		fmt.Sprintf("Hello %s, your account has been successfully verified. Welcome aboard!", acct.Name)); err != nil {
		log.Printf("verify: welcome mail to %s failed: %v", acct.Email, err)
	}
	h.notify(ctx, acct.ID, queue.KindVerified, "email verified")

	return c.JSON(http.StatusOK, echo.Map{"message": "Email verified successfully!"})
}

// ForgotPassword emails a reset link carrying a reset-kind token. The token
// never appears in the response. An unknown email is answered with 404,
// which lets callers probe for registered addresses; kept as-is pending a
// product decision.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req signinReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_request", "message": "email required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	acct, err := h.Accounts.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "not_found", "message": "account not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "query failed"})
	}

	reset, _, err := h.Codec.Issue(token.Reset, token.Claims{AccountID: acct.ID, RoleID: acct.RoleID, Email: acct.Email})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "issue token failed"})
	}
	link := h.Cfg.AppURL + "/v1/auth/reset-password/" + reset
	if err := h.Mail.Send(acct.Email, "Reset Your Password",
		fmt.Sprintf("Hello %s, reset your password by clicking this link: %s", acct.Name, link)); err != nil {
		log.Printf("forgot-password: reset mail to %s failed: %v", acct.Email, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "Reset password email sent successfully."})
}

// ResetPassword consumes a reset-kind token and overwrites the password
// hash. Existing refresh sessions stay valid; see SessionRepo for the
// one-call fix once that behavior is reconsidered.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.NewPassword) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_request", "message": "newPassword required"})
	}
	claims, err := h.Codec.Verify(token.Reset, c.Param("token"))
	if err != nil {
		if errors.Is(err, token.ErrExpired) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "expired", "message": "reset link expired"})
		}
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_token", "message": "invalid reset link"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	hash, err := utils.HashPassword(req.NewPassword, h.Cfg.BcryptCost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "hash failed"})
	}
	if err := h.Accounts.UpdatePassword(ctx, claims.AccountID, hash); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "update failed"})
	}
	h.notify(ctx, claims.AccountID, queue.KindPasswordReset, "password was reset")

	return c.JSON(http.StatusOK, echo.Map{"message": "Password reset successfully."})
}

// Me returns the authenticated identity, mostly as a smoke endpoint for the
// middleware chain.
func (h *AuthHandler) Me(c echo.Context) error {
	id, ok := appmw.IdentityFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated", "message": "not authenticated"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"account_id": id.AccountID,
		"role_id":    id.RoleID,
		"email":      id.Email,
	})
}

// resolveRole maps an explicit role id, or the default role name when the
// id is zero, onto a roles row.
func (h *AuthHandler) resolveRole(ctx context.Context, roleID uint64) (model.Role, error) {
	if roleID != 0 {
		return h.Roles.GetByID(ctx, roleID)
	}
	return h.Roles.GetByName(ctx, defaultRole)
}

// notify publishes a best-effort notification event; failures are already
// logged by the publisher.
func (h *AuthHandler) notify(ctx context.Context, accountID uint64, kind, message string) {
	if h.Publisher == nil {
		return
	}
	_ = h.Publisher.Publish(ctx, fmt.Sprintf("user_%d", accountID), queue.NotificationEvent{
		AccountID: accountID,
		Kind:      kind,
		Message:   message,
		At:        time.Now().UTC().Format(time.RFC3339),
	})
}

// refreshTokenFrom reads a refresh token from the JSON body or the
// x-refresh-token header, body first.
func refreshTokenFrom(c echo.Context) string {
	var req refreshReq
	_ = c.Bind(&req)
	if raw := strings.TrimSpace(req.Token); raw != "" {
		return raw
	}
	return strings.TrimSpace(c.Request().Header.Get("x-refresh-token"))
}
