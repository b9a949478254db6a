package handler

import (
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/fatimazahra-12/school-manage/internal/model"
	"github.com/fatimazahra-12/school-manage/internal/repository"
	"github.com/fatimazahra-12/school-manage/internal/twofactor"
)

// TwoFactorHandler drives the two-step enrollment protocol: Enable stores a
// fresh secret with the enabled flag still off, Verify proves possession of
// the secret and only then flips the flag on.
type TwoFactorHandler struct {
	Accounts *repository.AccountRepo
	Engine   *twofactor.Engine
}

func NewTwoFactorHandler(accounts *repository.AccountRepo, engine *twofactor.Engine) *TwoFactorHandler {
	return &TwoFactorHandler{Accounts: accounts, Engine: engine}
}

type twoFactorReq struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// Enable generates and persists a new shared secret for the account and
// returns the enrollment challenge. Calling it again before Verify simply
// replaces the pending secret.
func (h *TwoFactorHandler) Enable(c echo.Context) error {
	var req twoFactorReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_request", "message": "email required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	acct, err := h.lookup(ctx, req.Email)
	if err != nil {
		return respondLookupErr(c, err)
	}

	enr, err := h.Engine.Enroll(acct.Email)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "enrollment failed"})
	}
	if err := h.Accounts.SetTwoFactorSecret(ctx, acct.ID, enr.Secret); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "save secret failed"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"secret":  enr.Secret,
		"uri":     enr.URI,
		"qr_png":  base64.StdEncoding.EncodeToString(enr.QRPNG),
		"qr_link": "/v1/2fa/qrcode?email=" + acct.Email,
		"message": "Scan the QR code with your authenticator app, then verify a code to finish enabling 2FA.",
	})
}

// Verify checks a submitted one-time code against the stored secret and
// flips two_factor_enabled on success.
func (h *TwoFactorHandler) Verify(c echo.Context) error {
	var req twoFactorReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.Code) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_request", "message": "email and code required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	acct, err := h.lookup(ctx, req.Email)
	if err != nil {
		return respondLookupErr(c, err)
	}

	secret := ""
	if acct.TwoFactorSecret != nil {
		secret = *acct.TwoFactorSecret
	}
	if err := h.Engine.VerifyCode(secret, strings.TrimSpace(req.Code)); err != nil {
		if errors.Is(err, twofactor.ErrNotEnrolled) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "not_enrolled", "message": "2FA enrollment not started"})
		}
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_code", "message": "one-time code did not match"})
	}
	if !acct.TwoFactorOn {
		if err := h.Accounts.EnableTwoFactor(ctx, acct.ID); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "update failed"})
		}
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "Two-factor authentication enabled."})
}

// QRCode re-renders the provisioning QR for an already-stored secret, as a
// raw PNG. Useful when the enrollment response was lost before scanning.
func (h *TwoFactorHandler) QRCode(c echo.Context) error {
	email := strings.TrimSpace(c.QueryParam("email"))
	if email == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_request", "message": "email required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	acct, err := h.lookup(ctx, email)
	if err != nil {
		return respondLookupErr(c, err)
	}
	if acct.TwoFactorSecret == nil || *acct.TwoFactorSecret == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "not_enrolled", "message": "2FA enrollment not started"})
	}

	png, err := h.Engine.QRCode(*acct.TwoFactorSecret, acct.Email)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "render failed"})
	}
	return c.Blob(http.StatusOK, "image/png", png)
}

func (h *TwoFactorHandler) lookup(ctx context.Context, email string) (model.Account, error) {
	return h.Accounts.GetByEmail(ctx, email)
}

func respondLookupErr(c echo.Context, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not_found", "message": "account not found"})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "query failed"})
}
