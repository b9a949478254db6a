package twofactor

import (
	"testing"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func codeAt(t *testing.T, secret string, at time.Time) string {
	t.Helper()
	code, err := totp.GenerateCodeCustom(secret, at, totp.ValidateOpts{
		Period:    period,
		Skew:      skewSteps,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	require.NoError(t, err)
	return code
}

func TestEnrollProducesScannableChallenge(t *testing.T) {
	e := NewEngine("School Management")
	enr, err := e.Enroll("alice@x.com")
	require.NoError(t, err)

	// 20 random bytes -> 32 base32 characters.
	assert.Len(t, enr.Secret, 32)
	assert.Contains(t, enr.URI, "otpauth://totp/")
	assert.Contains(t, enr.URI, "School%20Management")
	assert.NotEmpty(t, enr.QRPNG)
	// PNG magic bytes.
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, enr.QRPNG[:4])
}

func TestVerifyCodeCurrentStep(t *testing.T) {
	e := NewEngine("School Management")
	enr, err := e.Enroll("alice@x.com")
	require.NoError(t, err)

	now := time.Now().UTC()
	assert.NoError(t, e.VerifyCodeAt(enr.Secret, codeAt(t, enr.Secret, now), now))
}

func TestVerifyCodeAdjacentSteps(t *testing.T) {
	e := NewEngine("School Management")
	enr, err := e.Enroll("alice@x.com")
	require.NoError(t, err)

	now := time.Now().UTC()
	// One step in either direction is inside the acceptance window.
	assert.NoError(t, e.VerifyCodeAt(enr.Secret, codeAt(t, enr.Secret, now.Add(-period*time.Second)), now))
	assert.NoError(t, e.VerifyCodeAt(enr.Secret, codeAt(t, enr.Secret, now.Add(period*time.Second)), now))
}

func TestVerifyCodeOutsideWindow(t *testing.T) {
	e := NewEngine("School Management")
	enr, err := e.Enroll("alice@x.com")
	require.NoError(t, err)

	now := time.Unix(1_700_000_000, 0).UTC()
	stale := codeAt(t, enr.Secret, now.Add(-3*period*time.Second))
	err = e.VerifyCodeAt(enr.Secret, stale, now)
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestVerifyCodeNotEnrolled(t *testing.T) {
	e := NewEngine("School Management")
	err := e.VerifyCode("", "123456")
	assert.ErrorIs(t, err, ErrNotEnrolled)
}

func TestQRCodeForStoredSecret(t *testing.T) {
	e := NewEngine("School Management")
	enr, err := e.Enroll("alice@x.com")
	require.NoError(t, err)

	img, err := e.QRCode(enr.Secret, "alice@x.com")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, img[:4])
}
