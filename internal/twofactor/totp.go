// Package twofactor implements the time-based second factor. Secrets are
// 20 random bytes (160 bits) encoded as base32; codes follow the standard
// 30-second time step and are accepted within ±1 step to absorb clock skew
// between the server and the authenticator app.
//
// Enabling 2FA is a two-step protocol driven by the handlers: Enroll only
// produces and stores a pending secret; the account's two_factor_enabled
// flag flips after the first successful VerifyCode, proving somebody
// actually scanned the challenge before it can lock them out.
package twofactor

import (
	"bytes"
	"errors"
	"image/png"
	"net/url"
	"strconv"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	secretBytes = 20 // RFC 4226 recommended minimum entropy
	period      = 30 // seconds per time step
	skewSteps   = 1  // accept current step ±1 (90-second window)
)

var (
	// ErrNotEnrolled is returned when a code is verified against an account
	// that never started enrollment.
	ErrNotEnrolled = errors.New("two-factor not enrolled")
	// ErrInvalidCode is returned when a submitted code matches no step in
	// the acceptance window.
	ErrInvalidCode = errors.New("invalid one-time code")
)

// Enrollment is the challenge handed back to a user starting 2FA setup.
type Enrollment struct {
	Secret string // base32 shared secret, stored pending on the account
	URI    string // otpauth:// provisioning URI
	QRPNG  []byte // PNG rendering of the URI for authenticator apps
}

// Engine generates enrollment challenges and verifies submitted codes.
// It holds no state beyond the issuer label.
type Engine struct {
	Issuer string
}

// NewEngine returns an Engine labelling challenges with the given issuer.
func NewEngine(issuer string) *Engine { return &Engine{Issuer: issuer} }

// Enroll generates a fresh random shared secret for the account label and
// renders the scannable challenge. The caller persists the secret; the
// engine never does.
func (e *Engine) Enroll(accountEmail string) (Enrollment, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      e.Issuer,
		AccountName: accountEmail,
		SecretSize:  secretBytes,
		Period:      period,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return Enrollment{}, err
	}
	img, err := renderQR(key)
	if err != nil {
		return Enrollment{}, err
	}
	return Enrollment{Secret: key.Secret(), URI: key.URL(), QRPNG: img}, nil
}

// QRCode re-renders the provisioning QR for an already stored secret, used
// when a user reopens the enrollment screen.
func (e *Engine) QRCode(secret, accountEmail string) ([]byte, error) {
	key, err := otp.NewKeyFromURL(e.provisionURI(secret, accountEmail))
	if err != nil {
		return nil, err
	}
	return renderQR(key)
}

// VerifyCode checks a submitted code against the stored secret at the
// current time. A missing secret reports ErrNotEnrolled; a code matching no
// step in the window reports ErrInvalidCode.
func (e *Engine) VerifyCode(secret, code string) error {
	return e.VerifyCodeAt(secret, code, time.Now().UTC())
}

// VerifyCodeAt is VerifyCode with an explicit clock, for tests.
func (e *Engine) VerifyCodeAt(secret, code string, now time.Time) error {
	if secret == "" {
		return ErrNotEnrolled
	}
	ok, err := totp.ValidateCustom(code, secret, now, totp.ValidateOpts{
		Period:    period,
		Skew:      skewSteps,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil || !ok {
		return ErrInvalidCode
	}
	return nil
}

// provisionURI rebuilds the otpauth URI for a stored secret; otp.Key offers
// no constructor from a bare secret.
func (e *Engine) provisionURI(secret, accountEmail string) string {
	v := url.Values{}
	v.Set("secret", secret)
	v.Set("issuer", e.Issuer)
	v.Set("period", strconv.Itoa(period))
	v.Set("digits", "6")
	v.Set("algorithm", "SHA1")
	return "otpauth://totp/" + url.PathEscape(e.Issuer+":"+accountEmail) + "?" + v.Encode()
}

func renderQR(key *otp.Key) ([]byte, error) {
	img, err := key.Image(256, 256)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
