// Package token implements the credential codec: stateless issuance and
// verification of the three token classes used by the auth subsystem. Each
// class is signed with its own secret, so a token of one kind can never
// verify as another kind even if an attacker replays it on the wrong
// endpoint. The kind is also embedded as a claim and checked on verify.
package token

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Kind selects which secret and lifetime a token is bound to.
type Kind string

const (
	Access  Kind = "access"  // short-lived, sent with every request
	Refresh Kind = "refresh" // long-lived, exchanged for new access tokens
	Reset   Kind = "reset"   // single-purpose, authorizes one password change
)

var (
	// ErrInvalidToken covers malformed tokens, signature mismatches and
	// kind mismatches. Callers must reject the request outright.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpired means the token verified but its lifetime has elapsed.
	// For access tokens this is the signal to attempt a silent refresh.
	ErrExpired = errors.New("token expired")
)

// Claims is the identity payload carried by every issued token.
type Claims struct {
	AccountID uint64
	RoleID    uint64
	Email     string
}

// Secrets holds the three independent signing secrets.
type Secrets struct {
	Access  string
	Refresh string
	Reset   string
}

// Lifetimes holds the per-kind validity windows.
type Lifetimes struct {
	Access  time.Duration
	Refresh time.Duration
	Reset   time.Duration
}

// Codec signs and verifies tokens. It is purely computational and safe for
// concurrent use.
type Codec struct {
	secrets map[Kind][]byte
	ttls    map[Kind]time.Duration
}

// NewCodec builds a codec from the configured secrets and lifetimes.
func NewCodec(s Secrets, l Lifetimes) *Codec {
	return &Codec{
		secrets: map[Kind][]byte{
			Access:  []byte(s.Access),
			Refresh: []byte(s.Refresh),
			Reset:   []byte(s.Reset),
		},
		ttls: map[Kind]time.Duration{
			Access:  l.Access,
			Refresh: l.Refresh,
			Reset:   l.Reset,
		},
	}
}

// TTL reports the configured lifetime for a kind.
func (c *Codec) TTL(kind Kind) time.Duration { return c.ttls[kind] }

// Issue signs an HS256 JWT of the given kind carrying the claims. It returns
// the serialized token and its expiry time.
func (c *Codec) Issue(kind Kind, cl Claims) (string, time.Time, error) {
	secret, ok := c.secrets[kind]
	if !ok {
		return "", time.Time{}, ErrInvalidToken
	}
	now := time.Now().UTC()
	exp := now.Add(c.ttls[kind])
	claims := jwt.MapClaims{
		"sub":     strconv.FormatUint(cl.AccountID, 10),
		"role_id": cl.RoleID,
		"email":   cl.Email,
		"kind":    string(kind),
		"iat":     now.Unix(),
		"exp":     exp.Unix(),
		"jti":     uuid.NewString(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Verify checks a token against the secret of the expected kind and returns
// its claims. Expiry is reported as ErrExpired; every other failure
// (bad signature, wrong kind, malformed payload) collapses into
// ErrInvalidToken so callers never see raw library errors.
func (c *Codec) Verify(kind Kind, raw string) (Claims, error) {
	secret, ok := c.secrets[kind]
	if !ok || raw == "" {
		return Claims{}, ErrInvalidToken
	}
	parsed, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrExpired
		}
		return Claims{}, ErrInvalidToken
	}
	mc, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return Claims{}, ErrInvalidToken
	}
	if k, _ := mc["kind"].(string); k != string(kind) {
		return Claims{}, ErrInvalidToken
	}
	cl := Claims{}
	switch sub := mc["sub"].(type) {
	case string:
		id, perr := strconv.ParseUint(sub, 10, 64)
		if perr != nil {
			return Claims{}, ErrInvalidToken
		}
		cl.AccountID = id
	case float64:
		cl.AccountID = uint64(sub)
	default:
		return Claims{}, ErrInvalidToken
	}
	if rid, ok := mc["role_id"].(float64); ok {
		cl.RoleID = uint64(rid)
	}
	if email, ok := mc["email"].(string); ok {
		cl.Email = email
	}
	return cl, nil
}
