// Package token issues and verifies the signed session credentials used by
// the API.  Both access and refresh tokens are HS256 JWTs carrying the same
// identity claims; only their lifetimes differ.  The service holds no state
// beyond the signing key, so validity is decided purely by signature and
// expiry.
package token

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for every verification failure.  Signature and
// expiry problems are deliberately not distinguished so callers cannot leak
// which check failed.
var ErrInvalidToken = errors.New("invalid or expired token")

// Claims is the identity payload embedded in every token: the subject user
// ID (in RegisteredClaims.Subject), the email and the role.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim into the numeric user ID.  A zero value
// means the subject was absent or malformed.
func (c *Claims) UserID() uint64 {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// Service signs and verifies session tokens.  The secret is injected at
// construction and never read from process globals.
type Service struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewService builds a token Service from the signing secret and the two
// token lifetimes.  Validating that the secret is non-empty is the config
// loader's job; by the time a Service exists the process is committed.
func NewService(secret string, accessTTL, refreshTTL time.Duration) *Service {
	return &Service{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// IssueAccess signs a short-lived access token for the given identity and
// returns the token string with its expiry.
func (s *Service) IssueAccess(userID uint64, email, role string) (string, time.Time, error) {
	return s.issue(userID, email, role, s.accessTTL)
}

// IssueRefresh signs a long-lived refresh token carrying the same claims as
// the access token.
func (s *Service) IssueRefresh(userID uint64, email, role string) (string, time.Time, error) {
	return s.issue(userID, email, role, s.refreshTTL)
}

func (s *Service) issue(userID uint64, email, role string, ttl time.Duration) (string, time.Time, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims := Claims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Verify checks the signature and expiry of a token and returns its claims.
// Any failure collapses into ErrInvalidToken.
func (s *Service) Verify(raw string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		// Reject tokens signed with anything but HMAC; an attacker must not
		// be able to pick the verification algorithm.
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || claims.UserID() == 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
