package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndVerifyRoundTrip(t *testing.T) {
	svc := NewService("test-secret", 15*time.Minute, 7*24*time.Hour)

	signed, exp, err := svc.IssueAccess(42, "ana@example.com", "farmer")
	require.NoError(t, err)
	assert.True(t, exp.After(time.Now()))

	claims, err := svc.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), claims.UserID())
	assert.Equal(t, "ana@example.com", claims.Email)
	assert.Equal(t, "farmer", claims.Role)
}

func TestRefreshOutlivesAccess(t *testing.T) {
	svc := NewService("test-secret", 15*time.Minute, 7*24*time.Hour)

	_, accessExp, err := svc.IssueAccess(7, "b@example.com", "buyer")
	require.NoError(t, err)
	_, refreshExp, err := svc.IssueRefresh(7, "b@example.com", "buyer")
	require.NoError(t, err)

	assert.True(t, refreshExp.After(accessExp))
}

func TestVerifyRejectsExpired(t *testing.T) {
	svc := NewService("test-secret", -time.Minute, 7*24*time.Hour)

	signed, _, err := svc.IssueAccess(42, "ana@example.com", "farmer")
	require.NoError(t, err)

	_, err = svc.Verify(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	issuer := NewService("secret-one", 15*time.Minute, 7*24*time.Hour)
	verifier := NewService("secret-two", 15*time.Minute, 7*24*time.Hour)

	signed, _, err := issuer.IssueAccess(1, "x@example.com", "buyer")
	require.NoError(t, err)

	_, err = verifier.Verify(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsTampered(t *testing.T) {
	svc := NewService("test-secret", 15*time.Minute, 7*24*time.Hour)

	signed, _, err := svc.IssueAccess(1, "x@example.com", "buyer")
	require.NoError(t, err)

	tampered := signed[:len(signed)-2] + "xx"
	_, err = svc.Verify(tampered)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	svc := NewService("test-secret", 15*time.Minute, 7*24*time.Hour)

	_, err := svc.Verify("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
