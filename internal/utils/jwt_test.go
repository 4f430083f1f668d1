package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-that-is-at-least-32-characters-long"

func TestTokenIssuer_IssueAndParse(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	issuer := NewTokenIssuer(testSecret, 30*24*time.Hour).WithClock(func() time.Time { return now })

	token, expiresAt, err := issuer.Issue(42, "alice@x.io")
	require.NoError(t, err)
	assert.Equal(t, now.Add(30*24*time.Hour).Unix(), expiresAt.Unix())

	claims, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "alice@x.io", claims.Email)
	assert.NotEmpty(t, claims.ID)
	assert.Equal(t, now.Unix(), claims.Iat)
}

func TestTokenIssuer_UniqueTokens(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, time.Hour)

	a, _, err := issuer.Issue(1, "a@x.io")
	require.NoError(t, err)
	b, _, err := issuer.Issue(1, "a@x.io")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestTokenIssuer_Expired(t *testing.T) {
	now := time.Now()
	issuer := NewTokenIssuer(testSecret, time.Hour).WithClock(func() time.Time { return now })

	token, _, err := issuer.Issue(1, "a@x.io")
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)
	_, err = issuer.Parse(token)
	assert.Error(t, err)
}

func TestTokenIssuer_WrongSecret(t *testing.T) {
	token, _, err := NewTokenIssuer(testSecret, time.Hour).Issue(1, "a@x.io")
	require.NoError(t, err)

	_, err = NewTokenIssuer(testSecret+"-other", time.Hour).Parse(token)
	assert.Error(t, err)
}

func TestTokenIssuer_RejectsOtherAlgorithms(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{
		"user_id": 1,
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = NewTokenIssuer(testSecret, time.Hour).Parse(signed)
	assert.Error(t, err)
}

func TestTokenIssuer_NotConfigured(t *testing.T) {
	issuer := NewTokenIssuer("", time.Hour)
	assert.False(t, issuer.Configured())

	_, _, err := issuer.Issue(1, "a@x.io")
	assert.ErrorIs(t, err, ErrSigningSecretMissing)

	_, err = issuer.Parse("anything")
	assert.ErrorIs(t, err, ErrSigningSecretMissing)
}
