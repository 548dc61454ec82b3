package services

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenService_RoundTrip(t *testing.T) {
	ts := NewTokenService("secret", time.Hour)

	token, err := ts.Issue("x@y.com")
	require.NoError(t, err)

	email, err := ts.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "x@y.com", email)
}

func TestTokenService_UniquePerIssue(t *testing.T) {
	ts := NewTokenService("secret", time.Hour)
	fixed := time.Unix(1700000000, 0)
	ts.now = func() time.Time { return fixed }

	a, err := ts.Issue("x@y.com")
	require.NoError(t, err)
	b, err := ts.Issue("x@y.com")
	require.NoError(t, err)
	assert.NotEqual(t, a, b, "same user and second must still yield distinct tokens")
}

func TestTokenService_Expired(t *testing.T) {
	ts := NewTokenService("secret", -time.Minute)

	token, err := ts.Issue("x@y.com")
	require.NoError(t, err)

	_, err = ts.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenService_RejectsOtherAlgorithms(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "x@y.com"})
	unsigned, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewTokenService("secret", time.Hour).Parse(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenService_MissingSubject(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"jti": "1"})
	signed, err := token.SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = NewTokenService("secret", time.Hour).Parse(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
