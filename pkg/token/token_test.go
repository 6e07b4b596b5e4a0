package token

import (
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("0123456789abcdef0123456789abcdef")

func TestIssueAndParse(t *testing.T) {
	signed, issued, err := Issue(secret, 42, "supervisor", time.Hour)
	require.NoError(t, err)
	assert.NotEmpty(t, issued.ID)

	claims, err := Parse(secret, signed)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "supervisor", claims.Role)
	assert.Equal(t, issued.ID, claims.ID)
	assert.InDelta(t, time.Hour.Seconds(), claims.Remaining().Seconds(), 5)
}

func TestParseRejectsOtherSecret(t *testing.T) {
	signed, _, err := Issue(secret, 1, "user", time.Hour)
	require.NoError(t, err)

	_, err = Parse([]byte("another-secret-another-secret-xx"), signed)
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
}

func TestParseExpired(t *testing.T) {
	signed, _, err := Issue(secret, 1, "user", -time.Minute)
	require.NoError(t, err)

	_, err = Parse(secret, signed)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestEmptySecret(t *testing.T) {
	_, _, err := Issue(nil, 1, "user", time.Hour)
	assert.ErrorIs(t, err, ErrInvalidSecret)

	_, err = Parse(nil, "x")
	assert.ErrorIs(t, err, ErrInvalidSecret)
}

func TestRemainingExpired(t *testing.T) {
	c := &Claims{RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour))}}
	assert.Equal(t, time.Duration(0), c.Remaining())
	assert.Equal(t, time.Duration(0), (&Claims{}).Remaining())
}
