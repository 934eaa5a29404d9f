package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAuthenticator() *JWTAuthenticator {
	return NewJWTAuthenticator("access-secret", "refresh-secret", "savory", "savory", time.Hour, 24*time.Hour)
}

func TestGenerateAndValidateTokens(t *testing.T) {
	a := newTestAuthenticator()

	access, refresh, err := a.GenerateTokens(42)
	require.NoError(t, err)
	require.NotEmpty(t, access)
	require.NotEmpty(t, refresh)

	token, err := a.ValidateAccessToken(access)
	require.NoError(t, err)
	assert.True(t, token.Valid)

	claims, ok := token.Claims.(jwt.MapClaims)
	require.True(t, ok)
	assert.EqualValues(t, 42, claims["sub"])
	assert.Equal(t, "savory", claims["iss"])
}

func TestAccessTokenRejectedByRefreshValidator(t *testing.T) {
	a := newTestAuthenticator()

	access, refresh, err := a.GenerateTokens(7)
	require.NoError(t, err)

	// The two token families sign with different secrets.
	_, err = a.ValidateRefreshToken(access)
	assert.Error(t, err)

	_, err = a.ValidateAccessToken(refresh)
	assert.Error(t, err)
}

func TestValidateRejectsTamperedToken(t *testing.T) {
	a := newTestAuthenticator()

	access, _, err := a.GenerateTokens(7)
	require.NoError(t, err)

	_, err = a.ValidateAccessToken(access + "x")
	assert.Error(t, err)
}
