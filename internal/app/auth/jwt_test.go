package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService() *JWTService {
	return NewJWTService("test-secret", 15*time.Minute, 24*time.Hour)
}

func TestGenerateAndValidateAccessToken(t *testing.T) {
	s := newTestService()

	token, err := s.GenerateAccessToken("uuid-123", "customer")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := s.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "uuid-123", claims.UserUUID)
	assert.Equal(t, "customer", claims.Role)
	assert.Equal(t, "access", claims.Type)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	s := newTestService()
	other := NewJWTService("other-secret", 15*time.Minute, 24*time.Hour)

	token, err := s.GenerateAccessToken("uuid-123", "customer")
	require.NoError(t, err)

	_, err = other.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateTokenExpired(t *testing.T) {
	s := NewJWTService("test-secret", -time.Minute, 24*time.Hour)

	token, err := s.GenerateAccessToken("uuid-123", "customer")
	require.NoError(t, err)

	_, err = s.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateTokenGarbage(t *testing.T) {
	s := newTestService()
	_, err := s.ValidateToken("not-a-jwt")
	assert.Error(t, err)
}

func TestRefreshTokenPair(t *testing.T) {
	s := newTestService()

	refresh, err := s.GenerateRefreshToken("uuid-123", "admin")
	require.NoError(t, err)

	access, newRefresh, err := s.RefreshTokenPair(refresh)
	require.NoError(t, err)

	claims, err := s.ValidateToken(access)
	require.NoError(t, err)
	assert.Equal(t, "uuid-123", claims.UserUUID)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, "access", claims.Type)

	refreshClaims, err := s.ValidateToken(newRefresh)
	require.NoError(t, err)
	assert.Equal(t, "refresh", refreshClaims.Type)
}

func TestRefreshTokenPairRejectsAccessToken(t *testing.T) {
	s := newTestService()

	access, err := s.GenerateAccessToken("uuid-123", "customer")
	require.NoError(t, err)

	_, _, err = s.RefreshTokenPair(access)
	assert.Error(t, err)
}
