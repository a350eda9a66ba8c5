package helpers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTManager_RoundTrip(t *testing.T) {
	m := NewJWTManager("access", "refresh", time.Minute, time.Hour)

	access, aexp, err := m.GenerateAccessToken("u1", "s1", "admin")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Minute), aexp, 2*time.Second)

	claims, err := m.ParseAccessToken(access)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "s1", claims.SessionID)
	assert.Equal(t, "admin", claims.Role)

	// access and refresh tokens are signed with different secrets
	_, err = m.ParseRefreshToken(access)
	assert.Error(t, err)

	refresh, _, err := m.GenerateRefreshToken("u1", "s1", "user")
	require.NoError(t, err)
	claims, err = m.ParseRefreshToken(refresh)
	require.NoError(t, err)
	assert.Equal(t, "user", claims.Role)
}

func TestJWTManager_Expired(t *testing.T) {
	m := NewJWTManager("access", "refresh", -time.Minute, time.Hour)
	tok, _, err := m.GenerateAccessToken("u1", "s1", "user")
	require.NoError(t, err)

	_, err = m.ParseAccessToken(tok)
	assert.Error(t, err)
}
