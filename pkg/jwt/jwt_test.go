package jwt_test

import (
	"testing"
	"time"

	"tradepulse/backend/pkg/jwt"

	"gotest.tools/assert"
)

func newTestManager() *jwt.JWTManager {
	return jwt.NewJWTManager("test-secret-key", 15*time.Minute, 7*24*time.Hour)
}

func TestJWTManager_AccessTokenRoundTrip(t *testing.T) {
	m := newTestManager()

	token, err := m.GenerateAccessToken("user-1", "sess-1")
	assert.NilError(t, err)

	claims, err := m.ValidateAccessToken(token)
	assert.NilError(t, err)
	assert.Equal(t, claims.UserID, "user-1")
	assert.Equal(t, claims.SessionID, "sess-1")
	assert.Equal(t, claims.TokenType, jwt.TokenTypeAccess)
}

func TestJWTManager_TokenTypeEnforced(t *testing.T) {
	m := newTestManager()

	refresh, err := m.GenerateRefreshToken("user-1", "sess-1")
	assert.NilError(t, err)

	_, err = m.ValidateAccessToken(refresh)
	assert.Error(t, err, "not an access token")

	claims, err := m.ValidateRefreshToken(refresh)
	assert.NilError(t, err)
	assert.Equal(t, claims.SessionID, "sess-1")

	access, err := m.GenerateAccessToken("user-1", "sess-1")
	assert.NilError(t, err)
	_, err = m.ValidateRefreshToken(access)
	assert.Error(t, err, "not a refresh token")
}

func TestJWTManager_ExpiredToken(t *testing.T) {
	m := jwt.NewJWTManager("test-secret-key", -time.Minute, -time.Minute)

	token, err := m.GenerateAccessToken("user-1", "sess-1")
	assert.NilError(t, err)

	_, err = m.ValidateAccessToken(token)
	assert.Assert(t, err != nil, "expired token must be rejected")
}

func TestJWTManager_WrongSecret(t *testing.T) {
	a := jwt.NewJWTManager("secret-a", time.Minute, time.Hour)
	b := jwt.NewJWTManager("secret-b", time.Minute, time.Hour)

	token, err := a.GenerateAccessToken("user-1", "sess-1")
	assert.NilError(t, err)

	_, err = b.ValidateAccessToken(token)
	assert.Assert(t, err != nil, "token signed with another secret must be rejected")
}

func TestJWTManager_Garbage(t *testing.T) {
	m := newTestManager()
	_, err := m.ValidateToken("not.a.token")
	assert.Assert(t, err != nil)
}

func TestJWTManager_GetTokenExpiration(t *testing.T) {
	m := newTestManager()

	token, err := m.GenerateAccessToken("user-1", "sess-1")
	assert.NilError(t, err)

	exp, err := m.GetTokenExpiration(token)
	assert.NilError(t, err)
	assert.Assert(t, exp.After(time.Now().Add(14*time.Minute)))
	assert.Assert(t, exp.Before(time.Now().Add(16*time.Minute)))
}
