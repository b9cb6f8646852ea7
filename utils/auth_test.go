package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("Secret1!x")
	require.NoError(t, err)
	assert.NotEqual(t, "Secret1!x", hash)
	assert.True(t, CheckPassword(hash, "Secret1!x"))
	assert.False(t, CheckPassword(hash, "secret1!x"))
	assert.False(t, CheckPassword("", ""), "accounts without a password never match")
}

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken(42, "alice", time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func TestParseTokenRejects(t *testing.T) {
	expired, err := GenerateToken(1, "alice", -time.Minute)
	require.NoError(t, err)

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{UserID: 1})
	foreignSigned, err := foreign.SignedString([]byte("another-secret"))
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: 1}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for name, token := range map[string]string{
		"expired":        expired,
		"wrong secret":   foreignSigned,
		"none algorithm": unsigned,
		"garbage":        "not.a.token",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseToken(token)
			assert.Error(t, err)
		})
	}
}

func TestIssueAndClearSession(t *testing.T) {
	w := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(w)
	ctx.Request = httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)

	token, err := IssueSession(ctx, 7, "bob")
	require.NoError(t, err)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, SessionCookieName, c.Name)
	assert.Equal(t, token, c.Value)
	assert.True(t, c.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, c.SameSite)
	assert.Equal(t, int(SessionTTL.Seconds()), c.MaxAge)

	w = httptest.NewRecorder()
	ctx, _ = gin.CreateTestContext(w)
	ctx.Request = httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	ClearSession(ctx)
	cookies = w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Empty(t, cookies[0].Value)
	assert.Negative(t, cookies[0].MaxAge)
}

func TestTokenBlacklist(t *testing.T) {
	BlacklistToken("revoked-token", time.Now().Add(time.Hour))
	assert.True(t, IsTokenBlacklisted("revoked-token"))
	assert.False(t, IsTokenBlacklisted("fresh-token"))

	BlacklistToken("already-expired", time.Now().Add(-time.Second))
	assert.False(t, IsTokenBlacklisted("already-expired"))
}
