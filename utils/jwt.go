package utils

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/aedi/aedi/config"
)

const (
	// SessionCookieName is the cookie carrying the session token.
	SessionCookieName = "jwt"
	// SessionTTL is how long a login stays valid.
	SessionTTL = 15 * 24 * time.Hour
)

// Claims defines JWT claims used in the application.
type Claims struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// GenerateToken issues a JWT for the specified user identity.
func GenerateToken(userID uint, username string, duration time.Duration) (string, error) {
	cfg := config.Get()

	now := time.Now()
	claims := Claims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(duration)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.JWTSecret))
}

// ParseToken validates a JWT and returns its claims.
func ParseToken(tokenStr string) (*Claims, error) {
	cfg := config.Get()
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}

	return claims, nil
}

// IssueSession signs a session token for the user and sets it as an http-only cookie.
func IssueSession(ctx *gin.Context, userID uint, username string) (string, error) {
	token, err := GenerateToken(userID, username, SessionTTL)
	if err != nil {
		return "", err
	}
	ctx.SetSameSite(http.SameSiteStrictMode)
	ctx.SetCookie(SessionCookieName, token, int(SessionTTL.Seconds()), "/", "", config.Get().CookieSecure, true)
	return token, nil
}

// ClearSession expires the session cookie.
func ClearSession(ctx *gin.Context) {
	ctx.SetSameSite(http.SameSiteStrictMode)
	ctx.SetCookie(SessionCookieName, "", -1, "/", "", config.Get().CookieSecure, true)
}
