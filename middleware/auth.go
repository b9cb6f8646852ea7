package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/aedi/aedi/utils"
)

const (
	// ContextUserIDKey is the key used to store authenticated user ID in Gin context.
	ContextUserIDKey = "user_id"
	// ContextUsernameKey stores the username inside Gin context.
	ContextUsernameKey = "username"
	// ContextTokenKey stores the raw session token so logout can revoke it.
	ContextTokenKey = "session_token"
)

// AuthRequired ensures the request carries a valid session, read from the
// jwt cookie or, failing that, an Authorization bearer header.
func AuthRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		tokenString, ok := sessionToken(ctx)
		if !ok {
			utils.Error(ctx, http.StatusUnauthorized, 40101, "Unauthorized: No Token Provided")
			return
		}

		if utils.IsTokenBlacklisted(tokenString) {
			utils.Error(ctx, http.StatusUnauthorized, 40104, "Unauthorized: Token revoked")
			return
		}

		claims, err := utils.ParseToken(tokenString)
		if err != nil {
			utils.Error(ctx, http.StatusUnauthorized, 40105, "Unauthorized: Invalid Token")
			return
		}

		ctx.Set(ContextUserIDKey, claims.UserID)
		ctx.Set(ContextUsernameKey, claims.Username)
		ctx.Set(ContextTokenKey, tokenString)
		ctx.Next()
	}
}

func sessionToken(ctx *gin.Context) (string, bool) {
	if c, err := ctx.Cookie(utils.SessionCookieName); err == nil && strings.TrimSpace(c) != "" {
		return strings.TrimSpace(c), true
	}
	parts := strings.SplitN(ctx.GetHeader("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		if t := strings.TrimSpace(parts[1]); t != "" {
			return t, true
		}
	}
	return "", false
}

// CurrentUserID returns the authenticated user id set by AuthRequired.
func CurrentUserID(ctx *gin.Context) uint {
	return ctx.GetUint(ContextUserIDKey)
}

// CurrentToken returns the session token set by AuthRequired.
func CurrentToken(ctx *gin.Context) string {
	return ctx.GetString(ContextTokenKey)
}
