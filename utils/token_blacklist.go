package utils

import "time"

func blacklistKey(token string) string {
	return "jwt:blacklist:" + token
}

// BlacklistToken revokes a session token until its natural expiration.
func BlacklistToken(token string, expiresAt time.Time) {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return
	}
	if rc := GetRedis(); rc != nil {
		ctx, cancel := redisCtx()
		defer cancel()
		if err := rc.Set(ctx, blacklistKey(token), "1", ttl).Err(); err == nil {
			return
		}
	}
	fallback.Set(blacklistKey(token), "1", ttl)
}

// IsTokenBlacklisted checks if a token was revoked before natural expiration.
func IsTokenBlacklisted(token string) bool {
	if rc := GetRedis(); rc != nil {
		ctx, cancel := redisCtx()
		defer cancel()
		n, err := rc.Exists(ctx, blacklistKey(token)).Result()
		if err == nil {
			return n > 0
		}
		// fail open on Redis errors to avoid locking everyone out
	}
	_, ok := fallback.Get(blacklistKey(token))
	return ok
}
