package utils

import "time"

func stateKey(state string) string {
	return "oauth:state:" + state
}

// SaveState stores an OAuth state token with TTL to mitigate CSRF.
func SaveState(state string, ttl time.Duration) {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if rc := GetRedis(); rc != nil {
		ctx, cancel := redisCtx()
		defer cancel()
		if err := rc.Set(ctx, stateKey(state), "1", ttl).Err(); err == nil {
			return
		}
	}
	fallback.Set(stateKey(state), "1", ttl)
}

// ConsumeState validates and removes a state token. Each state is accepted once.
func ConsumeState(state string) bool {
	if state == "" {
		return false
	}
	if rc := GetRedis(); rc != nil {
		ctx, cancel := redisCtx()
		defer cancel()
		if v, err := rc.GetDel(ctx, stateKey(state)).Result(); err == nil {
			return v != ""
		}
	}
	_, ok := fallback.GetDel(stateKey(state))
	return ok
}
