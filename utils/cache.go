package utils

import (
	"encoding/json"
	"time"

	"github.com/aedi/aedi/config"
)

// Cache key prefixes shared by readers and the mutations that invalidate them.
const (
	CachePostsPrefix   = "cache:posts:"
	CacheProfilePrefix = "cache:user:profile:"
)

// CacheGetBytes returns cached bytes for a key from Redis.
func CacheGetBytes(key string) ([]byte, bool) {
	rc := GetRedis()
	if rc == nil {
		return nil, false
	}
	ctx, cancel := redisCtx()
	defer cancel()
	b, err := rc.Get(ctx, key).Bytes()
	if err != nil {
		Sugar.Debugf("cache get miss key=%s err=%v", key, err)
		return nil, false
	}
	return b, true
}

// CacheSetJSON marshals v and stores it with the configured TTL.
func CacheSetJSON(key string, v interface{}) {
	rc := GetRedis()
	if rc == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	ttl := time.Duration(config.Get().CacheTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	ctx, cancel := redisCtx()
	defer cancel()
	if err := rc.Set(ctx, key, b, ttl).Err(); err != nil {
		Sugar.Warnf("cache set failed key=%s err=%v", key, err)
	}
}

// InvalidateByPrefix deletes keys that match the given prefix using SCAN.
func InvalidateByPrefix(prefixes ...string) {
	rc := GetRedis()
	if rc == nil {
		return
	}
	ctx, cancel := redisCtx()
	defer cancel()
	for _, prefix := range prefixes {
		var cursor uint64
		for i := 0; i < 10; i++ { // limit rounds to avoid long loops
			keys, cur, err := rc.Scan(ctx, cursor, prefix+"*", 1000).Result()
			if err != nil {
				break
			}
			cursor = cur
			if len(keys) > 0 {
				pipe := rc.Pipeline()
				for _, k := range keys {
					pipe.Del(ctx, k)
				}
				_, _ = pipe.Exec(ctx)
			}
			if cursor == 0 {
				break
			}
		}
	}
}
