package utils

import (
	"time"

	"github.com/aedi/aedi/config"
)

func regCooldownKey(ip string) string { return "reg:cooldown:" + ip }
func regDailyKey(ip string) string {
	return "reg:daily:" + time.Now().UTC().Format("20060102") + ":" + ip
}

// RegistrationCooldownTry claims the per-IP signup cooldown window.
// Returns false when the IP attempted a signup too recently.
func RegistrationCooldownTry(ip string) bool {
	sec := config.Get().RegisterAttemptCooldownSec
	if sec <= 0 || ip == "" {
		return true
	}
	ttl := time.Duration(sec) * time.Second
	if rc := GetRedis(); rc != nil {
		ctx, cancel := redisCtx()
		defer cancel()
		ok, err := rc.SetNX(ctx, regCooldownKey(ip), "1", ttl).Result()
		if err != nil {
			// fail open
			return true
		}
		return ok
	}
	return fallback.SetNX(regCooldownKey(ip), "1", ttl)
}

// RegistrationDailyLimitCheck reports whether the IP may still create accounts today.
func RegistrationDailyLimitCheck(ip string) bool {
	limit := config.Get().RegisterMaxPerIPPerDay
	if limit <= 0 || ip == "" {
		return true
	}
	if rc := GetRedis(); rc != nil {
		ctx, cancel := redisCtx()
		defer cancel()
		n, err := rc.Get(ctx, regDailyKey(ip)).Int()
		if err != nil {
			return true
		}
		return n < limit
	}
	return fallback.Count(regDailyKey(ip)) < limit
}

// RegistrationDailyIncrement records a successful signup for the IP.
func RegistrationDailyIncrement(ip string) {
	if ip == "" || config.Get().RegisterMaxPerIPPerDay <= 0 {
		return
	}
	if rc := GetRedis(); rc != nil {
		ctx, cancel := redisCtx()
		defer cancel()
		key := regDailyKey(ip)
		pipe := rc.TxPipeline()
		pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, 25*time.Hour)
		if _, err := pipe.Exec(ctx); err != nil {
			Sugar.Warnw("registration counter update failed", "ip", ip, "error", err)
		}
		return
	}
	fallback.Incr(regDailyKey(ip), 25*time.Hour)
}
