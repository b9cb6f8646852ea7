package utils

import (
	"strings"
	"time"

	"github.com/mojocn/base64Captcha"
)

// captchaStore implements base64Captcha.Store on Redis, falling back to the
// process-local store when Redis is not configured.
type captchaStore struct {
	prefix string
	ttl    time.Duration
}

var _ base64Captcha.Store = (*captchaStore)(nil)

func newCaptchaStore(ttl time.Duration) *captchaStore {
	return &captchaStore{prefix: "captcha:", ttl: ttl}
}

func (s *captchaStore) key(id string) string { return s.prefix + id }

func (s *captchaStore) Set(id string, value string) error {
	if rc := GetRedis(); rc != nil {
		ctx, cancel := redisCtx()
		defer cancel()
		return rc.Set(ctx, s.key(id), value, s.ttl).Err()
	}
	fallback.Set(s.key(id), value, s.ttl)
	return nil
}

func (s *captchaStore) Get(id string, clear bool) string {
	if rc := GetRedis(); rc != nil {
		ctx, cancel := redisCtx()
		defer cancel()
		var (
			v   string
			err error
		)
		if clear {
			v, err = rc.GetDel(ctx, s.key(id)).Result()
		} else {
			v, err = rc.Get(ctx, s.key(id)).Result()
		}
		if err != nil {
			return ""
		}
		return v
	}
	var v string
	if clear {
		v, _ = fallback.GetDel(s.key(id))
	} else {
		v, _ = fallback.Get(s.key(id))
	}
	return v
}

func (s *captchaStore) Verify(id, answer string, clear bool) bool {
	if id == "" || answer == "" {
		return false
	}
	v := s.Get(id, clear)
	return v != "" && strings.EqualFold(v, strings.TrimSpace(answer))
}
