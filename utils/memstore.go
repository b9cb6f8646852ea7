package utils

import (
	"sync"
	"time"
)

// memStore is the single-instance fallback used when Redis is not configured.
type memStore struct {
	mu    sync.Mutex
	items map[string]memEntry
}

type memEntry struct {
	value     string
	n         int
	expiresAt time.Time
}

var fallback = newMemStore()

func newMemStore() *memStore {
	return &memStore{items: map[string]memEntry{}}
}

func (s *memStore) Set(key, value string, ttl time.Duration) {
	s.mu.Lock()
	s.items[key] = memEntry{value: value, expiresAt: time.Now().Add(ttl)}
	s.mu.Unlock()
}

// SetNX stores value only when key is absent or expired.
func (s *memStore) SetNX(key, value string, ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.getLocked(key); ok {
		return false
	}
	s.items[key] = memEntry{value: value, expiresAt: time.Now().Add(ttl)}
	return true
}

func (s *memStore) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(key)
}

func (s *memStore) GetDel(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.getLocked(key)
	delete(s.items, key)
	return v, ok
}

// Count returns the integer stored under key, 0 when missing.
func (s *memStore) Count(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.items[key]
	if !ok || time.Now().After(e.expiresAt) {
		return 0
	}
	return e.n
}

// Incr bumps a counter; ttl applies only when the counter is created.
func (s *memStore) Incr(key string, ttl time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.items[key]
	if !ok || time.Now().After(e.expiresAt) {
		e = memEntry{expiresAt: time.Now().Add(ttl)}
	}
	e.n++
	s.items[key] = e
	return e.n
}

func (s *memStore) getLocked(key string) (string, bool) {
	e, ok := s.items[key]
	if !ok {
		return "", false
	}
	if time.Now().After(e.expiresAt) {
		delete(s.items, key)
		return "", false
	}
	return e.value, true
}
