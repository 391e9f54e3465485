package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/aegisai/aegis-core/pkg/domain"
)

type bucket struct {
	count       int64
	windowStart time.Time
	resetAt     time.Time
}

// MemoryStore is the process-local BucketStore. All mutation happens under one
// mutex, which gives the same no-over-admission guarantee as the Redis script
// within a single process. It enforces no budget across processes.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]*bucket
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		buckets: make(map[string]*bucket),
	}
}

// Take consumes one token from the fixed-window bucket for key.
func (s *MemoryStore) Take(_ context.Context, key string, limit int64, window time.Duration, now time.Time) (domain.Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buckets[key]
	if !ok || !now.Before(b.resetAt) {
		// First request for the key, or the window elapsed: open a fresh window.
		b = &bucket{count: 1, windowStart: now, resetAt: now.Add(window)}
		s.buckets[key] = b
		return domain.Decision{
			Allowed:   true,
			Remaining: limit - 1,
			Limit:     limit,
			ResetAt:   b.resetAt,
			Backend:   domain.BackendMemory,
		}, nil
	}

	if b.count < limit {
		b.count++
		return domain.Decision{
			Allowed:   true,
			Remaining: limit - b.count,
			Limit:     limit,
			ResetAt:   b.resetAt,
			Backend:   domain.BackendMemory,
		}, nil
	}

	return domain.Decision{
		Allowed:   false,
		Remaining: 0,
		Limit:     limit,
		ResetAt:   b.resetAt,
		Backend:   domain.BackendMemory,
	}, nil
}

// Sweep removes buckets whose window started more than maxAge before now and
// returns how many were removed. Redis needs no equivalent: its buckets expire
// via TTL.
func (s *MemoryStore) Sweep(now time.Time, maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	cutoff := now.Add(-maxAge)
	for key, b := range s.buckets {
		if b.windowStart.Before(cutoff) {
			delete(s.buckets, key)
			removed++
		}
	}
	return removed
}

// Len reports the number of live buckets.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buckets)
}
