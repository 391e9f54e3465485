package ratelimit

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegisai/aegis-core/pkg/domain"
)

// fakeStore stands in for Redis: it answers from a MemoryStore (tagged as the
// redis backend) and fails on demand.
type fakeStore struct {
	inner *MemoryStore
	fail  atomic.Bool
	calls atomic.Int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{inner: NewMemoryStore()}
}

func (f *fakeStore) Take(ctx context.Context, key string, limit int64, window time.Duration, now time.Time) (domain.Decision, error) {
	f.calls.Add(1)
	if f.fail.Load() {
		return domain.Decision{}, errors.New("connection refused")
	}
	dec, err := f.inner.Take(ctx, key, limit, window, now)
	dec.Backend = domain.BackendRedis
	return dec, err
}

// countingHandler counts log records at or above Warn.
type countingHandler struct {
	slog.Handler
	warnings *atomic.Int64
}

func newCountingLogger() (*slog.Logger, *atomic.Int64) {
	var n atomic.Int64
	h := &countingHandler{
		Handler:  slog.NewTextHandler(testWriter{}, &slog.HandlerOptions{Level: slog.LevelDebug}),
		warnings: &n,
	}
	return slog.New(h), &n
}

func (h *countingHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelWarn {
		h.warnings.Add(1)
	}
	return h.Handler.Handle(ctx, r)
}

type testWriter struct{}

func (testWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestLimiter_FailClosedOnInvalidKey(t *testing.T) {
	l := New(Config{DefaultLimit: 10, DefaultWindow: time.Minute})

	for name, key := range map[string]string{
		"empty":    "",
		"nul byte": "key\x00id",
		"newline":  "key\nid",
		"too long": string(make([]byte, maxKeyLength+1)),
	} {
		t.Run(name, func(t *testing.T) {
			dec, err := l.Decide(context.Background(), key)
			require.ErrorIs(t, err, domain.ErrInvalidCallerKey)
			assert.False(t, dec.Allowed)
		})
	}
}

func TestLimiter_UsesRedisWhenHealthy(t *testing.T) {
	store := newFakeStore()
	l := New(Config{DefaultLimit: 10, DefaultWindow: time.Minute}, WithRedisStore(store))

	dec, err := l.Decide(context.Background(), "key-1")
	require.NoError(t, err)
	assert.True(t, dec.Allowed)
	assert.Equal(t, domain.BackendRedis, dec.Backend)
	assert.Equal(t, domain.BackendRedis, l.Backend())
}

func TestLimiter_FallsBackPerCallAndRecovers(t *testing.T) {
	store := newFakeStore()
	logger, warnings := newCountingLogger()
	l := New(Config{DefaultLimit: 10, DefaultWindow: time.Minute},
		WithRedisStore(store), WithLogger(logger))

	store.fail.Store(true)
	for i := 0; i < 3; i++ {
		dec, err := l.Decide(context.Background(), "key-1")
		require.NoError(t, err)
		assert.True(t, dec.Allowed)
		assert.Equal(t, domain.BackendMemory, dec.Backend)
	}
	assert.Equal(t, domain.BackendMemory, l.Backend())

	// Degradation is logged once, not per call.
	assert.Equal(t, int64(1), warnings.Load())
	// Redis is still attempted on every call, never cached as failed.
	assert.Equal(t, int64(3), store.calls.Load())

	store.fail.Store(false)
	dec, err := l.Decide(context.Background(), "key-1")
	require.NoError(t, err)
	assert.Equal(t, domain.BackendRedis, dec.Backend)
	assert.Equal(t, domain.BackendRedis, l.Backend())

	// A second outage warns again after recovery.
	store.fail.Store(true)
	_, err = l.Decide(context.Background(), "key-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), warnings.Load())
}

func TestLimiter_LocalOnlyMode(t *testing.T) {
	l := New(Config{DefaultLimit: 2, DefaultWindow: time.Minute})

	assert.Equal(t, domain.BackendMemory, l.Backend())
	dec, err := l.Decide(context.Background(), "key-1")
	require.NoError(t, err)
	assert.True(t, dec.Allowed)
	assert.Equal(t, domain.BackendMemory, dec.Backend)
}

// Scenario from the admission contract: limit=2, window=1s, four concurrent
// requests at t=0, one more at t=1.1s.
func TestLimiter_BurstScenario(t *testing.T) {
	base := time.Unix(1_700_000_000, 0)
	current := base
	var clockMu sync.Mutex
	clock := func() time.Time {
		clockMu.Lock()
		defer clockMu.Unlock()
		return current
	}

	l := New(Config{DefaultLimit: 2, DefaultWindow: time.Second}, WithClock(clock))

	var wg sync.WaitGroup
	var allowed, denied, badRemaining atomic.Int64
	errs := make([]error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			dec, err := l.Decide(context.Background(), "key-1")
			if err != nil {
				errs[i] = err
				return
			}
			if dec.Allowed {
				allowed.Add(1)
			} else {
				denied.Add(1)
				if dec.Remaining != 0 {
					badRemaining.Add(1)
				}
			}
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, int64(0), badRemaining.Load())

	assert.Equal(t, int64(2), allowed.Load())
	assert.Equal(t, int64(2), denied.Load())

	clockMu.Lock()
	current = base.Add(1100 * time.Millisecond)
	clockMu.Unlock()

	dec, err := l.Decide(context.Background(), "key-1")
	require.NoError(t, err)
	assert.True(t, dec.Allowed)
	assert.Equal(t, int64(1), dec.Remaining)
}

func TestLimiter_RunSweepsStaleBuckets(t *testing.T) {
	base := time.Unix(1_700_000_000, 0)
	current := base
	var clockMu sync.Mutex
	clock := func() time.Time {
		clockMu.Lock()
		defer clockMu.Unlock()
		return current
	}

	l := New(Config{
		DefaultLimit:  10,
		DefaultWindow: time.Minute,
		MaxBucketAge:  time.Hour,
		SweepInterval: 10 * time.Millisecond,
	}, WithClock(clock))

	_, err := l.Decide(context.Background(), "stale-key")
	require.NoError(t, err)
	require.Equal(t, 1, l.LocalBuckets())

	clockMu.Lock()
	current = base.Add(2 * time.Hour)
	clockMu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	assert.Eventually(t, func() bool {
		return l.LocalBuckets() == 0
	}, time.Second, 5*time.Millisecond)
}
