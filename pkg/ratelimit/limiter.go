package ratelimit

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/aegisai/aegis-core/pkg/domain"
	"github.com/aegisai/aegis-core/pkg/telemetry"
)

const maxKeyLength = 512

// Config holds the limiter defaults. Zero fields fall back to the documented
// defaults in New.
type Config struct {
	DefaultLimit  int64
	DefaultWindow time.Duration
	MaxBucketAge  time.Duration
	SweepInterval time.Duration
}

const (
	defaultLimit         = 100
	defaultWindow        = 60 * time.Second
	defaultMaxBucketAge  = time.Hour
	defaultSweepInterval = 5 * time.Minute
)

// Limiter is the admission-control service. It prefers the distributed Redis
// store and degrades to the process-local store per call when Redis misbehaves.
// Construct with New; the zero value is not usable.
type Limiter struct {
	cfg      Config
	redis    domain.BucketStore
	memory   *MemoryStore
	logger   *slog.Logger
	metrics  *telemetry.Metrics
	now      func() time.Time
	degraded atomic.Bool
}

// Option customises a Limiter.
type Option func(*Limiter)

// WithRedisStore sets the distributed store. Absent this option the limiter
// runs in local-only mode.
func WithRedisStore(store domain.BucketStore) Option {
	return func(l *Limiter) { l.redis = store }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) { l.logger = logger }
}

// WithMetrics sets the metrics sink. Defaults to a private, unexposed registry.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(l *Limiter) { l.metrics = m }
}

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// New creates a Limiter with the given defaults.
func New(cfg Config, opts ...Option) *Limiter {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = defaultLimit
	}
	if cfg.DefaultWindow <= 0 {
		cfg.DefaultWindow = defaultWindow
	}
	if cfg.MaxBucketAge <= 0 {
		cfg.MaxBucketAge = defaultMaxBucketAge
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = defaultSweepInterval
	}

	l := &Limiter{
		cfg:    cfg,
		memory: NewMemoryStore(),
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.metrics == nil {
		l.metrics = telemetry.NewMetrics()
	}

	if l.redis == nil {
		l.logger.Warn("No Redis store configured - rate limiting is per-instance only")
	}

	return l
}

// Decide checks the caller identified by key against the configured default
// limit and window.
func (l *Limiter) Decide(ctx context.Context, key string) (domain.Decision, error) {
	return l.DecideWithLimit(ctx, key, l.cfg.DefaultLimit, l.cfg.DefaultWindow)
}

// DecideWithLimit checks the caller against an explicit limit and window.
// A missing or malformed key is always denied (fail closed). Redis failures
// degrade the single call to the local store; the decision's Backend field
// reports which store actually answered.
func (l *Limiter) DecideWithLimit(ctx context.Context, key string, limit int64, window time.Duration) (domain.Decision, error) {
	if !validKey(key) {
		return domain.Decision{Allowed: false, Limit: limit}, domain.ErrInvalidCallerKey
	}

	now := l.now()

	if l.redis != nil {
		dec, err := l.redis.Take(ctx, key, limit, window, now)
		if err == nil {
			if l.degraded.CompareAndSwap(true, false) {
				l.logger.Info("Redis rate limiting recovered")
			}
			l.metrics.RecordDecision(dec.Backend.String(), dec.Allowed)
			return dec, nil
		}

		// Warn on the transition into degraded mode only, not per call.
		if l.degraded.CompareAndSwap(false, true) {
			l.logger.Warn("Redis rate limit check failed - falling back to in-memory", "error", err)
		}
		l.metrics.RecordFallback()
	}

	dec, err := l.memory.Take(ctx, key, limit, window, now)
	if err != nil {
		return domain.Decision{}, err
	}
	l.metrics.RecordDecision(dec.Backend.String(), dec.Allowed)
	return dec, nil
}

// Backend reports which store the limiter is currently using.
func (l *Limiter) Backend() domain.Backend {
	if l.redis != nil && !l.degraded.Load() {
		return domain.BackendRedis
	}
	return domain.BackendMemory
}

// LocalBuckets reports the number of live buckets in the local store.
func (l *Limiter) LocalBuckets() int {
	return l.memory.Len()
}

// Run sweeps stale local buckets until ctx is cancelled. Redis buckets expire
// via TTL and need no sweeping. Intended to run as one background goroutine.
func (l *Limiter) Run(ctx context.Context) {
	ticker := time.NewTicker(l.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed := l.memory.Sweep(l.now(), l.cfg.MaxBucketAge)
			l.metrics.RecordSweep(removed)
			if removed > 0 {
				l.logger.Debug("Swept stale rate-limit buckets", "removed", removed)
			}
		}
	}
}

// validKey rejects empty, oversized and control-character keys. These denote a
// broken caller, not an over-budget one, and are always denied.
func validKey(key string) bool {
	if key == "" || len(key) > maxKeyLength {
		return false
	}
	return !strings.ContainsFunc(key, func(r rune) bool {
		return r < 0x20 || r == 0x7f
	})
}
