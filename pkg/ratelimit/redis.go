package ratelimit

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aegisai/aegis-core/pkg/domain"
)

//go:embed bucket.lua
var bucketScript string

const keyPrefix = "rl:"

// RedisStore is the distributed BucketStore. The whole take-token decision runs
// server-side in one Lua script, so it is atomic across every service instance
// sharing the Redis deployment. Buckets self-expire via TTL equal to the window.
type RedisStore struct {
	client redis.Scripter
	script *redis.Script
}

// NewRedisStore wraps an existing go-redis client. It performs no I/O: the
// script is loaded lazily on first use, and connection failures surface from
// Take so the limiter can fall back per call.
func NewRedisStore(client redis.Scripter) *RedisStore {
	return &RedisStore{
		client: client,
		script: redis.NewScript(bucketScript),
	}
}

// Take consumes one token from the fixed-window bucket for key.
func (s *RedisStore) Take(ctx context.Context, key string, limit int64, window time.Duration, now time.Time) (domain.Decision, error) {
	windowSec := int64(window / time.Second)
	if windowSec < 1 {
		windowSec = 1
	}

	reply, err := s.script.Run(ctx, s.client, []string{keyPrefix + key}, limit, windowSec, now.Unix()).Result()
	if err != nil {
		return domain.Decision{}, fmt.Errorf("bucket script: %w", err)
	}

	return decodeReply(reply, limit)
}

// decodeReply converts the script's {allowed, remaining, resetAt} array into a
// Decision. Any shape mismatch is an error; the limiter treats it as a fallback
// trigger, never a panic.
func decodeReply(reply any, limit int64) (domain.Decision, error) {
	values, ok := reply.([]interface{})
	if !ok || len(values) != 3 {
		return domain.Decision{}, fmt.Errorf("unexpected bucket script reply: %v", reply)
	}

	allowed, ok0 := values[0].(int64)
	remaining, ok1 := values[1].(int64)
	resetAt, ok2 := values[2].(int64)
	if !ok0 || !ok1 || !ok2 {
		return domain.Decision{}, fmt.Errorf("unexpected bucket script reply: %v", reply)
	}

	return domain.Decision{
		Allowed:   allowed == 1,
		Remaining: remaining,
		Limit:     limit,
		ResetAt:   time.Unix(resetAt, 0),
		Backend:   domain.BackendRedis,
	}, nil
}
