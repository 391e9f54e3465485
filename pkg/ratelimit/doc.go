// Package ratelimit provides distributed admission control with a safe
// single-process fallback.
//
// The primary entry point is the Limiter service:
//
//	dec, err := limiter.Decide(ctx, apiKeyID)
//
// The returned Decision contains whether the request is admitted, how many
// tokens remain in the current window, when the window resets, and which
// backend produced the answer — callers surface these as rate-limit headers.
//
// # Algorithm
//
// The limiter uses a fixed-window token bucket (NOT sliding): the first request
// for a key opens a window of the configured duration with count=1; subsequent
// requests increment the count until the limit is reached; once the window
// elapses the bucket resets to count=1. The read-check-increment sequence is
// atomic on both backends, so two concurrent requests can never both consume
// the last remaining token.
//
// # Backends
//
// Two BucketStore implementations with the same Take API:
//
//   - RedisStore: the distributed store shared by all service instances. A Lua
//     script performs the whole decision server-side in one atomic step, and
//     buckets self-expire via TTL equal to the window.
//
//   - MemoryStore: a process-local map guarded by a mutex. Used when no Redis
//     URL is configured and as the per-call fallback when Redis is unreachable.
//     It enforces no cross-process budget; that is a documented limitation of
//     degraded mode, not a bug. Stale buckets are removed by the Limiter's
//     background sweep.
//
// Backend selection is lazy and per call: a Redis failure degrades that one
// decision to the memory store and the next call tries Redis again. The
// transition in and out of degraded mode is logged once, not per call.
package ratelimit
