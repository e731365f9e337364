package ports

import (
	"context"
	"time"
)

// CacheBackend is the pluggable memoization hook behind a module's
// CacheTTL/CacheBackend call options (spec.md §3's ModuleCallOptions, §5
// backpressure). Keys are opaque strings the caller derives (internal/engine
// hashes a module identity together with its bound inputs); values are the
// caller's own serialized payload.
type CacheBackend interface {
	Get(ctx context.Context, key string) (value []byte, ok bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Delete(ctx context.Context, key string)
}

// ThrottleBackend is a pluggable count-per-window backpressure hook. Wait
// blocks the calling goroutine until key is permitted to proceed under a
// count-per-window budget, or returns ctx's error if it is cancelled first.
// internal/engine does not call it: the scheduler enforces a module's
// ThrottleCount/ThrottleWindow call options with its own rate.Limiter pool.
type ThrottleBackend interface {
	Wait(ctx context.Context, key string, count int, window time.Duration) error
}
