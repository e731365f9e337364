// Package throttle is the default internal/ports.ThrottleBackend adapter,
// backed by golang.org/x/time/rate. Grounded on internal/engine's own
// limiterFor (the scheduler's per-module-identity rate.Limiter pool): the
// same count/window-to-rate.Every conversion, generalized from a
// registry.Key-keyed internal pool into a standalone backend any caller
// can wire through ports.ThrottleBackend, not just the scheduler's own
// built-in per-run limiters.
package throttle

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/alexisbeaulieu97/constellation/internal/ports"
)

// Backend implements ports.ThrottleBackend with one rate.Limiter per key,
// created lazily and kept for the Backend's lifetime.
type Backend struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// New builds an empty Backend.
func New() *Backend {
	return &Backend{limiters: make(map[string]*rate.Limiter)}
}

// Wait blocks until key is permitted to proceed under a count-per-window
// budget, or ctx is cancelled first. A non-positive count or window means
// unthrottled.
func (b *Backend) Wait(ctx context.Context, key string, count int, window time.Duration) error {
	return b.limiterFor(key, count, window).Wait(ctx)
}

func (b *Backend) limiterFor(key string, count int, window time.Duration) *rate.Limiter {
	b.mu.Lock()
	defer b.mu.Unlock()

	lim, ok := b.limiters[key]
	if !ok {
		if count <= 0 || window <= 0 {
			lim = rate.NewLimiter(rate.Inf, 1)
		} else {
			lim = rate.NewLimiter(rate.Every(window/time.Duration(count)), count)
		}
		b.limiters[key] = lim
	}
	return lim
}

var _ ports.ThrottleBackend = (*Backend)(nil)
