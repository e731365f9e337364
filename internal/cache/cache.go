// Package cache is the default internal/ports.CacheBackend adapter, backed
// by github.com/hashicorp/golang-lru/v2. Grounded on internal/store's
// PipelineImageStore (the same bounded-LRU-behind-a-mutex shape), extended
// with a per-entry expiry since a module invocation's CacheTTL (spec.md §3)
// is a freshness bound the image store's structural-hash cache never
// needed — an image never goes stale, a cached invocation output does.
package cache

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/alexisbeaulieu97/constellation/internal/ports"
)

type entry struct {
	value   []byte
	expires time.Time // zero means no expiry
}

// Backend implements ports.CacheBackend with a bounded LRU of TTL'd
// entries. now is overridable in tests; New and NewWithCapacity set it to
// time.Now.
type Backend struct {
	cache *lru.Cache[string, entry]
	now   func() time.Time
}

// DefaultCapacity bounds the number of distinct cache keys held at once.
const DefaultCapacity = 4096

// New creates a Backend with DefaultCapacity.
func New() (*Backend, error) {
	return NewWithCapacity(DefaultCapacity)
}

// NewWithCapacity creates a Backend bounded to capacity entries.
func NewWithCapacity(capacity int) (*Backend, error) {
	c, err := lru.New[string, entry](capacity)
	if err != nil {
		return nil, err
	}
	return &Backend{cache: c, now: time.Now}, nil
}

// Get returns value, true if key is present and not expired; an expired
// entry is evicted and reported absent.
func (b *Backend) Get(_ context.Context, key string) ([]byte, bool) {
	e, ok := b.cache.Get(key)
	if !ok {
		return nil, false
	}
	if !e.expires.IsZero() && b.now().After(e.expires) {
		b.cache.Remove(key)
		return nil, false
	}
	return e.value, true
}

// Set stores value under key. A zero ttl means the entry never expires on
// its own (it may still be evicted under capacity pressure).
func (b *Backend) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	var expires time.Time
	if ttl > 0 {
		expires = b.now().Add(ttl)
	}
	b.cache.Add(key, entry{value: value, expires: expires})
}

// Delete removes key, if present.
func (b *Backend) Delete(_ context.Context, key string) {
	b.cache.Remove(key)
}

var _ ports.CacheBackend = (*Backend)(nil)
