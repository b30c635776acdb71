// Package ratelimit paces requests per key with token buckets.
package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// KeyedRateLimiter hands out one token bucket per key. All buckets share
// the same rate and burst; keys that were never seen cost nothing.
type KeyedRateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	limit   rate.Limit
	burst   int
}

// New creates a limiter allowing rps requests per second with the given
// burst per key.
func New(rps float64, burst int) *KeyedRateLimiter {
	return &KeyedRateLimiter{
		buckets: make(map[string]*rate.Limiter),
		limit:   rate.Limit(rps),
		burst:   burst,
	}
}

// Allow reports whether a request under key may proceed right now.
func (k *KeyedRateLimiter) Allow(key string) bool {
	return k.bucket(key).Allow()
}

// Wait blocks until a request under key may proceed or ctx is done.
func (k *KeyedRateLimiter) Wait(ctx context.Context, key string) error {
	return k.bucket(key).Wait(ctx)
}

// Stop drops all per-key state. Callers use it on shutdown; the limiter
// stays usable and simply starts from fresh buckets afterwards.
func (k *KeyedRateLimiter) Stop() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.buckets = make(map[string]*rate.Limiter)
}

func (k *KeyedRateLimiter) bucket(key string) *rate.Limiter {
	k.mu.Lock()
	defer k.mu.Unlock()

	b, ok := k.buckets[key]
	if !ok {
		b = rate.NewLimiter(k.limit, k.burst)
		k.buckets[key] = b
	}
	return b
}
