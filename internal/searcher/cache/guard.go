package cache

import (
	"context"
	"time"

	"github.com/Adithya-Monish-Kumar-K/flatindex/pkg/resilience"
)

type guardedBackend struct {
	inner   Backend
	breaker *resilience.Breaker
}

// Guard wraps backend with a circuit breaker. While the circuit is open,
// reads fail fast and the query cache treats them as misses.
func Guard(backend Backend, breaker *resilience.Breaker) Backend {
	return &guardedBackend{inner: backend, breaker: breaker}
}

func (g *guardedBackend) Get(ctx context.Context, key string) (value string, found bool, err error) {
	err = g.breaker.Do(func() error {
		var innerErr error
		value, found, innerErr = g.inner.Get(ctx, key)
		return innerErr
	})
	return value, found, err
}

func (g *guardedBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return g.breaker.Do(func() error {
		return g.inner.Set(ctx, key, value, ttl)
	})
}

// DeleteByPattern bypasses the breaker; invalidation must be attempted even
// when reads have been failing.
func (g *guardedBackend) DeleteByPattern(ctx context.Context, pattern string) (int64, error) {
	return g.inner.DeleteByPattern(ctx, pattern)
}
