// Package cache memoizes search results in Redis for the serve command.
// Concurrent misses for the same query share one computation.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/flatindex/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/flatindex/pkg/metrics"
)

const keyPrefix = "flatindex:search:"

// Backend is the key-value surface the cache needs; pkg/redis.Client
// satisfies it.
type Backend interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) (int64, error)
}

type QueryCache struct {
	backend Backend
	prefix  string
	ttl     time.Duration
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// New returns a cache whose keys are namespaced by scope (the store
// directory), so several stores can share one Redis and be invalidated
// independently.
func New(backend Backend, scope string, ttl time.Duration, m *metrics.Metrics) *QueryCache {
	sum := sha256.Sum256([]byte(scope))
	return &QueryCache{
		backend: backend,
		prefix:  keyPrefix + hex.EncodeToString(sum[:8]) + ":",
		ttl:     ttl,
		metrics: m,
		logger:  slog.Default().With("component", "query-cache"),
	}
}

// BuildKey derives the cache key for terms. AND queries are insensitive to
// term order, case and repetition, so equivalent queries share a key.
func (c *QueryCache) BuildKey(terms []string) string {
	seen := make(map[string]struct{}, len(terms))
	norm := make([]string, 0, len(terms))
	for _, t := range terms {
		t = tokenizer.Lower(t)
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		norm = append(norm, t)
	}
	sort.Strings(norm)
	sum := sha256.Sum256([]byte(strings.Join(norm, "\x00")))
	return c.prefix + hex.EncodeToString(sum[:16])
}

func (c *QueryCache) Get(ctx context.Context, terms []string) ([]string, bool) {
	key := c.BuildKey(terms)
	data, found, err := c.backend.Get(ctx, key)
	if err != nil {
		c.logger.Error("cache get failed", "key", key, "error", err)
	}
	if err != nil || !found {
		c.recordMiss()
		return nil, false
	}
	var docs []string
	if err := json.Unmarshal([]byte(data), &docs); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.recordMiss()
		return nil, false
	}
	c.recordHit()
	return docs, true
}

func (c *QueryCache) Set(ctx context.Context, terms []string, docs []string) {
	key := c.BuildKey(terms)
	data, err := json.Marshal(docs)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.backend.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached result for terms, or runs computeFn once
// per key across concurrent callers and caches its result. The bool reports a
// cache hit. The shared computation outlives any single caller: a caller whose
// ctx ends stops waiting with ctx.Err() while the others still get the result.
func (c *QueryCache) GetOrCompute(ctx context.Context, terms []string, computeFn func() ([]string, error)) ([]string, bool, error) {
	if docs, ok := c.Get(ctx, terms); ok {
		return docs, true, nil
	}
	key := c.BuildKey(terms)
	storeCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		docs, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(storeCtx, terms, docs)
		return docs, nil
	})
	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, false, res.Err
		}
		return res.Val.([]string), false, nil
	}
}

// Invalidate drops every cached query of this cache's store. Other stores
// sharing the backend keep their entries.
func (c *QueryCache) Invalidate(ctx context.Context) error {
	deleted, err := c.backend.DeleteByPattern(ctx, c.prefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *QueryCache) recordHit() {
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
}

func (c *QueryCache) recordMiss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}
