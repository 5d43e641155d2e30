// Package cache memoizes query results per index generation.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/searcher/result"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/metrics"
)

// QueryCache maps gen:<generation>:<lowercased query> to a serialized
// SearchResult. The generation is the index build the result was computed
// on, so a rebuilt index never serves results of its predecessor. Backend
// failures are logged and read as misses. A nil store disables caching.
type QueryCache struct {
	store   Store
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// New returns a cache over store. m may be nil.
func New(store Store, m *metrics.Metrics) *QueryCache {
	return &QueryCache{
		store:   store,
		metrics: m,
		logger:  slog.Default().With("component", "query-cache"),
	}
}

// Key returns the store key of query under generation gen.
func Key(gen, query string) string {
	return fmt.Sprintf("gen:%s:%s", gen, strings.ToLower(strings.TrimSpace(query)))
}

// Get returns the cached result of query for generation gen.
func (c *QueryCache) Get(ctx context.Context, gen, query string) (result.SearchResult, bool) {
	if c.store == nil {
		return result.SearchResult{}, false
	}
	key := Key(gen, query)
	raw, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Warn("cache get failed", "key", key, "error", err)
		c.miss()
		return result.SearchResult{}, false
	}
	if !ok {
		c.miss()
		return result.SearchResult{}, false
	}
	res, err := result.Parse(raw)
	if err != nil {
		c.logger.Error("cached result is corrupt", "key", key, "error", err)
		c.miss()
		return result.SearchResult{}, false
	}
	c.hit()
	c.logger.Debug("cache hit", "key", key)
	return res, true
}

// Set stores res as the result of query for generation gen.
func (c *QueryCache) Set(ctx context.Context, gen, query string, res result.SearchResult) {
	if c.store == nil {
		return
	}
	key := Key(gen, query)
	if err := c.store.Set(ctx, key, res.String()); err != nil {
		c.logger.Warn("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached result or runs compute once for all
// concurrent callers of the same key and caches its output. hit reports
// whether the result came from the store. compute runs detached from the
// cancellation of ctx; each caller still stops waiting when its own ctx ends.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	gen, query string,
	compute func(ctx context.Context) (result.SearchResult, error),
) (res result.SearchResult, hit bool, err error) {
	if res, ok := c.Get(ctx, gen, query); ok {
		return res, true, nil
	}
	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(Key(gen, query), func() (any, error) {
		res, err := compute(shared)
		if err != nil {
			return nil, err
		}
		c.Set(shared, gen, query, res)
		return res, nil
	})
	select {
	case <-ctx.Done():
		return result.SearchResult{}, false, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return result.SearchResult{}, false, r.Err
		}
		return r.Val.(result.SearchResult), false, nil
	}
}

// Invalidate drops every entry of every generation.
func (c *QueryCache) Invalidate(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	n, err := c.store.Clear(ctx)
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", n)
	return nil
}

// Stats returns the hit and miss counts since start.
func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Ping checks the backend when it can be checked. A disabled or in-process
// cache is always reachable.
func (c *QueryCache) Ping(ctx context.Context) error {
	if p, ok := c.store.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (c *QueryCache) Close() error {
	if c.store == nil {
		return nil
	}
	return c.store.Close()
}

func (c *QueryCache) hit() {
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
}

func (c *QueryCache) miss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}
