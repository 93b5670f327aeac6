// Package cache memoises boolean query results keyed by the raw query string.
//
// Entries never expire and are not invalidated by later ingestion: a repeated
// query returns the set computed the first time until Clear is called.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/RoaringBitmap/roaring/v2"
	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/metrics"
)

// Backend stores serialised result sets.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	// Clear removes every key under prefix and reports how many went.
	Clear(ctx context.Context, prefix string) (int64, error)
}

type QueryCache struct {
	backend Backend
	prefix  string
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

func New(backend Backend, prefix string, m *metrics.Metrics) *QueryCache {
	return &QueryCache{
		backend: backend,
		prefix:  prefix,
		metrics: m,
		logger:  slog.Default().With("component", "query-cache"),
	}
}

// Get returns the cached set for the exact raw query. Backend failures are
// logged and reported as misses.
func (c *QueryCache) Get(ctx context.Context, query string) (*roaring.Bitmap, bool) {
	key := c.buildKey(query)
	data, ok, err := c.backend.Get(ctx, key)
	if err != nil {
		c.logger.Error("cache get failed", "key", key, "error", err)
		c.recordMiss()
		return nil, false
	}
	if !ok {
		c.recordMiss()
		return nil, false
	}
	result := roaring.New()
	if err := result.UnmarshalBinary(data); err != nil {
		c.logger.Error("cache decode failed", "key", key, "error", err)
		c.recordMiss()
		return nil, false
	}
	c.hits.Add(1)
	c.metrics.ObserveCache(true)
	c.logger.Debug("cache hit", "query", query, "key", key)
	return result, true
}

func (c *QueryCache) Set(ctx context.Context, query string, result *roaring.Bitmap) {
	key := c.buildKey(query)
	data, err := result.MarshalBinary()
	if err != nil {
		c.logger.Error("cache encode failed", "key", key, "error", err)
		return
	}
	if err := c.backend.Set(ctx, key, data); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute answers from the cache or runs computeFn once per concurrent
// burst of identical queries. computeFn reports whether its result may be
// stored. The bool result is true on a cache hit.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	query string,
	computeFn func() (result *roaring.Bitmap, store bool, err error),
) (*roaring.Bitmap, bool, error) {
	if result, ok := c.Get(ctx, query); ok {
		return result, true, nil
	}
	val, err, shared := c.group.Do(c.buildKey(query), func() (interface{}, error) {
		result, store, err := computeFn()
		if err != nil {
			return nil, err
		}
		if store {
			c.Set(ctx, query, result)
		}
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	result := val.(*roaring.Bitmap)
	if shared {
		result = result.Clone()
	}
	return result, false, nil
}

// Clear drops every cached entry.
func (c *QueryCache) Clear(ctx context.Context) error {
	deleted, err := c.backend.Clear(ctx, c.prefix)
	if err != nil {
		return fmt.Errorf("clearing query cache: %w", err)
	}
	c.logger.Info("cache cleared", "keys_deleted", deleted)
	return nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *QueryCache) recordMiss() {
	c.misses.Add(1)
	c.metrics.ObserveCache(false)
}

// buildKey hashes the query verbatim: "Fox" and "fox" are different entries.
func (c *QueryCache) buildKey(query string) string {
	sum := sha256.Sum256([]byte(query))
	return c.prefix + hex.EncodeToString(sum[:])
}
