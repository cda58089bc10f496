// Package cache provides a Redis-backed search result cache with
// singleflight collapsing of concurrent identical queries.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/searchcore/kbsearch/internal/engine"
	"github.com/searchcore/kbsearch/internal/metadata"
	"github.com/searchcore/kbsearch/internal/tokenizer"
	"github.com/searchcore/kbsearch/pkg/config"
	pkgredis "github.com/searchcore/kbsearch/pkg/redis"
)

const keyPrefix = "kbsearch:query:"

// QueryCache caches ranked result lists keyed by normalized query, topK,
// mode, and filter. Entries expire via TTL and are invalidated wholesale on
// every index mutation, since any mutation can change corpus statistics and
// therefore every score.
type QueryCache struct {
	client *pkgredis.Client
	cfg    config.RedisConfig
	group  singleflight.Group
	logger *slog.Logger
	hits   atomic.Int64
	misses atomic.Int64
}

func New(client *pkgredis.Client, cfg config.RedisConfig) *QueryCache {
	return &QueryCache{
		client: client,
		cfg:    cfg,
		logger: slog.Default().With("component", "query-cache"),
	}
}

func (c *QueryCache) Get(ctx context.Context, req engine.Request) ([]engine.SearchResult, bool) {
	key := c.buildKey(req)
	data, err := c.client.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.misses.Add(1)
		return nil, false
	}
	var results []engine.SearchResult
	if err := json.Unmarshal([]byte(data), &results); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	c.logger.Debug("cache hit", "query", req.Query, "key", key)
	return results, true
}

func (c *QueryCache) Set(ctx context.Context, req engine.Request, results []engine.SearchResult) {
	key := c.buildKey(req)
	data, err := json.Marshal(results)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, data, c.cfg.CacheTTL); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached results for req, or runs computeFn once
// for all concurrent callers with the same key and caches its result. The
// second return value reports whether the answer came from the cache.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	req engine.Request,
	computeFn func() ([]engine.SearchResult, error),
) ([]engine.SearchResult, bool, error) {
	if results, ok := c.Get(ctx, req); ok {
		return results, true, nil
	}
	key := c.buildKey(req)
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		if results, ok := c.Get(ctx, req); ok {
			return results, nil
		}
		results, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, req, results)
		return results, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.([]engine.SearchResult), false, nil
}

// Invalidate drops every cached query result.
func (c *QueryCache) Invalidate(ctx context.Context) error {
	pattern := keyPrefix + "*"
	deleted, err := c.client.FlushByPattern(ctx, pattern)
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *QueryCache) buildKey(req engine.Request) string {
	raw := fmt.Sprintf("%s|k=%d|m=%s|f=%s",
		NormalizeQuery(req.Query), req.TopK, req.Mode, filterKey(req.Filter))
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}

func filterKey(fs *metadata.FilterSet) string {
	if fs.Empty() {
		return ""
	}
	return fs.CacheKey()
}

// NormalizeQuery maps queries that tokenize identically to the same cache
// key: terms are sorted, so word order does not fragment the cache. Term
// multiplicity is preserved because duplicate terms score differently.
func NormalizeQuery(query string) string {
	terms := tokenizer.Tokenize(query)
	sort.Strings(terms)
	return strings.Join(terms, ",")
}
