package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// QueryCache holds question embeddings so repeated questions skip the
// provider. Eviction is least-recently-used with a per-entry TTL.
type QueryCache struct {
	entries *expirable.LRU[string, []float32]

	hits   atomic.Int64
	misses atomic.Int64
}

func NewQueryCache(maxSize int, ttl time.Duration) *QueryCache {
	if maxSize <= 0 {
		maxSize = 512
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &QueryCache{
		entries: expirable.NewLRU[string, []float32](maxSize, nil, ttl),
	}
}

func cacheKey(model, text string) string {
	data := make([]byte, 0, len(model)+len(text)+1)
	data = append(data, model...)
	data = append(data, 0)
	data = append(data, text...)
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:16])
}

func (c *QueryCache) Get(model, text string) ([]float32, bool) {
	vector, ok := c.entries.Get(cacheKey(model, text))
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return append([]float32(nil), vector...), true
}

func (c *QueryCache) Put(model, text string, vector []float32) {
	c.entries.Add(cacheKey(model, text), append([]float32(nil), vector...))
}

// Size counts unexpired entries.
func (c *QueryCache) Size() int {
	return len(c.entries.Keys())
}

// Stats reports hits and misses since creation.
func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Embedder is the subset of the embedding provider the cache wraps.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	ModelName() string
}

// CachedEmbedder serves question embeddings from a QueryCache.
type CachedEmbedder struct {
	embedder Embedder
	cache    *QueryCache
}

func NewCachedEmbedder(embedder Embedder, cache *QueryCache) *CachedEmbedder {
	return &CachedEmbedder{
		embedder: embedder,
		cache:    cache,
	}
}

func (e *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	model := e.embedder.ModelName()
	if vector, hit := e.cache.Get(model, text); hit {
		return vector, nil
	}

	vector, err := e.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	e.cache.Put(model, text, vector)
	return vector, nil
}

func (e *CachedEmbedder) ModelName() string {
	return e.embedder.ModelName()
}
