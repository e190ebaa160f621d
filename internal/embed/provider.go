// Package embed talks to the external embedding service and caches its
// output. The service owns the models; whether a model was pre-trained,
// adapter fine-tuned, or nudged is opaque to this package.
package embed

import (
	"context"

	"github.com/embedbench/embed-bench/internal/config"
	"github.com/embedbench/embed-bench/internal/pkg/hash"
)

// Provider generates dense embeddings from text.
type Provider interface {
	// Embed generates embeddings for texts, one vector per input, in order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Model returns the model name this provider embeds with.
	Model() string
}

// Cache stores embeddings by key.
type Cache interface {
	Get(ctx context.Context, key string) ([]float32, bool)
	Set(ctx context.Context, key string, embedding []float32)
}

// Cached wraps a Provider with a Cache, computing only what is missing.
type Cached struct {
	provider Provider
	cache    Cache
}

// NewCached creates a caching provider wrapper.
func NewCached(provider Provider, cache Cache) *Cached {
	return &Cached{
		provider: provider,
		cache:    cache,
	}
}

// Model returns the underlying provider's model name.
func (c *Cached) Model() string {
	return c.provider.Model()
}

// Embed returns cached embeddings where available and computes the rest.
func (c *Cached) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))
	uncached := make([]int, 0)
	uncachedTexts := make([]string, 0)

	model := c.provider.Model()
	for i, text := range texts {
		key := hash.CacheKey(model, text)
		if emb, ok := c.cache.Get(ctx, key); ok {
			results[i] = emb
		} else {
			uncached = append(uncached, i)
			uncachedTexts = append(uncachedTexts, text)
		}
	}

	if len(uncachedTexts) > 0 {
		embeddings, err := c.provider.Embed(ctx, uncachedTexts)
		if err != nil {
			return nil, err
		}

		for i, idx := range uncached {
			results[idx] = embeddings[i]
			c.cache.Set(ctx, hash.CacheKey(model, uncachedTexts[i]), embeddings[i])
		}
	}

	return results, nil
}

// NewCache creates a Cache from configuration.
func NewCache(cfg config.CacheConfig) (Cache, error) {
	switch cfg.Type {
	case "redis":
		return NewRedisCache(cfg.RedisURL, cfg.TTL)
	default:
		return NewMemoryCache(cfg.Size), nil
	}
}
