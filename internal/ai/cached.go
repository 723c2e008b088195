package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
)

// EmbeddingCache stores vectors by key. Expiry is up to the implementation.
type EmbeddingCache interface {
	GetEmbedding(ctx context.Context, key string) ([]float32, bool, error)
	SetEmbedding(ctx context.Context, key string, vec []float32) error
}

type cachedProvider struct {
	Provider
	cache  EmbeddingCache
	logger *slog.Logger
}

// Cached serves repeated texts from cache. Cache failures are logged and fall
// through to the wrapped provider.
func Cached(p Provider, cache EmbeddingCache, logger *slog.Logger) Provider {
	if cache == nil {
		return p
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &cachedProvider{Provider: p, cache: cache, logger: logger}
}

func (c *cachedProvider) Unwrap() Provider { return c.Provider }

func (c *cachedProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	key := CacheKey(c.Provider, text)
	vec, ok, err := c.cache.GetEmbedding(ctx, key)
	if err != nil {
		c.logger.Warn("read embedding cache failed", "error", err)
	}
	if ok && len(vec) == c.Dimensions() {
		return vec, nil
	}

	vec, err = c.Provider.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if err := c.cache.SetEmbedding(ctx, key, vec); err != nil {
		c.logger.Warn("write embedding cache failed", "error", err)
	}
	return vec, nil
}

// CacheKey identifies text under a provider and model so switching backends never
// serves vectors of the wrong shape.
func CacheKey(p Provider, text string) string {
	sum := sha256.Sum256([]byte(p.Name() + "|" + p.Model() + "|" + text))
	return hex.EncodeToString(sum[:])
}
