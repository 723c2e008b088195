package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"edurag/internal/ai"
	"edurag/internal/chunker"
	"edurag/internal/metrics"
)

const (
	DefaultBatchSize   = 5
	DefaultBatchDelay  = 100 * time.Millisecond
	DefaultCallTimeout = 30 * time.Second
)

// BatchConfig bounds how hard the embedding backend is pushed.
type BatchConfig struct {
	BatchSize   int
	Delay       time.Duration
	CallTimeout time.Duration
}

func (c BatchConfig) withDefaults() BatchConfig {
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.Delay < 0 {
		c.Delay = 0
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = DefaultCallTimeout
	}
	return c
}

// EmbeddedChunk pairs a draft with its vector. Embedding is nil when Err is set.
type EmbeddedChunk struct {
	chunker.Draft
	Embedding []float32
	Err       error
}

// BatchEmbedder embeds drafts in fixed-size concurrent batches with a pause
// between batches. A failed chunk never fails its neighbours.
type BatchEmbedder struct {
	provider ai.Provider
	cfg      BatchConfig
	metrics  *metrics.Metrics
	logger   *slog.Logger
	sleep    func(ctx context.Context, d time.Duration) error
}

func NewBatchEmbedder(provider ai.Provider, cfg BatchConfig, m *metrics.Metrics, logger *slog.Logger) *BatchEmbedder {
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchEmbedder{
		provider: provider,
		cfg:      cfg.withDefaults(),
		metrics:  m,
		logger:   logger,
		sleep:    sleepContext,
	}
}

// EmbedAll returns one entry per draft, in draft order.
func (b *BatchEmbedder) EmbedAll(ctx context.Context, drafts []chunker.Draft) []EmbeddedChunk {
	out := make([]EmbeddedChunk, len(drafts))
	for i := range drafts {
		out[i].Draft = drafts[i]
	}

	for start := 0; start < len(out); start += b.cfg.BatchSize {
		if start > 0 {
			if err := b.sleep(ctx, b.cfg.Delay); err != nil {
				for i := start; i < len(out); i++ {
					out[i].Err = err
				}
				b.logger.Warn("embedding batches interrupted", "remaining", len(out)-start, "error", err)
				break
			}
		}
		end := min(start+b.cfg.BatchSize, len(out))

		var g errgroup.Group
		g.SetLimit(b.cfg.BatchSize)
		for i := start; i < end; i++ {
			g.Go(func() error {
				out[i].Embedding, out[i].Err = b.embedOne(ctx, out[i].Text)
				if out[i].Err != nil {
					b.logger.Warn("embed chunk failed", "chunk_index", out[i].Index, "error", out[i].Err)
				}
				return nil
			})
		}
		_ = g.Wait()
	}
	return out
}

func (b *BatchEmbedder) embedOne(ctx context.Context, text string) ([]float32, error) {
	callCtx, cancel := context.WithTimeout(ctx, b.cfg.CallTimeout)
	defer cancel()

	started := time.Now()
	vec, err := b.provider.Embed(callCtx, text)
	if err == nil {
		if want := b.provider.Dimensions(); want > 0 && len(vec) != want {
			err = fmt.Errorf("embedding has %d dimensions, want %d", len(vec), want)
		}
	}
	b.metrics.ObserveEmbedding(b.provider.Name(), time.Since(started), err)
	if err != nil {
		return nil, err
	}
	return vec, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
