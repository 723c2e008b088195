package app

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strings"

	"edurag/internal/ai"
	"edurag/internal/metrics"
	"edurag/internal/model"
)

const (
	DefaultSearchThreshold = 0.7
	DebugSearchThreshold   = 0.6
	DefaultMaxResults      = 10
	MaxSearchResults       = 100
)

// ChunkStore persists chunks and ranks them against a query vector.
type ChunkStore interface {
	SaveChunks(ctx context.Context, chunks []model.DocumentChunk) error
	DeleteChunksForDocument(ctx context.Context, documentID uint) error
	ListByDocumentID(ctx context.Context, documentID uint) ([]model.DocumentChunk, error)
	RankBySimilarity(ctx context.Context, query []float32, threshold float64, maxResults int, ownerID *uint) ([]model.SimilarityResult, error)
}

// SearchInput describes one similarity search. A nil OwnerID searches every
// active document.
type SearchInput struct {
	Query      string
	MaxResults int
	Threshold  float64
	OwnerID    *uint
}

type SearchService struct {
	provider ai.Provider
	store    ChunkStore
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewSearchService takes the provider used for query vectors. It may be a cached
// provider; document ingestion should keep using the uncached one.
func NewSearchService(provider ai.Provider, store ChunkStore, m *metrics.Metrics, logger *slog.Logger) *SearchService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SearchService{provider: provider, store: store, metrics: m, logger: logger}
}

// Search embeds the query and returns matching chunks ordered by similarity.
func (s *SearchService) Search(ctx context.Context, in SearchInput) ([]model.SimilarityResult, error) {
	query := strings.TrimSpace(in.Query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", ErrInvalidInput)
	}
	if math.IsNaN(in.Threshold) || in.Threshold < 0 || in.Threshold > 1 {
		return nil, fmt.Errorf("%w: threshold must be within [0, 1]", ErrInvalidInput)
	}
	limit := in.MaxResults
	if limit <= 0 {
		limit = DefaultMaxResults
	}
	limit = min(limit, MaxSearchResults)

	scope := "global"
	if in.OwnerID != nil {
		scope = "owner"
	}

	results, err := s.search(ctx, query, in.Threshold, limit, in.OwnerID)
	s.metrics.SearchCompleted(scope, len(results), err)
	if err != nil {
		s.logger.Error("similarity search failed", "scope", scope, "error", err)
		return nil, err
	}
	s.logger.Debug("similarity search", "scope", scope, "threshold", in.Threshold, "results", len(results))
	return results, nil
}

func (s *SearchService) search(ctx context.Context, query string, threshold float64, limit int, ownerID *uint) ([]model.SimilarityResult, error) {
	vec, err := s.provider.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query failed: %w", err)
	}
	results, err := s.store.RankBySimilarity(ctx, vec, threshold, limit, ownerID)
	if err != nil {
		return nil, fmt.Errorf("rank chunks failed: %w", err)
	}
	return normalizeResults(results, threshold, limit), nil
}

// normalizeResults keeps results at or above threshold, sorted by similarity
// then chunk id, capped at limit.
func normalizeResults(results []model.SimilarityResult, threshold float64, limit int) []model.SimilarityResult {
	out := make([]model.SimilarityResult, 0, min(len(results), limit))
	for _, r := range results {
		if r.Similarity >= threshold {
			out = append(out, r)
		}
	}
	slices.SortStableFunc(out, func(a, b model.SimilarityResult) int {
		if c := cmp.Compare(b.Similarity, a.Similarity); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
