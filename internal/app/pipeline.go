package app

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/datatypes"

	"edurag/internal/chunker"
	"edurag/internal/metrics"
	"edurag/internal/model"
)

// ProcessResult summarizes one processDocument run. FailedChunks holds the
// chunk indices stored without an embedding.
type ProcessResult struct {
	ChunksProcessed int   `json:"chunks_processed"`
	EmbeddedChunks  int   `json:"embedded_chunks"`
	FailedChunks    []int `json:"failed_chunks,omitempty"`
	PartialFailure  bool  `json:"partial_failure"`
}

// Outcome is the label used for metrics and document status.
func (r ProcessResult) Outcome() string {
	if r.PartialFailure {
		return "partial"
	}
	return "complete"
}

// Pipeline replaces a document's chunks: clear, chunk, embed, store.
// Runs for the same document never interleave.
type Pipeline struct {
	chunker  *chunker.Chunker
	embedder *BatchEmbedder
	store    ChunkStore
	search   *SearchService
	locks    *keyedMutex
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func NewPipeline(ch *chunker.Chunker, embedder *BatchEmbedder, store ChunkStore, search *SearchService, m *metrics.Metrics, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		chunker:  ch,
		embedder: embedder,
		store:    store,
		search:   search,
		locks:    newKeyedMutex(),
		metrics:  m,
		logger:   logger,
	}
}

// ProcessDocument deletes the existing chunks of documentID, then chunks text,
// embeds every chunk and stores all of them, embedded or not. Embedding
// failures are reported in the result; only store failures return an error.
func (p *Pipeline) ProcessDocument(ctx context.Context, documentID uint, text string, meta model.ChunkMetadata) (ProcessResult, error) {
	unlock := p.locks.Lock(documentID)
	defer unlock()
	return p.processLocked(ctx, documentID, text, meta)
}

// processLocked expects the caller to hold the lock of documentID.
func (p *Pipeline) processLocked(ctx context.Context, documentID uint, text string, meta model.ChunkMetadata) (ProcessResult, error) {
	logger := p.logger.With("document_id", documentID)

	if err := p.store.DeleteChunksForDocument(ctx, documentID); err != nil {
		p.metrics.DocumentProcessed("failed", 0, 0)
		return ProcessResult{}, fmt.Errorf("clear chunks of document %d failed: %w", documentID, err)
	}

	meta.DocumentID = documentID
	drafts := p.chunker.Chunk(text, meta)
	if len(drafts) == 0 {
		logger.Info("document has no chunkable text")
		p.metrics.DocumentProcessed("complete", 0, 0)
		return ProcessResult{}, nil
	}

	embedded := p.embedder.EmbedAll(ctx, drafts)

	result := ProcessResult{ChunksProcessed: len(embedded)}
	records := make([]model.DocumentChunk, len(embedded))
	for i, c := range embedded {
		records[i] = model.DocumentChunk{
			DocumentID: documentID,
			ChunkIndex: c.Index,
			ChunkText:  c.Text,
			ChunkSize:  c.Size,
			Embedding:  c.Embedding,
			Metadata:   datatypes.NewJSONType(c.Metadata),
		}
		if c.Err != nil {
			result.FailedChunks = append(result.FailedChunks, c.Index)
			continue
		}
		result.EmbeddedChunks++
	}
	result.PartialFailure = len(result.FailedChunks) > 0

	if err := p.store.SaveChunks(ctx, records); err != nil {
		p.metrics.DocumentProcessed("failed", 0, 0)
		return ProcessResult{}, fmt.Errorf("store chunks of document %d failed: %w", documentID, err)
	}

	p.metrics.DocumentProcessed(result.Outcome(), result.EmbeddedChunks, len(result.FailedChunks))
	if result.PartialFailure {
		logger.Warn("document processed with missing embeddings",
			"chunks", result.ChunksProcessed,
			"failed_chunks", result.FailedChunks,
		)
	} else {
		logger.Info("document processed", "chunks", result.ChunksProcessed)
	}
	return result, nil
}

// WithDocumentLock runs fn while holding the processing lock of documentID.
func (p *Pipeline) WithDocumentLock(documentID uint, fn func() error) error {
	unlock := p.locks.Lock(documentID)
	defer unlock()
	return fn()
}

// AnswerQuery returns the chunks most similar to the query.
func (p *Pipeline) AnswerQuery(ctx context.Context, in SearchInput) ([]model.SimilarityResult, error) {
	return p.search.Search(ctx, in)
}
