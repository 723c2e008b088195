package repository

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"

	"gorm.io/gorm"

	"edurag/internal/model"
)

const saveBatchSize = 100

// ChunkRepository persists document chunks and ranks them against query vectors.
// On Postgres ranking runs in SQL through pgvector; other dialects score in process.
type ChunkRepository struct {
	db         *gorm.DB
	dimensions int
}

// NewChunkRepository rejects vectors whose length differs from dimensions.
// A non-positive dimensions disables that check.
func NewChunkRepository(db *gorm.DB, dimensions int) *ChunkRepository {
	return &ChunkRepository{db: db, dimensions: dimensions}
}

// SaveChunks bulk-inserts chunks. Chunks without an embedding are stored with a NULL vector.
func (r *ChunkRepository) SaveChunks(ctx context.Context, chunks []model.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	for i := range chunks {
		if err := validateEmbedding(chunks[i].Embedding, r.dimensions); err != nil {
			return fmt.Errorf("chunk %d of document %d: %w", chunks[i].ChunkIndex, chunks[i].DocumentID, err)
		}
	}
	if err := r.db.WithContext(ctx).CreateInBatches(&chunks, saveBatchSize).Error; err != nil {
		return storeErr("save document chunks", err)
	}
	return nil
}

// DeleteChunksForDocument is idempotent.
func (r *ChunkRepository) DeleteChunksForDocument(ctx context.Context, documentID uint) error {
	if err := r.db.WithContext(ctx).Where("document_id = ?", documentID).Delete(&model.DocumentChunk{}).Error; err != nil {
		return storeErr("delete document chunks", err)
	}
	return nil
}

func (r *ChunkRepository) ListByDocumentID(ctx context.Context, documentID uint) ([]model.DocumentChunk, error) {
	var chunks []model.DocumentChunk
	if err := r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("chunk_index ASC").
		Find(&chunks).Error; err != nil {
		return nil, storeErr("list document chunks", err)
	}
	return chunks, nil
}

// RankBySimilarity returns embedded chunks of active documents scoring at least threshold,
// best first with ties broken by chunk id, at most maxResults of them. A non-nil ownerID
// restricts candidates to that user's documents.
func (r *ChunkRepository) RankBySimilarity(ctx context.Context, query []float32, threshold float64, maxResults int, ownerID *uint) ([]model.SimilarityResult, error) {
	if maxResults <= 0 || len(query) == 0 {
		return []model.SimilarityResult{}, nil
	}
	if r.db.Dialector.Name() == "postgres" {
		return r.rankWithPGVector(ctx, query, threshold, maxResults, ownerID)
	}
	return r.rankInProcess(ctx, query, threshold, maxResults, ownerID)
}

func (r *ChunkRepository) candidates(ctx context.Context, ownerID *uint) *gorm.DB {
	q := r.db.WithContext(ctx).
		Table("document_chunks AS c").
		Joins("JOIN documents AS d ON d.id = c.document_id").
		Where("c.embedding IS NOT NULL AND d.is_active = ?", true)
	if ownerID != nil {
		q = q.Where("d.user_id = ?", *ownerID)
	}
	return q
}

func (r *ChunkRepository) rankWithPGVector(ctx context.Context, query []float32, threshold float64, maxResults int, ownerID *uint) ([]model.SimilarityResult, error) {
	vec := model.Embedding(query).Vector()
	results := []model.SimilarityResult{}
	err := r.candidates(ctx, ownerID).
		Select("c.id, c.document_id, c.chunk_index, c.chunk_text, d.title AS document_title, "+
			"d.category AS document_category, 1 - (c.embedding <=> CAST(? AS vector)) AS similarity", vec).
		Where("1 - (c.embedding <=> CAST(? AS vector)) >= ?", vec, threshold).
		Order("similarity DESC").
		Order("c.id ASC").
		Limit(maxResults).
		Scan(&results).Error
	if err != nil {
		return nil, storeErr("rank chunks by similarity", err)
	}
	return results, nil
}

type rankCandidate struct {
	ID               uint
	DocumentID       uint
	ChunkIndex       int
	ChunkText        string
	Embedding        model.Embedding
	DocumentTitle    string
	DocumentCategory string
}

func (r *ChunkRepository) rankInProcess(ctx context.Context, query []float32, threshold float64, maxResults int, ownerID *uint) ([]model.SimilarityResult, error) {
	rows, err := r.candidates(ctx, ownerID).
		Select("c.id, c.document_id, c.chunk_index, c.chunk_text, c.embedding, " +
			"d.title AS document_title, d.category AS document_category").
		Rows()
	if err != nil {
		return nil, storeErr("rank chunks by similarity", err)
	}
	defer rows.Close()

	results := []model.SimilarityResult{}
	for rows.Next() {
		var c rankCandidate
		if err := r.db.ScanRows(rows, &c); err != nil {
			return nil, storeErr("scan chunk candidate", err)
		}
		score, ok := cosineSimilarity(query, c.Embedding)
		if !ok || score < threshold {
			continue
		}
		results = append(results, model.SimilarityResult{
			ID:               c.ID,
			DocumentID:       c.DocumentID,
			ChunkIndex:       c.ChunkIndex,
			ChunkText:        c.ChunkText,
			Similarity:       score,
			DocumentTitle:    c.DocumentTitle,
			DocumentCategory: c.DocumentCategory,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("rank chunks by similarity", err)
	}

	slices.SortFunc(results, func(a, b model.SimilarityResult) int {
		if c := cmp.Compare(b.Similarity, a.Similarity); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if len(results) > maxResults {
		results = results[:maxResults]
	}
	return results, nil
}

func validateEmbedding(vec model.Embedding, dimensions int) error {
	if len(vec) == 0 {
		return nil
	}
	if dimensions > 0 && len(vec) != dimensions {
		return fmt.Errorf("%w: got %d dimensions, want %d", ErrInvalidEmbedding, len(vec), dimensions)
	}
	for _, v := range vec {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return fmt.Errorf("%w: contains NaN or Inf", ErrInvalidEmbedding)
		}
	}
	return nil
}

// cosineSimilarity reports false when the vectors cannot be compared.
func cosineSimilarity(a, b []float32) (float64, bool) {
	if len(a) == 0 || len(a) != len(b) {
		return 0, false
	}
	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0, false
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), true
}
