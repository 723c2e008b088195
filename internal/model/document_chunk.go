package model

import (
	"time"

	"gorm.io/datatypes"
)

// ChunkMetadata is persisted as JSON next to each chunk.
// Extra carries keys that have no dedicated field yet.
type ChunkMetadata struct {
	Title         string            `json:"title,omitempty"`
	Category      string            `json:"category,omitempty"`
	FileName      string            `json:"file_name,omitempty"`
	DocumentID    uint              `json:"document_id,omitempty"`
	SentenceCount int               `json:"sentence_count"`
	Extra         map[string]string `json:"extra,omitempty"`
}

// DocumentChunk is one overlap-extended slice of a document.
// A chunk without an embedding is stored but never returned by similarity search.
type DocumentChunk struct {
	ID         uint                              `gorm:"primaryKey" json:"id"`
	DocumentID uint                              `gorm:"not null;uniqueIndex:idx_chunk_document_index,priority:1" json:"document_id"`
	ChunkIndex int                               `gorm:"not null;uniqueIndex:idx_chunk_document_index,priority:2" json:"chunk_index"`
	ChunkText  string                            `gorm:"not null" json:"chunk_text"`
	ChunkSize  int                               `gorm:"not null" json:"chunk_size"`
	Embedding  Embedding                         `json:"-"`
	Metadata   datatypes.JSONType[ChunkMetadata] `json:"metadata"`
	CreatedAt  time.Time                         `json:"created_at"`
}

func (DocumentChunk) TableName() string {
	return "document_chunks"
}

func (c *DocumentChunk) HasEmbedding() bool {
	return len(c.Embedding) > 0
}

// SimilarityResult is a chunk joined with its document and scored against a query.
type SimilarityResult struct {
	ID               uint    `json:"id"`
	DocumentID       uint    `json:"document_id"`
	ChunkIndex       int     `json:"chunk_index"`
	ChunkText        string  `json:"chunk_text"`
	Similarity       float64 `json:"similarity"`
	DocumentTitle    string  `json:"document_title"`
	DocumentCategory string  `json:"document_category"`
}
