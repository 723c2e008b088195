package model

import "time"

type DocumentStatus string

const (
	DocumentStatusPending    DocumentStatus = "pending"
	DocumentStatusQueued     DocumentStatus = "queued"
	DocumentStatusProcessing DocumentStatus = "processing"
	DocumentStatusProcessed  DocumentStatus = "processed"
	DocumentStatusPartial    DocumentStatus = "partial"
	DocumentStatusFailed     DocumentStatus = "failed"
)

// Document is an uploaded text source. Editing its content replaces all of its chunks.
type Document struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	UserID     uint           `gorm:"not null;index" json:"user_id"`
	Title      string         `gorm:"size:255;not null" json:"title"`
	Content    string         `gorm:"not null" json:"content,omitempty"`
	Category   string         `gorm:"size:100" json:"category,omitempty"`
	FileName   string         `gorm:"size:255" json:"file_name,omitempty"`
	FileType   string         `gorm:"size:50" json:"file_type"`
	FileSize   int64          `json:"file_size"`
	IsActive   bool           `gorm:"not null;default:true;index" json:"is_active"`
	Status     DocumentStatus `gorm:"size:20;not null;default:'pending'" json:"status"`
	ChunkCount int            `gorm:"not null;default:0" json:"chunk_count"`
	LastError  string         `gorm:"size:1024" json:"last_error,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// ChunkMetadata returns the metadata every chunk of the document starts from.
func (d *Document) ChunkMetadata() ChunkMetadata {
	return ChunkMetadata{
		Title:      d.Title,
		Category:   d.Category,
		FileName:   d.FileName,
		DocumentID: d.ID,
	}
}
