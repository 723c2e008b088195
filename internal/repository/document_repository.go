package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"edurag/internal/model"
)

type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Create(ctx context.Context, doc *model.Document) error {
	if err := r.db.WithContext(ctx).Create(doc).Error; err != nil {
		return storeErr("create document", err)
	}
	return nil
}

// GetByID returns nil, nil when the document does not exist.
func (r *DocumentRepository) GetByID(ctx context.Context, id uint) (*model.Document, error) {
	var doc model.Document
	if err := r.db.WithContext(ctx).First(&doc, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, storeErr("get document", err)
	}
	return &doc, nil
}

// ListByUserID lists a user's documents, newest first, without their content.
func (r *DocumentRepository) ListByUserID(ctx context.Context, userID uint) ([]model.Document, error) {
	var list []model.Document
	if err := r.db.WithContext(ctx).Omit("content").
		Where("user_id = ?", userID).
		Order("created_at DESC").Order("id DESC").
		Find(&list).Error; err != nil {
		return nil, storeErr("list documents", err)
	}
	return list, nil
}

func (r *DocumentRepository) ListAll(ctx context.Context) ([]model.Document, error) {
	var list []model.Document
	if err := r.db.WithContext(ctx).Omit("content").
		Order("created_at DESC").Order("id DESC").
		Find(&list).Error; err != nil {
		return nil, storeErr("list all documents", err)
	}
	return list, nil
}

func (r *DocumentRepository) Update(ctx context.Context, doc *model.Document) error {
	if err := r.db.WithContext(ctx).Save(doc).Error; err != nil {
		return storeErr("update document", err)
	}
	return nil
}

func (r *DocumentRepository) SetActive(ctx context.Context, id uint, active bool) error {
	if err := r.db.WithContext(ctx).Model(&model.Document{}).
		Where("id = ?", id).
		Update("is_active", active).Error; err != nil {
		return storeErr("toggle document", err)
	}
	return nil
}

// UpdateProcessingState records the outcome of the last chunking run.
func (r *DocumentRepository) UpdateProcessingState(ctx context.Context, id uint, status model.DocumentStatus, chunkCount int, lastErr string) error {
	if err := r.db.WithContext(ctx).Model(&model.Document{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":      status,
			"chunk_count": chunkCount,
			"last_error":  truncate(lastErr, 1024),
		}).Error; err != nil {
		return storeErr("update document status", err)
	}
	return nil
}

// Delete removes the document and all of its chunks in one transaction.
func (r *DocumentRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", id).Delete(&model.DocumentChunk{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Document{}, id).Error
	})
	if err != nil {
		return storeErr("delete document", err)
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
