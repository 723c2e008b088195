package repository

import (
	"fmt"

	"gorm.io/gorm"

	"edurag/internal/model"
)

// Migrate creates the document tables. On Postgres it enables pgvector first.
func Migrate(db *gorm.DB) error {
	if db.Dialector.Name() == "postgres" {
		if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
			return fmt.Errorf("enable pgvector extension failed: %w", err)
		}
	}
	if err := db.AutoMigrate(&model.Document{}, &model.DocumentChunk{}); err != nil {
		return fmt.Errorf("auto migrate tables failed: %w", err)
	}
	return nil
}
