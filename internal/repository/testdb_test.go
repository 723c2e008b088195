package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"edurag/internal/model"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "rag.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func createDocument(t *testing.T, repo *DocumentRepository, userID uint, title string) *model.Document {
	t.Helper()
	doc := &model.Document{UserID: userID, Title: title, Content: title + " content.", Category: "math", IsActive: true, FileType: "text"}
	require.NoError(t, repo.Create(context.Background(), doc))
	return doc
}
