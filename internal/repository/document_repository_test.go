package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edurag/internal/model"
)

func TestDocumentRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	docs := NewDocumentRepository(db)
	chunks := NewChunkRepository(db, 0)

	a := createDocument(t, docs, 1, "Cells")
	b := createDocument(t, docs, 2, "Atoms")
	assert.True(t, a.IsActive)
	assert.Equal(t, model.DocumentStatusPending, a.Status)

	got, err := docs.GetByID(ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Cells content.", got.Content)

	missing, err := docs.GetByID(ctx, 9999)
	require.NoError(t, err)
	assert.Nil(t, missing)

	list, err := docs.ListByUserID(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Empty(t, list[0].Content, "list omits content")

	all, err := docs.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, docs.SetActive(ctx, a.ID, false))
	require.NoError(t, docs.UpdateProcessingState(ctx, a.ID, model.DocumentStatusPartial, 3, "chunk 1 failed"))
	got, err = docs.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	assert.Equal(t, model.DocumentStatusPartial, got.Status)
	assert.Equal(t, 3, got.ChunkCount)
	assert.Equal(t, "chunk 1 failed", got.LastError)

	got.Title = "Cell biology"
	require.NoError(t, docs.Update(ctx, got))
	got, err = docs.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Cell biology", got.Title)

	require.NoError(t, chunks.SaveChunks(ctx, []model.DocumentChunk{chunk(a.ID, 0, "x"), chunk(a.ID, 1, "y")}))
	require.NoError(t, chunks.SaveChunks(ctx, []model.DocumentChunk{chunk(b.ID, 0, "z")}))

	require.NoError(t, docs.Delete(ctx, a.ID))
	got, err = docs.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	left, err := chunks.ListByDocumentID(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, left, "deleting a document removes its chunks")

	other, err := chunks.ListByDocumentID(ctx, b.ID)
	require.NoError(t, err)
	assert.Len(t, other, 1)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab", truncate("abc", 2))
}
