package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edurag/internal/model"
)

func TestNew(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		c := New()
		assert.Equal(t, DefaultChunkSize, c.ChunkSize())
		assert.Equal(t, DefaultChunkOverlap, c.Overlap())
	})

	t.Run("invalid options are ignored", func(t *testing.T) {
		c := New(WithChunkSize(0), WithOverlap(-1))
		assert.Equal(t, DefaultChunkSize, c.ChunkSize())
		assert.Equal(t, DefaultChunkOverlap, c.Overlap())
	})

	t.Run("overlap not smaller than size is clamped", func(t *testing.T) {
		c := New(WithChunkSize(100), WithOverlap(100))
		assert.Equal(t, 25, c.Overlap())
	})
}

func TestChunk_FourSentences(t *testing.T) {
	text := "Sentence one. Sentence two. Sentence three. Sentence four."
	c := New(WithChunkSize(20), WithOverlap(5))

	drafts := c.Chunk(text, model.ChunkMetadata{Title: "doc"})

	require.Greater(t, len(drafts), 1)
	for i, d := range drafts {
		assert.Equal(t, i, d.Index)
		assert.LessOrEqual(t, d.Size, 25)
		assert.Equal(t, utf8.RuneCountInString(d.Text), d.Size)
		assert.True(t, strings.HasSuffix(d.Text, "."), "chunk %d should end on a sentence boundary: %q", i, d.Text)
		assert.Equal(t, "doc", d.Metadata.Title)
		assert.Equal(t, CountSentences(d.Text), d.Metadata.SentenceCount)
	}
	assert.Equal(t, []string{
		"Sentence one.",
		"one. Sentence two.",
		"two. Sentence three.",
		"hree. Sentence four.",
	}, texts(drafts))
}

func TestChunk_Empty(t *testing.T) {
	c := New()
	assert.Empty(t, c.Chunk("", model.ChunkMetadata{}))
	assert.Empty(t, c.Chunk("   \n ", model.ChunkMetadata{}))
}

func TestChunk_SingleShortText(t *testing.T) {
	drafts := New().Chunk("Only one sentence here", model.ChunkMetadata{})
	require.Len(t, drafts, 1)
	assert.Equal(t, "Only one sentence here", drafts[0].Text)
	assert.Equal(t, 1, drafts[0].Metadata.SentenceCount)
}

func TestChunk_OversizedSentenceIsKeptWhole(t *testing.T) {
	long := strings.Repeat("word ", 60) + "end."
	text := "Short start. " + long + " Short end."
	c := New(WithChunkSize(50), WithOverlap(10))

	drafts := c.Chunk(text, model.ChunkMetadata{})

	var found bool
	for _, d := range drafts {
		if strings.Contains(d.Text, strings.TrimSpace(long)) {
			found = true
			assert.Greater(t, d.Size, 50)
		}
	}
	assert.True(t, found, "long sentence must not be split")
}

func TestChunk_Properties(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 200; i++ {
		b.WriteString("This is sentence number ")
		b.WriteString(strings.Repeat("x", i%17))
		switch i % 3 {
		case 0:
			b.WriteString(". ")
		case 1:
			b.WriteString("! ")
		default:
			b.WriteString("? ")
		}
	}
	text := b.String()
	const size, overlap = 300, 60
	c := New(WithChunkSize(size), WithOverlap(overlap))

	drafts := c.Chunk(text, model.ChunkMetadata{})
	require.NotEmpty(t, drafts)

	t.Run("indices are contiguous", func(t *testing.T) {
		for i, d := range drafts {
			assert.Equal(t, i, d.Index)
		}
	})

	t.Run("no chunk exceeds the budget when every sentence fits", func(t *testing.T) {
		for _, d := range drafts {
			assert.LessOrEqual(t, d.Size, size)
		}
	})

	t.Run("every sentence is covered", func(t *testing.T) {
		all := strings.Join(texts(drafts), "\n")
		for _, s := range SplitSentences(text) {
			assert.Contains(t, all, s)
		}
	})

	t.Run("next chunk starts with a bounded overlap tail", func(t *testing.T) {
		for i := 1; i < len(drafts); i++ {
			tail := overlapTail(drafts[i-1].Text, overlap)
			assert.True(t, strings.HasPrefix(drafts[i].Text, tail))
			assert.LessOrEqual(t, utf8.RuneCountInString(tail), overlap)
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		assert.Equal(t, texts(drafts), texts(c.Chunk(text, model.ChunkMetadata{})))
	})
}

func TestChunk_MetadataIsCopied(t *testing.T) {
	meta := model.ChunkMetadata{Extra: map[string]string{"source": "upload"}}
	drafts := New(WithChunkSize(10), WithOverlap(0)).Chunk("Alpha one. Beta two. Gamma three.", meta)
	require.Len(t, drafts, 3)

	drafts[0].Metadata.Extra["source"] = "changed"
	assert.Equal(t, "upload", drafts[1].Metadata.Extra["source"])
	assert.Equal(t, "upload", meta.Extra["source"])
}

func TestOverlapTail(t *testing.T) {
	tests := []struct {
		name string
		text string
		n    int
		want string
	}{
		{"disabled", "Alpha. Beta.", 0, ""},
		{"shorter than overlap", "Alpha.", 10, "Alpha."},
		{"snaps to sentence start", "Alpha beta. Gamma delta.", 14, "Gamma delta."},
		{"no boundary inside tail", "Alpha beta gamma.", 6, "gamma."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, overlapTail(tt.text, tt.n))
		})
	}
}

func texts(drafts []Draft) []string {
	out := make([]string, len(drafts))
	for i, d := range drafts {
		out[i] = d.Text
	}
	return out
}
