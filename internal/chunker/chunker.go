package chunker

import (
	"maps"
	"regexp"
	"strings"
	"unicode/utf8"

	"edurag/internal/model"
)

// DefaultChunkSize is the default chunk budget in characters.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of characters carried into the next chunk.
const DefaultChunkOverlap = 200

// overlapBoundary finds the first sentence start inside an overlap tail.
var overlapBoundary = regexp.MustCompile(`[.!?]\s+(.+)$`)

// Draft is a chunk that has not been attached to a document yet.
type Draft struct {
	Index    int
	Text     string
	Size     int
	Metadata model.ChunkMetadata
}

// Chunker accumulates whole sentences into chunks of roughly ChunkSize characters.
// A single sentence longer than the budget becomes its own oversized chunk.
type Chunker struct {
	chunkSize int
	overlap   int
}

// Option configures a Chunker.
type Option func(*Chunker)

// WithChunkSize sets the chunk budget in characters.
func WithChunkSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.chunkSize = size
		}
	}
}

// WithOverlap sets how many trailing characters seed the next chunk. Zero disables overlap.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

func New(opts ...Option) *Chunker {
	c := &Chunker{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.overlap >= c.chunkSize {
		c.overlap = c.chunkSize / 4
	}
	return c
}

func (c *Chunker) ChunkSize() int { return c.chunkSize }

func (c *Chunker) Overlap() int { return c.overlap }

// Chunk splits text into drafts indexed from 0 in text order. Each draft carries a
// copy of meta with SentenceCount filled in. Blank text yields no drafts.
func (c *Chunker) Chunk(text string, meta model.ChunkMetadata) []Draft {
	var (
		drafts  []Draft
		current string
	)
	for _, sentence := range SplitSentences(text) {
		candidate := joinSentence(current, sentence)
		if current != "" && utf8.RuneCountInString(candidate) > c.chunkSize {
			drafts = appendDraft(drafts, current, meta)
			current = joinSentence(overlapTail(current, c.overlap), sentence)
			continue
		}
		current = candidate
	}
	return appendDraft(drafts, current, meta)
}

func appendDraft(drafts []Draft, buffer string, meta model.ChunkMetadata) []Draft {
	text := strings.TrimSpace(buffer)
	if text == "" {
		return drafts
	}
	meta.Extra = maps.Clone(meta.Extra)
	meta.SentenceCount = CountSentences(text)
	return append(drafts, Draft{
		Index:    len(drafts),
		Text:     text,
		Size:     utf8.RuneCountInString(text),
		Metadata: meta,
	})
}

func joinSentence(buffer, sentence string) string {
	if buffer == "" {
		return sentence
	}
	return buffer + " " + sentence
}

// overlapTail returns the last n characters of text, moved forward to the first
// sentence start inside them when there is one.
func overlapTail(text string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= n {
		return strings.TrimSpace(text)
	}
	tail := string(runes[len(runes)-n:])
	if m := overlapBoundary.FindStringSubmatch(tail); m != nil {
		tail = m[1]
	}
	return strings.TrimSpace(tail)
}
