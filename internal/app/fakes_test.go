package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"edurag/internal/ai"
	"edurag/internal/model"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type stubProvider struct {
	mu          sync.Mutex
	dims        int
	failOn      string
	wrongDimsOn string
	delay       time.Duration
	slowOn      string
	calls       []string
	inFlight    int
	maxInFlight int
}

func (p *stubProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	p.mu.Lock()
	p.calls = append(p.calls, text)
	p.inFlight++
	p.maxInFlight = max(p.maxInFlight, p.inFlight)
	failOn, wrongDimsOn := p.failOn, p.wrongDimsOn
	delay := p.delay
	if p.slowOn != "" && !strings.Contains(text, p.slowOn) {
		delay = 0
	}
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		p.inFlight--
		p.mu.Unlock()
	}()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if failOn != "" && strings.Contains(text, failOn) {
		return nil, &ai.BackendError{Backend: "stub", StatusCode: 500, Message: "model crashed"}
	}
	dims := p.dims
	if wrongDimsOn != "" && strings.Contains(text, wrongDimsOn) {
		dims++
	}
	vec := make([]float32, dims)
	for i := range vec {
		vec[i] = 1
	}
	vec[0] = float32(len(text))
	return vec, nil
}

func (p *stubProvider) Name() string    { return "stub" }
func (p *stubProvider) Model() string   { return "stub-embed" }
func (p *stubProvider) Dimensions() int { return p.dims }

func (p *stubProvider) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

type memChunkStore struct {
	mu        sync.Mutex
	chunks    map[uint][]model.DocumentChunk
	ops       []string
	deleteErr error
	saveErr   error

	ranked        []model.SimilarityResult
	rankErr       error
	lastQuery     []float32
	lastThreshold float64
	lastLimit     int
	lastOwner     *uint
}

func newMemChunkStore() *memChunkStore {
	return &memChunkStore{chunks: make(map[uint][]model.DocumentChunk)}
}

func (s *memChunkStore) SaveChunks(_ context.Context, chunks []model.DocumentChunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops = append(s.ops, "save")
	if s.saveErr != nil {
		return s.saveErr
	}
	for _, c := range chunks {
		s.chunks[c.DocumentID] = append(s.chunks[c.DocumentID], c)
	}
	return nil
}

func (s *memChunkStore) DeleteChunksForDocument(_ context.Context, documentID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops = append(s.ops, "delete")
	if s.deleteErr != nil {
		return s.deleteErr
	}
	delete(s.chunks, documentID)
	return nil
}

func (s *memChunkStore) ListByDocumentID(_ context.Context, documentID uint) ([]model.DocumentChunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]model.DocumentChunk(nil), s.chunks[documentID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].ChunkIndex < out[j].ChunkIndex })
	return out, nil
}

func (s *memChunkStore) RankBySimilarity(_ context.Context, query []float32, threshold float64, maxResults int, ownerID *uint) ([]model.SimilarityResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastQuery = query
	s.lastThreshold = threshold
	s.lastLimit = maxResults
	s.lastOwner = ownerID
	if s.rankErr != nil {
		return nil, s.rankErr
	}
	return append([]model.SimilarityResult{}, s.ranked...), nil
}

func (s *memChunkStore) Ops() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.ops...)
}

type memDocStore struct {
	mu        sync.Mutex
	nextID    uint
	docs      map[uint]model.Document
	createErr error

	// chunks, when set, loses a document's chunks on Delete like the
	// transactional repository delete.
	chunks      *memChunkStore
	afterGet    func(id uint)
	afterUpdate func(doc model.Document)
}

func newMemDocStore() *memDocStore {
	return &memDocStore{docs: make(map[uint]model.Document)}
}

func (s *memDocStore) Create(_ context.Context, doc *model.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	s.nextID++
	doc.ID = s.nextID
	doc.CreatedAt = time.Now()
	doc.UpdatedAt = doc.CreatedAt
	s.docs[doc.ID] = *doc
	return nil
}

func (s *memDocStore) GetByID(_ context.Context, id uint) (*model.Document, error) {
	s.mu.Lock()
	doc, ok := s.docs[id]
	hook := s.afterGet
	s.mu.Unlock()
	if hook != nil {
		hook(id)
	}
	if !ok {
		return nil, nil
	}
	return &doc, nil
}

func (s *memDocStore) ListByUserID(_ context.Context, userID uint) ([]model.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Document
	for _, d := range s.docs {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *memDocStore) ListAll(_ context.Context) ([]model.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Document, 0, len(s.docs))
	for _, d := range s.docs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *memDocStore) Update(_ context.Context, doc *model.Document) error {
	s.mu.Lock()
	s.docs[doc.ID] = *doc
	hook := s.afterUpdate
	s.mu.Unlock()
	if hook != nil {
		hook(*doc)
	}
	return nil
}

func (s *memDocStore) SetActive(_ context.Context, id uint, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[id]
	if !ok {
		return errors.New("missing document")
	}
	d.IsActive = active
	s.docs[id] = d
	return nil
}

func (s *memDocStore) UpdateProcessingState(_ context.Context, id uint, status model.DocumentStatus, chunkCount int, lastErr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[id]
	if !ok {
		return errors.New("missing document")
	}
	d.Status = status
	d.ChunkCount = chunkCount
	d.LastError = lastErr
	s.docs[id] = d
	return nil
}

func (s *memDocStore) Delete(ctx context.Context, id uint) error {
	s.mu.Lock()
	delete(s.docs, id)
	chunks := s.chunks
	s.mu.Unlock()
	if chunks != nil {
		return chunks.DeleteChunksForDocument(ctx, id)
	}
	return nil
}

type recordingPublisher struct {
	mu   sync.Mutex
	jobs []model.ProcessJob
	err  error
}

func (p *recordingPublisher) PublishProcessJob(_ context.Context, job model.ProcessJob) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.jobs = append(p.jobs, job)
	return nil
}
