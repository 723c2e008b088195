package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"edurag/internal/model"
)

const DefaultMaxUploadBytes int64 = 10 << 20

// DocumentStore persists document records.
type DocumentStore interface {
	Create(ctx context.Context, doc *model.Document) error
	GetByID(ctx context.Context, id uint) (*model.Document, error)
	ListByUserID(ctx context.Context, userID uint) ([]model.Document, error)
	ListAll(ctx context.Context) ([]model.Document, error)
	Update(ctx context.Context, doc *model.Document) error
	SetActive(ctx context.Context, id uint, active bool) error
	UpdateProcessingState(ctx context.Context, id uint, status model.DocumentStatus, chunkCount int, lastErr string) error
	Delete(ctx context.Context, id uint) error
}

// JobPublisher hands processing off to a background worker.
type JobPublisher interface {
	PublishProcessJob(ctx context.Context, job model.ProcessJob) error
}

// Actor is the authenticated caller. Admins may read and modify every document.
type Actor struct {
	UserID uint
	Admin  bool
}

type CreateDocumentInput struct {
	Title    string
	Content  string
	Category string
	FileName string
	FileType string
	FileSize int64
}

type UploadInput struct {
	Title       string
	Category    string
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// UpdateDocumentInput replaces the non-nil fields.
type UpdateDocumentInput struct {
	Title    *string
	Content  *string
	Category *string
}

// IngestResult is returned by every call that (re)processes a document.
// Warning is set when the document was saved but processing did not finish.
type IngestResult struct {
	Document   *model.Document `json:"document"`
	Processing *ProcessResult  `json:"processing,omitempty"`
	Queued     bool            `json:"queued"`
	Warning    string          `json:"warning,omitempty"`
}

type DocumentService struct {
	docs           DocumentStore
	chunks         ChunkStore
	pipeline       *Pipeline
	publisher      JobPublisher
	maxUploadBytes int64
	logger         *slog.Logger
}

type DocumentServiceOption func(*DocumentService)

// WithJobPublisher makes processing asynchronous.
func WithJobPublisher(p JobPublisher) DocumentServiceOption {
	return func(s *DocumentService) { s.publisher = p }
}

func WithMaxUploadBytes(n int64) DocumentServiceOption {
	return func(s *DocumentService) {
		if n > 0 {
			s.maxUploadBytes = n
		}
	}
}

func NewDocumentService(docs DocumentStore, chunks ChunkStore, pipeline *Pipeline, logger *slog.Logger, opts ...DocumentServiceOption) *DocumentService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &DocumentService{
		docs:           docs,
		chunks:         chunks,
		pipeline:       pipeline,
		maxUploadBytes: DefaultMaxUploadBytes,
		logger:         logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create saves a text document and processes it.
func (s *DocumentService) Create(ctx context.Context, actor Actor, in CreateDocumentInput) (*IngestResult, error) {
	if actor.UserID == 0 {
		return nil, ErrInvalidInput
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if strings.TrimSpace(in.Content) == "" {
		return nil, fmt.Errorf("%w: content is required", ErrInvalidInput)
	}
	fileType := in.FileType
	if fileType == "" {
		fileType = "text"
	}
	size := in.FileSize
	if size <= 0 {
		size = int64(len(in.Content))
	}

	doc := &model.Document{
		UserID:   actor.UserID,
		Title:    title,
		Content:  in.Content,
		Category: strings.TrimSpace(in.Category),
		FileName: in.FileName,
		FileType: fileType,
		FileSize: size,
		IsActive: true,
		Status:   model.DocumentStatusPending,
	}
	if err := s.docs.Create(ctx, doc); err != nil {
		return nil, err
	}
	s.logger.Info("document created", "document_id", doc.ID, "user_id", actor.UserID, "size", size)
	return s.process(ctx, doc), nil
}

// Upload accepts plain text and markdown files.
func (s *DocumentService) Upload(ctx context.Context, actor Actor, in UploadInput) (*IngestResult, error) {
	if in.Body == nil {
		return nil, fmt.Errorf("%w: file is required", ErrInvalidInput)
	}
	fileType, err := detectFileType(in.FileName, in.ContentType)
	if err != nil {
		return nil, err
	}
	if in.Size > s.maxUploadBytes {
		return nil, ErrFileTooLarge
	}
	data, err := io.ReadAll(io.LimitReader(in.Body, s.maxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload failed: %w", err)
	}
	if int64(len(data)) > s.maxUploadBytes {
		return nil, ErrFileTooLarge
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: file is not valid UTF-8 text", ErrInvalidInput)
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		base := filepath.Base(in.FileName)
		title = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return s.Create(ctx, actor, CreateDocumentInput{
		Title:    title,
		Content:  string(data),
		Category: in.Category,
		FileName: filepath.Base(in.FileName),
		FileType: fileType,
		FileSize: int64(len(data)),
	})
}

// Get returns the document when actor may see it. Documents of other users
// are reported as not found.
func (s *DocumentService) Get(ctx context.Context, actor Actor, id uint) (*model.Document, error) {
	if id == 0 {
		return nil, ErrInvalidInput
	}
	doc, err := s.docs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil || (!actor.Admin && doc.UserID != actor.UserID) {
		return nil, ErrDocumentNotFound
	}
	return doc, nil
}

func (s *DocumentService) List(ctx context.Context, actor Actor) ([]model.Document, error) {
	if actor.UserID == 0 {
		return nil, ErrInvalidInput
	}
	return s.docs.ListByUserID(ctx, actor.UserID)
}

// ListAll returns every document regardless of owner. Admin only.
func (s *DocumentService) ListAll(ctx context.Context, actor Actor) ([]model.Document, error) {
	if !actor.Admin {
		return nil, ErrForbidden
	}
	return s.docs.ListAll(ctx)
}

// Update applies the changes and rebuilds every chunk of the document.
func (s *DocumentService) Update(ctx context.Context, actor Actor, id uint, in UpdateDocumentInput) (*IngestResult, error) {
	doc, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
		}
		doc.Title = title
	}
	if in.Content != nil {
		if strings.TrimSpace(*in.Content) == "" {
			return nil, fmt.Errorf("%w: content is required", ErrInvalidInput)
		}
		doc.Content = *in.Content
		doc.FileSize = int64(len(*in.Content))
	}
	if in.Category != nil {
		doc.Category = strings.TrimSpace(*in.Category)
	}
	if err := s.docs.Update(ctx, doc); err != nil {
		return nil, err
	}
	return s.process(ctx, doc), nil
}

// Delete removes the document and all of its chunks.
func (s *DocumentService) Delete(ctx context.Context, actor Actor, id uint) error {
	doc, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	err = s.pipeline.WithDocumentLock(doc.ID, func() error {
		return s.docs.Delete(ctx, doc.ID)
	})
	if err != nil {
		return err
	}
	s.logger.Info("document deleted", "document_id", doc.ID, "user_id", actor.UserID)
	return nil
}

// ToggleActive flips whether the document takes part in similarity search.
func (s *DocumentService) ToggleActive(ctx context.Context, actor Actor, id uint) (*model.Document, error) {
	doc, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	doc.IsActive = !doc.IsActive
	if err := s.docs.SetActive(ctx, doc.ID, doc.IsActive); err != nil {
		return nil, err
	}
	return doc, nil
}

// Reprocess rebuilds the chunks of an unchanged document.
func (s *DocumentService) Reprocess(ctx context.Context, actor Actor, id uint) (*IngestResult, error) {
	doc, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return s.process(ctx, doc), nil
}

func (s *DocumentService) ListChunks(ctx context.Context, actor Actor, id uint) ([]model.DocumentChunk, error) {
	doc, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return s.chunks.ListByDocumentID(ctx, doc.ID)
}

// ProcessStored runs the pipeline for a stored document. Used by the worker
// and the CLI.
func (s *DocumentService) ProcessStored(ctx context.Context, documentID uint) (ProcessResult, error) {
	doc, err := s.docs.GetByID(ctx, documentID)
	if err != nil {
		return ProcessResult{}, err
	}
	if doc == nil {
		return ProcessResult{}, ErrDocumentNotFound
	}
	return s.run(ctx, doc)
}

func (s *DocumentService) process(ctx context.Context, doc *model.Document) *IngestResult {
	if s.publisher != nil {
		job := model.ProcessJob{
			JobID:       uuid.NewString(),
			DocumentID:  doc.ID,
			RequestedAt: time.Now().UTC(),
		}
		err := s.publisher.PublishProcessJob(ctx, job)
		if err == nil {
			s.setState(ctx, doc, model.DocumentStatusQueued, doc.ChunkCount, "")
			return &IngestResult{Document: doc, Queued: true}
		}
		s.logger.Warn("publish process job failed, processing inline", "document_id", doc.ID, "error", err)
	}

	result, err := s.run(ctx, doc)
	if err != nil {
		return &IngestResult{
			Document: doc,
			Warning:  "document saved but processing failed: " + err.Error(),
		}
	}
	out := &IngestResult{Document: doc, Processing: &result}
	if result.PartialFailure {
		out.Warning = fmt.Sprintf("%d of %d chunks have no embedding and will not appear in search",
			len(result.FailedChunks), result.ChunksProcessed)
	}
	return out
}

// run reloads the document under its processing lock so that a concurrent
// Delete or Update is either fully visible or not started yet.
func (s *DocumentService) run(ctx context.Context, doc *model.Document) (ProcessResult, error) {
	var result ProcessResult
	err := s.pipeline.WithDocumentLock(doc.ID, func() error {
		current, err := s.docs.GetByID(ctx, doc.ID)
		if err != nil {
			return err
		}
		if current == nil {
			return ErrDocumentNotFound
		}
		*doc = *current

		s.setState(ctx, doc, model.DocumentStatusProcessing, doc.ChunkCount, "")
		result, err = s.pipeline.processLocked(ctx, doc.ID, doc.Content, doc.ChunkMetadata())
		if err != nil {
			s.setState(ctx, doc, model.DocumentStatusFailed, 0, err.Error())
			return err
		}

		status := model.DocumentStatusProcessed
		lastErr := ""
		if result.PartialFailure {
			status = model.DocumentStatusPartial
			lastErr = fmt.Sprintf("chunks without embedding: %v", result.FailedChunks)
		}
		s.setState(ctx, doc, status, result.ChunksProcessed, lastErr)
		return nil
	})
	if err != nil {
		s.logger.Error("process document failed", "document_id", doc.ID, "error", err)
		return ProcessResult{}, err
	}
	return result, nil
}

func (s *DocumentService) setState(ctx context.Context, doc *model.Document, status model.DocumentStatus, chunkCount int, lastErr string) {
	if err := s.docs.UpdateProcessingState(ctx, doc.ID, status, chunkCount, lastErr); err != nil {
		s.logger.Warn("update document state failed", "document_id", doc.ID, "status", status, "error", err)
		return
	}
	doc.Status = status
	doc.ChunkCount = chunkCount
	doc.LastError = lastErr
}

func detectFileType(fileName, contentType string) (string, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	mediaType := ""
	if contentType != "" {
		if mt, _, err := mime.ParseMediaType(contentType); err == nil {
			mediaType = strings.ToLower(mt)
		}
	}
	switch {
	case ext == ".md" || ext == ".markdown" || mediaType == "text/markdown" || mediaType == "text/x-markdown":
		return "markdown", nil
	case ext == ".txt" || mediaType == "text/plain":
		return "text", nil
	case ext == ".pdf" || ext == ".doc" || ext == ".docx" || mediaType == "application/pdf":
		return "", fmt.Errorf("%w: PDF and Word documents are not supported yet", ErrUnsupportedFileType)
	default:
		return "", fmt.Errorf("%w: only .txt and .md files are accepted", ErrUnsupportedFileType)
	}
}
