package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"edurag/internal/app"
	"edurag/internal/transport/http/response"
)

type DocumentHandler struct {
	docs *app.DocumentService
}

type CreateDocumentRequest struct {
	Title    string `json:"title" binding:"required,max=255"`
	Content  string `json:"content" binding:"required"`
	Category string `json:"category" binding:"max=100"`
}

type UpdateDocumentRequest struct {
	Title    *string `json:"title" binding:"omitempty,max=255"`
	Content  *string `json:"content"`
	Category *string `json:"category" binding:"omitempty,max=100"`
}

func NewDocumentHandler(docs *app.DocumentService) *DocumentHandler {
	return &DocumentHandler{docs: docs}
}

func (h *DocumentHandler) List(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	docs, err := h.docs.List(c.Request.Context(), actor)
	if err != nil {
		writeServiceError(c, err, "list documents failed")
		return
	}
	response.OK(c, docs)
}

func (h *DocumentHandler) ListAll(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	docs, err := h.docs.ListAll(c.Request.Context(), actor)
	if err != nil {
		writeServiceError(c, err, "list documents failed")
		return
	}
	response.OK(c, docs)
}

func (h *DocumentHandler) Create(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	var req CreateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	result, err := h.docs.Create(c.Request.Context(), actor, app.CreateDocumentInput{
		Title:    req.Title,
		Content:  req.Content,
		Category: req.Category,
	})
	if err != nil {
		writeServiceError(c, err, "create document failed")
		return
	}
	response.OK(c, result)
}

func (h *DocumentHandler) Upload(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing file")
		return
	}
	f, err := file.Open()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "failed to read file")
		return
	}
	defer f.Close()

	result, err := h.docs.Upload(c.Request.Context(), actor, app.UploadInput{
		Title:       c.PostForm("title"),
		Category:    c.PostForm("category"),
		FileName:    file.Filename,
		ContentType: file.Header.Get("Content-Type"),
		Size:        file.Size,
		Body:        f,
	})
	if err != nil {
		writeServiceError(c, err, "upload document failed")
		return
	}
	response.OK(c, result)
}

func (h *DocumentHandler) Get(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	doc, err := h.docs.Get(c.Request.Context(), actor, id)
	if err != nil {
		writeServiceError(c, err, "get document failed")
		return
	}
	response.OK(c, doc)
}

func (h *DocumentHandler) Update(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req UpdateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	result, err := h.docs.Update(c.Request.Context(), actor, id, app.UpdateDocumentInput{
		Title:    req.Title,
		Content:  req.Content,
		Category: req.Category,
	})
	if err != nil {
		writeServiceError(c, err, "update document failed")
		return
	}
	response.OK(c, result)
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	if err := h.docs.Delete(c.Request.Context(), actor, id); err != nil {
		writeServiceError(c, err, "delete document failed")
		return
	}
	response.OK(c, gin.H{"id": id})
}

func (h *DocumentHandler) ToggleActive(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	doc, err := h.docs.ToggleActive(c.Request.Context(), actor, id)
	if err != nil {
		writeServiceError(c, err, "toggle document failed")
		return
	}
	response.OK(c, gin.H{"id": doc.ID, "is_active": doc.IsActive})
}

func (h *DocumentHandler) Reprocess(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	result, err := h.docs.Reprocess(c.Request.Context(), actor, id)
	if err != nil {
		writeServiceError(c, err, "reprocess document failed")
		return
	}
	response.OK(c, result)
}

func (h *DocumentHandler) ListChunks(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	chunks, err := h.docs.ListChunks(c.Request.Context(), actor, id)
	if err != nil {
		writeServiceError(c, err, "list chunks failed")
		return
	}
	response.OK(c, chunks)
}
