package handler

import (
	"net/http"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"edurag/internal/app"
	"edurag/internal/model"
	"edurag/internal/transport/http/response"
)

const previewRunes = 200

type SearchHandler struct {
	search           *app.SearchService
	defaultThreshold float64
	debugThreshold   float64
	maxResults       int
}

type SearchRequest struct {
	Query        string   `json:"query" binding:"required"`
	MaxResults   int      `json:"max_results" binding:"min=0,max=100"`
	Threshold    *float64 `json:"threshold" binding:"omitempty,min=0,max=1"`
	AllDocuments bool     `json:"all_documents"`
}

type debugChunk struct {
	ID               uint    `json:"id"`
	DocumentID       uint    `json:"document_id"`
	ChunkIndex       int     `json:"chunk_index"`
	DocumentTitle    string  `json:"document_title"`
	DocumentCategory string  `json:"document_category"`
	Similarity       float64 `json:"similarity"`
	Preview          string  `json:"preview"`
	FullText         string  `json:"full_text"`
}

func NewSearchHandler(search *app.SearchService, defaultThreshold, debugThreshold float64, maxResults int) *SearchHandler {
	return &SearchHandler{
		search:           search,
		defaultThreshold: defaultThreshold,
		debugThreshold:   debugThreshold,
		maxResults:       maxResults,
	}
}

// Search ranks the caller's chunks, or every active document when
// all_documents is set.
func (h *SearchHandler) Search(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	in := h.input(req, h.defaultThreshold)
	if !req.AllDocuments {
		in.OwnerID = &actor.UserID
	}
	results, err := h.search.Search(c.Request.Context(), in)
	if err != nil {
		writeServiceError(c, err, "search failed")
		return
	}
	response.OK(c, gin.H{
		"query":     req.Query,
		"threshold": in.Threshold,
		"count":     len(results),
		"results":   results,
	})
}

// DebugSearch searches every active document and returns previews next to the
// full chunk text.
func (h *SearchHandler) DebugSearch(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	in := h.input(req, h.debugThreshold)
	results, err := h.search.Search(c.Request.Context(), in)
	if err != nil {
		writeServiceError(c, err, "search failed")
		return
	}
	chunks := make([]debugChunk, len(results))
	for i, r := range results {
		chunks[i] = toDebugChunk(r)
	}
	response.OK(c, gin.H{
		"query":     req.Query,
		"threshold": in.Threshold,
		"count":     len(chunks),
		"chunks":    chunks,
	})
}

func (h *SearchHandler) input(req SearchRequest, threshold float64) app.SearchInput {
	if req.Threshold != nil {
		threshold = *req.Threshold
	}
	maxResults := req.MaxResults
	if maxResults == 0 {
		maxResults = h.maxResults
	}
	return app.SearchInput{
		Query:      req.Query,
		MaxResults: maxResults,
		Threshold:  threshold,
	}
}

func toDebugChunk(r model.SimilarityResult) debugChunk {
	preview := r.ChunkText
	if utf8.RuneCountInString(preview) > previewRunes {
		preview = string([]rune(preview)[:previewRunes]) + "..."
	}
	return debugChunk{
		ID:               r.ID,
		DocumentID:       r.DocumentID,
		ChunkIndex:       r.ChunkIndex,
		DocumentTitle:    r.DocumentTitle,
		DocumentCategory: r.DocumentCategory,
		Similarity:       r.Similarity,
		Preview:          preview,
		FullText:         r.ChunkText,
	}
}
