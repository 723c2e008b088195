package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"edurag/internal/ai"
	"edurag/internal/app"
	"edurag/internal/pkg/jwtutil"
	"edurag/internal/transport/http/middleware"
	"edurag/internal/transport/http/response"
)

func actorFromContext(c *gin.Context) (app.Actor, bool) {
	userIDAny, exists := c.Get(middleware.ContextUserIDKey)
	if !exists {
		return app.Actor{}, false
	}
	userID, ok := userIDAny.(uint)
	if !ok || userID == 0 {
		return app.Actor{}, false
	}
	return app.Actor{
		UserID: userID,
		Admin:  c.GetString(middleware.ContextRoleKey) == jwtutil.RoleAdmin,
	}, true
}

func mustActor(c *gin.Context) (app.Actor, bool) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
	}
	return actor, ok
}

func parseIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid document id")
		return 0, false
	}
	return uint(id), true
}

// writeServiceError maps service errors to the response envelope. fallback is
// shown for unexpected failures.
func writeServiceError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, app.ErrInvalidInput):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, app.ErrDocumentNotFound):
		response.Error(c, http.StatusNotFound, response.CodeDocumentNotFound, "document not found or access denied")
	case errors.Is(err, app.ErrForbidden):
		response.Error(c, http.StatusForbidden, response.CodeForbidden, err.Error())
	case errors.Is(err, app.ErrUnsupportedFileType):
		response.Error(c, http.StatusUnsupportedMediaType, response.CodeUnsupportedFileType, err.Error())
	case errors.Is(err, app.ErrFileTooLarge):
		response.Error(c, http.StatusRequestEntityTooLarge, response.CodeFileTooLarge, "file too large")
	case errors.Is(err, ai.ErrEmbeddingBackend):
		response.Error(c, http.StatusServiceUnavailable, response.CodeEmbeddingUnavailable, "embedding service unavailable")
	default:
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, fallback)
	}
}
