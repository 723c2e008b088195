package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"edurag/internal/bootstrap"
	"edurag/internal/transport/http/handler"
	"edurag/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.MaxMultipartMemory = app.Config.RAG.MaxUploadBytes

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(app.Registry, promhttp.HandlerOpts{})))

	documentHandler := handler.NewDocumentHandler(app.Documents)
	searchHandler := handler.NewSearchHandler(
		app.Search,
		app.Config.RAG.DefaultThreshold,
		app.Config.RAG.DebugThreshold,
		app.Config.RAG.DefaultMaxResults,
	)

	v1 := router.Group("/api/v1")
	v1.Use(middleware.AuthJWT(app.Config.Auth.JWTSecret))

	documents := v1.Group("/documents")
	documents.GET("", documentHandler.List)
	documents.POST("", documentHandler.Create)
	documents.POST("/upload", documentHandler.Upload)
	documents.GET("/:id", documentHandler.Get)
	documents.PUT("/:id", documentHandler.Update)
	documents.DELETE("/:id", documentHandler.Delete)
	documents.PATCH("/:id/toggle", documentHandler.ToggleActive)
	documents.POST("/:id/reprocess", documentHandler.Reprocess)
	documents.GET("/:id/chunks", documentHandler.ListChunks)

	v1.POST("/search", searchHandler.Search)

	admin := v1.Group("/admin")
	admin.Use(middleware.RequireAdmin())
	admin.GET("/documents", documentHandler.ListAll)
	admin.POST("/debug/search", searchHandler.DebugSearch)

	return router
}
