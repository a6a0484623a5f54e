package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/celerix-dev/celerix-compliance/internal/portal"
)

// CORS allows browser front ends on other origins.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, "+ActorHeader)
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Disposition")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// Register mounts every route under g.
func (h *Handler) Register(g gin.IRouter) {
	g.GET("/datasets", h.GetDatasets)
	g.GET("/dashboard", h.GetDashboard)
	g.GET("/health", h.Health)
	g.GET("/metrics", gin.WrapH(promhttp.Handler()))

	for _, name := range h.Portal.Datasets() {
		d, _ := h.Portal.Dataset(name)
		group := g.Group("/" + name)
		datasetHandlers{h: h, d: d}.register(group)

		switch name {
		case portal.DatasetContent:
			group.POST("", h.CreateContent)
			group.PUT("/:id", h.UpdateContent)
			group.POST("/:id/publish", h.PublishContent)
			group.POST("/:id/archive", h.ArchiveContent)
			group.POST("/view/batch/publish", h.BatchPublish)
		case portal.DatasetChecklist:
			group.GET("/templates", h.GetTemplates)
			group.POST("/generate", h.GenerateChecklist)
			group.POST("/:id/complete", h.CompleteChecklist)
		}
	}
}

// NewRouter builds the HTTP engine with the API mounted at /api.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), Metrics(), CORS())
	h.Register(r.Group("/api"))
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "API route not found"})
	})
	return r
}
