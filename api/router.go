package api

import (
	"ffbatch/config"
	"ffbatch/ffmpeg"
	"ffbatch/task"

	"github.com/gin-gonic/gin"
)

func SetupRouter(tm *task.Manager, prober Prober, ws *ffmpeg.Workspace, cfg *config.Config) *gin.Engine {
	r := gin.Default()
	h := NewHandler(tm, prober, ws, cfg)

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := r.Group("/api/v1")
	v1.Use(AuthMiddleware(cfg))
	{
		// Synchronous structural probe
		v1.POST("/probe", h.handleProbe)

		// Async batch endpoints
		v1.POST("/batches", h.handleCreateBatch)
		v1.GET("/batches", h.handleListBatches)
		v1.GET("/batches/:taskId", h.handleGetBatch)
		v1.PATCH("/batches/:taskId/cancel", h.handleCancelBatch)

		// Per-item output download
		v1.GET("/batches/:taskId/items/:index/file", h.handleItemFile)
	}
	return r
}
