package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Register wires all endpoints onto the router.
func Register(router *gin.Engine, h *Handler) {
	router.Use(corsMiddleware())

	router.GET("/health", h.HealthCheck)
	router.POST("/upload", h.GenerateUploadURL)
	router.POST("/analyze", h.AnalyzeVideo)
	router.GET("/analyze/:video_id/status", h.AnalysisStatus)
	router.POST("/suggest", h.SuggestAds)

	router.GET("/12/index", h.ListIndexes)
	router.GET("/12/index/:index_id/video", h.ListIndexVideos)
	router.GET("/12/index/:index_id/video/:video_id", h.GetIndexVideo)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// corsMiddleware allows browser clients from any origin, matching the
// frontend's expectations.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "*")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
