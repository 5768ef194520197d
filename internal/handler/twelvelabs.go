package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Passthrough endpoints exposing the TwelveLabs index state for debugging
// and frontend listings.

// ListIndexes returns all TwelveLabs indexes.
func (h *Handler) ListIndexes(c *gin.Context) {
	indexes, err := h.video.ListIndexes(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, indexes)
}

// ListIndexVideos returns the videos of one index.
func (h *Handler) ListIndexVideos(c *gin.Context) {
	videos, err := h.video.ListIndexVideos(c.Request.Context(), c.Param("index_id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, videos)
}

// GetIndexVideo returns one indexed video.
func (h *Handler) GetIndexVideo(c *gin.Context) {
	video, err := h.video.GetIndexVideo(c.Request.Context(), c.Param("index_id"), c.Param("video_id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, video)
}
