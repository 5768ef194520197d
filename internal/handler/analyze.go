package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/amber-aim/ad-placement-go/internal/apperr"
	"github.com/amber-aim/ad-placement-go/internal/models"
	"github.com/amber-aim/ad-placement-go/pkg/logger"
)

// AnalyzeVideo accepts a video for analysis. Given a video_path it first
// creates a TwelveLabs indexing task; given a video_id it reuses the indexed
// video. Either way the analysis itself runs in the background and the
// endpoint returns the video id immediately.
func (h *Handler) AnalyzeVideo(c *gin.Context) {
	var req models.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleError(c, apperr.Wrap(apperr.CodeInvalidRequest, "invalid request payload", err))
		return
	}
	if !req.Type.Valid() {
		h.handleError(c, apperr.New(apperr.CodeInvalidVideoType, "invalid video type: "+string(req.Type)))
		return
	}

	ctx := c.Request.Context()

	var videoID string
	switch {
	case req.VideoPath != nil:
		videoURL, err := h.storage.MintDownloadURL(ctx, *req.VideoPath, h.uploadTTL)
		if err != nil {
			h.handleError(c, err)
			return
		}
		taskID, id, err := h.video.CreateIndexingTask(ctx, videoURL, req.Type)
		if err != nil {
			h.handleError(c, err)
			return
		}
		logger.Log.Info("Video indexing task created",
			zap.String("task_id", taskID),
			zap.String("video_id", id),
			zap.String("video_type", string(req.Type)),
		)
		videoID = id
	case req.VideoID != nil:
		videoID = *req.VideoID
	default:
		h.handleError(c, apperr.New(apperr.CodeInvalidRequest, "either video_path or video_id must be provided"))
		return
	}

	indexID, err := h.video.IndexIDFor(req.Type)
	if err != nil {
		h.handleError(c, err)
		return
	}

	if err := h.queue.EnqueueVideoAnalysis(ctx, videoID, indexID, req.Type); err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.AnalyzeResponse{VideoID: videoID})
}

// AnalysisStatus returns the pipeline run record for a video.
func (h *Handler) AnalysisStatus(c *gin.Context) {
	videoID := c.Param("video_id")

	run, err := h.runs.GetRun(c.Request.Context(), videoID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	if run == nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Detail:    "no analysis run found for video " + videoID,
			ErrorCode: apperr.CodeInvalidRequest,
		})
		return
	}

	c.JSON(http.StatusOK, run)
}
