package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/amber-aim/ad-placement-go/internal/apperr"
	"github.com/amber-aim/ad-placement-go/internal/metrics"
	"github.com/amber-aim/ad-placement-go/internal/models"
	"github.com/amber-aim/ad-placement-go/pkg/logger"
)

// GenerateUploadURL issues a presigned S3 PUT URL for a new video. The
// object key embeds a fresh UUID; only the filename's extension survives.
func (h *Handler) GenerateUploadURL(c *gin.Context) {
	var req models.UploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleError(c, apperr.Wrap(apperr.CodeInvalidRequest, "invalid request payload", err))
		return
	}

	uploadURL, s3Path, err := h.storage.MintUploadURL(c.Request.Context(), req.Filename, h.uploadTTL)
	if err != nil {
		h.handleError(c, err)
		return
	}

	logger.Log.Info("Upload URL generated",
		zap.String("s3_path", s3Path),
		zap.String("filename", req.Filename),
	)
	metrics.RecordUploadURL()

	c.JSON(http.StatusOK, models.NewUploadURLResponse(uploadURL, s3Path, h.uploadTTL))
}
