// Package handler provides HTTP request handlers for the application.
package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/amber-aim/ad-placement-go/internal/apperr"
	"github.com/amber-aim/ad-placement-go/internal/models"
	"github.com/amber-aim/ad-placement-go/internal/service/twelvelabs"
	"github.com/amber-aim/ad-placement-go/pkg/logger"
)

// URLMinter issues presigned S3 URLs for video objects.
type URLMinter interface {
	MintUploadURL(ctx context.Context, filename string, ttl time.Duration) (string, string, error)
	MintDownloadURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// VideoIndexer is the slice of the TwelveLabs client the HTTP surface needs.
type VideoIndexer interface {
	CreateIndexingTask(ctx context.Context, videoURL string, videoType models.VideoType) (string, string, error)
	IndexIDFor(videoType models.VideoType) (string, error)
	ListIndexes(ctx context.Context) ([]twelvelabs.Index, error)
	ListIndexVideos(ctx context.Context, indexID string) ([]twelvelabs.Video, error)
	GetIndexVideo(ctx context.Context, indexID, videoID string) (*twelvelabs.Video, error)
}

// Enqueuer schedules the background analysis of an indexed video.
type Enqueuer interface {
	EnqueueVideoAnalysis(ctx context.Context, videoID, indexID string, videoType models.VideoType) error
}

// Suggester matches ads to an analyzed video.
type Suggester interface {
	SuggestAds(ctx context.Context, videoID string) (*models.SuggestAdsResponse, error)
}

// RunReader fetches the status record of a video's analysis run.
type RunReader interface {
	GetRun(ctx context.Context, videoID string) (*models.PipelineRun, error)
}

// Handler carries the dependencies of all HTTP endpoints.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type Handler struct {
	storage   URLMinter
	video     VideoIndexer
	queue     Enqueuer
	suggester Suggester
	runs      RunReader
	uploadTTL time.Duration
}

// New creates a Handler. uploadTTL is the lifetime of presigned URLs.
func New(storage URLMinter, video VideoIndexer, queue Enqueuer, suggester Suggester, runs RunReader, uploadTTL time.Duration) *Handler {
	return &Handler{
		storage:   storage,
		video:     video,
		queue:     queue,
		suggester: suggester,
		runs:      runs,
		uploadTTL: uploadTTL,
	}
}

// handleError maps an application error onto the HTTP error contract:
// a JSON body {detail, error_code} with the status taken from the code.
// Unclassified errors carry internal detail (dial errors, SQL text) that
// must not reach the client; they collapse to a generic body.
func (h *Handler) handleError(c *gin.Context, err error) {
	code := apperr.CodeOf(err)
	status := apperr.HTTPStatus(code)

	if status >= 500 {
		logger.Log.Error("Request failed",
			zap.Error(err),
			zap.String("path", c.Request.URL.Path),
			zap.String("error_code", code),
		)
	} else {
		logger.Log.Warn("Request rejected",
			zap.Error(err),
			zap.String("path", c.Request.URL.Path),
			zap.String("error_code", code),
		)
	}

	detail := err.Error()
	if code == apperr.CodeInternal {
		detail = "Internal server error"
	}

	c.JSON(status, models.ErrorResponse{
		Detail:    detail,
		ErrorCode: code,
	})
}
