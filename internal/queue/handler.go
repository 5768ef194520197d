package queue

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/amber-aim/ad-placement-go/internal/models"
	"github.com/amber-aim/ad-placement-go/pkg/logger"
)

// VideoAnalyzer runs the analysis pipeline for one indexed video.
type VideoAnalyzer interface {
	AnalyzeVideo(ctx context.Context, indexID, videoID string) (*models.PlacementResult, error)
}

// AnalysisHandler handles video analysis tasks.
type AnalysisHandler struct {
	analyzer VideoAnalyzer
}

// NewAnalysisHandler creates a new analysis task handler.
func NewAnalysisHandler(analyzer VideoAnalyzer) *AnalysisHandler {
	return &AnalysisHandler{analyzer: analyzer}
}

// ProcessTask implements asynq.HandlerFunc.
func (h *AnalysisHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	payload, err := UnmarshalAnalyzeVideoPayload(task.Payload())
	if err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	logger.Log.Info("Processing video analysis",
		zap.String("video_id", payload.VideoID),
		zap.String("index_id", payload.IndexID),
		zap.String("video_type", string(payload.VideoType)),
	)

	result, err := h.analyzer.AnalyzeVideo(ctx, payload.IndexID, payload.VideoID)
	if err != nil {
		logger.Log.Error("Video analysis failed",
			zap.String("video_id", payload.VideoID),
			zap.Error(err),
		)
		return fmt.Errorf("video analysis failed for %s: %w", payload.VideoID, err)
	}

	logger.Log.Info("Video analysis completed",
		zap.String("video_id", payload.VideoID),
		zap.Int("placement_count", len(result.Placements)),
	)

	return nil
}
