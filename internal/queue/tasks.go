// Package queue enqueues and processes asynchronous video analysis jobs.
package queue

import (
	"encoding/json"
	"fmt"

	"github.com/amber-aim/ad-placement-go/internal/models"
)

// TypeAnalyzeVideo identifies video analysis tasks in the queue.
const TypeAnalyzeVideo = "analysis:video"

// AnalyzeVideoPayload is the payload for video analysis tasks.
type AnalyzeVideoPayload struct {
	VideoID   string           `json:"video_id"`
	IndexID   string           `json:"index_id"`
	VideoType models.VideoType `json:"video_type"`
}

// NewAnalyzeVideoTask creates a new video analysis task payload.
func NewAnalyzeVideoTask(videoID, indexID string, videoType models.VideoType) (*AnalyzeVideoPayload, error) {
	if videoID == "" {
		return nil, fmt.Errorf("video ID is required")
	}
	if indexID == "" {
		return nil, fmt.Errorf("index ID is required")
	}
	if !videoType.Valid() {
		return nil, fmt.Errorf("invalid video type: %s", videoType)
	}

	return &AnalyzeVideoPayload{
		VideoID:   videoID,
		IndexID:   indexID,
		VideoType: videoType,
	}, nil
}

// Marshal serializes the payload to JSON.
func (p *AnalyzeVideoPayload) Marshal() ([]byte, error) {
	return json.Marshal(p)
}

// UnmarshalAnalyzeVideoPayload deserializes JSON to payload.
func UnmarshalAnalyzeVideoPayload(data []byte) (*AnalyzeVideoPayload, error) {
	var payload AnalyzeVideoPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return &payload, nil
}
