// Package models contains the data models and DTOs for the ad-placement service.
package models

import (
	"time"

	"github.com/google/uuid"
)

// VideoType selects the target index for an indexing task.
type VideoType string

// VideoType constants define the two supported video kinds.
const (
	VideoTypeCreator VideoType = "creator"
	VideoTypeAd      VideoType = "ad"
)

// Valid reports whether the video type is one of the supported kinds.
func (v VideoType) Valid() bool {
	return v == VideoTypeCreator || v == VideoTypeAd
}

// PipelineStage represents the processing state of a video's analysis run.
type PipelineStage string

// PipelineStage constants define the per-video pipeline state machine.
const (
	StagePending      PipelineStage = "pending"
	StageIndexing     PipelineStage = "indexing"
	StageAnalyzing    PipelineStage = "analyzing"
	StageSynthesizing PipelineStage = "synthesizing"
	StageCompleted    PipelineStage = "completed"
	StageFailed       PipelineStage = "failed"
)

// PipelineRun is the persisted status record for one video's analysis run.
// Reruns for the same video id overwrite the record.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type PipelineRun struct {
	ID           uuid.UUID     `json:"id"`
	VideoID      string        `json:"video_id"`
	VideoType    VideoType     `json:"video_type"`
	Stage        PipelineStage `json:"stage"`
	ErrorMessage *string       `json:"error_message,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// UploadURLRequest is the request body for POST /upload.
type UploadURLRequest struct {
	Filename string `json:"filename" binding:"required"`
}

// UploadURLResponse carries the presigned URL and its expiry metadata.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type UploadURLResponse struct {
	UploadURL string `json:"upload_url"`
	S3Path    string `json:"s3_path"`
	ExpiresIn int    `json:"expires_in"`
	ExpiresAt string `json:"expires_at"`
}

// NewUploadURLResponse stamps the expiry relative to now.
func NewUploadURLResponse(uploadURL, s3Path string, expiresIn time.Duration) UploadURLResponse {
	expiresAt := time.Now().UTC().Add(expiresIn)
	return UploadURLResponse{
		UploadURL: uploadURL,
		S3Path:    s3Path,
		ExpiresIn: int(expiresIn.Seconds()),
		ExpiresAt: expiresAt.Format(time.RFC3339),
	}
}

// AnalyzeRequest is the request body for POST /analyze. Either VideoPath
// (an object key from /upload) or VideoID (an already-indexed video) must be
// given.
type AnalyzeRequest struct {
	VideoPath *string   `json:"video_path"`
	VideoID   *string   `json:"video_id"`
	Type      VideoType `json:"type" binding:"required"`
}

// AnalyzeResponse is the immediate response from POST /analyze; the pipeline
// continues in the background.
type AnalyzeResponse struct {
	VideoID string `json:"video_id"`
}

// Placement is one recommended ad-insertion point in a video.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type Placement struct {
	Timestamp            int      `json:"timestamp"`
	Reason               string   `json:"reason"`
	SituationDescription string   `json:"situation_description"`
	Themes               []string `json:"themes"`
	AdKeywords           []string `json:"ad_keywords"`
}

// Narration is one beat of the video's narrative structure. The classifier
// fields are optional; empty means the model did not assign one.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type Narration struct {
	Timestamp            int      `json:"timestamp"`
	Narration            string   `json:"narration"`
	SituationDescription string   `json:"situation_description"`
	Themes               []string `json:"themes"`
	NarrativeTrope       string   `json:"narrative_trope,omitempty"`
	Act                  string   `json:"act,omitempty"`
	EmotionalArc         string   `json:"emotional_arc,omitempty"`
	HeroJourneyStage     string   `json:"hero_journey_stage,omitempty"`
}

// Character is a named character and its arc within the video.
type Character struct {
	Name string `json:"name"`
	Arc  string `json:"arc"`
}

// PlacementResult is the structured analysis document produced once per video
// by the synthesizer and persisted to results/placement_{video_id}.json.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type PlacementResult struct {
	Summary            string      `json:"summary"`
	Tags               []string    `json:"tags"`
	Themes             []string    `json:"themes"`
	ArtisticStyle      string      `json:"artistic_style"`
	GeneralColorTone   string      `json:"general_color_tone"`
	Obstacles          []string    `json:"obstacles"`
	EmotionalParts     []string    `json:"emotional_parts"`
	SegmentLabels      []string    `json:"segment_labels"`
	ToneClassification []string    `json:"tone_classification"`
	Characters         []Character `json:"characters"`
	NaturalBreakpoints []string    `json:"natural_breakpoints"`
	NarrativeStructure []Narration `json:"narrative_structure"`
	Placements         []Placement `json:"placements"`
}

// AdClip is a single matched clip from the ads index. Only clips with
// score > 0.7 are retained by the search layer.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type AdClip struct {
	Score         float64 `json:"score"`
	Start         float64 `json:"start"`
	End           float64 `json:"end"`
	VideoID       string  `json:"video_id"`
	Confidence    string  `json:"confidence"`
	ThumbnailURL  *string `json:"thumbnail_url,omitempty"`
	Transcription *string `json:"transcription,omitempty"`
}

// AdSearchResult groups matched clips by their owning ad video.
type AdSearchResult struct {
	ID    string   `json:"id"`
	Clips []AdClip `json:"clips"`
}

// AverageScore is the mean clip score, 0.0 for an empty clip list.
func (r AdSearchResult) AverageScore() float64 {
	if len(r.Clips) == 0 {
		return 0.0
	}
	var sum float64
	for _, clip := range r.Clips {
		sum += clip.Score
	}
	return sum / float64(len(r.Clips))
}

// AdSearchResponse is the persisted outcome of one ad-matching agent run:
// the top results by average score plus the concatenated query log.
type AdSearchResponse struct {
	Results []AdSearchResult `json:"results"`
	Query   string           `json:"query"`
}

// SuggestAdsRequest is the request body for POST /suggest.
type SuggestAdsRequest struct {
	VideoID string `json:"video_id" binding:"required"`
}

// SuggestAdsResponse carries suggested ads for a video. A video with no
// placement document yet yields an empty (not error) response.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type SuggestAdsResponse struct {
	VideoID        string           `json:"video_id"`
	SuggestedAds   []AdSearchResult `json:"suggested_ads"`
	PlacementCount int              `json:"placement_count"`
	Placements     []Placement      `json:"placements,omitempty"`
}

// ErrorResponse is the error body returned by every endpoint.
type ErrorResponse struct {
	Detail    string `json:"detail"`
	ErrorCode string `json:"error_code"`
}
