// Package twelvelabs is a client for the TwelveLabs video-intelligence API.
// It covers the slice of the API this service needs: indexing tasks, prompt
// analyses, and semantic search against the ads index.
package twelvelabs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/amber-aim/ad-placement-go/internal/apperr"
	"github.com/amber-aim/ad-placement-go/internal/models"
	"github.com/amber-aim/ad-placement-go/pkg/logger"
)

// Only clips at or above this relevance score are kept from search results.
const minClipScore = 0.7

// Client is a client for the TwelveLabs API.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type Client struct {
	baseURL         string
	apiKey          string
	creatorsIndexID string
	adsIndexID      string
	httpClient      *http.Client
	searchDelay     func() time.Duration
}

// Config holds the configuration for the TwelveLabs client.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type Config struct {
	BaseURL         string        // e.g., "https://api.twelvelabs.io/v1.3"
	APIKey          string        // API key sent as x-api-key
	CreatorsIndexID string        // Index for creator content
	AdsIndexID      string        // Index for advertisement content
	Timeout         time.Duration // Request timeout (default: 120 seconds)
}

// NewClient creates a new TwelveLabs client.
func NewClient(config Config) (*Client, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("TwelveLabs API key is required")
	}
	if config.Timeout == 0 {
		config.Timeout = 120 * time.Second
	}

	return &Client{
		baseURL:         strings.TrimSuffix(config.BaseURL, "/"),
		apiKey:          config.APIKey,
		creatorsIndexID: config.CreatorsIndexID,
		adsIndexID:      config.AdsIndexID,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		// Randomized courtesy delay before search calls; the ads index is
		// shared and the external API rate-limits aggressively.
		searchDelay: func() time.Duration {
			return time.Duration(rand.Float64() * 3 * float64(time.Second))
		},
	}, nil
}

// Task is an asynchronous indexing job in TwelveLabs.
type Task struct {
	ID      string `json:"_id"`
	VideoID string `json:"video_id"`
	Status  string `json:"status"`
}

// Ready reports whether the indexed video is available for analysis.
func (t *Task) Ready() bool {
	return t.Status == "ready"
}

// Failed reports whether indexing failed terminally.
func (t *Task) Failed() bool {
	return t.Status == "failed"
}

// Index is one TwelveLabs index, returned by the passthrough listing.
type Index struct {
	ID        string `json:"_id"`
	IndexName string `json:"index_name"`
	CreatedAt string `json:"created_at"`
}

// Video is one indexed video, returned by the passthrough listing.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type Video struct {
	ID             string         `json:"_id"`
	CreatedAt      string         `json:"created_at"`
	SystemMetadata map[string]any `json:"system_metadata,omitempty"`
}

// IndexIDFor returns the target index for a video type.
func (c *Client) IndexIDFor(videoType models.VideoType) (string, error) {
	switch videoType {
	case models.VideoTypeCreator:
		return c.creatorsIndexID, nil
	case models.VideoTypeAd:
		return c.adsIndexID, nil
	default:
		return "", apperr.New(apperr.CodeInvalidVideoType, fmt.Sprintf("invalid video type: %s", videoType))
	}
}

// CreateIndexingTask starts indexing a video reachable at videoURL into the
// index selected by videoType.
func (c *Client) CreateIndexingTask(ctx context.Context, videoURL string, videoType models.VideoType) (string, string, error) {
	indexID, err := c.IndexIDFor(videoType)
	if err != nil {
		return "", "", err
	}

	logger.Log.Info("Creating video indexing task",
		zap.String("index_id", indexID),
		zap.String("video_type", string(videoType)),
	)

	var resp Task
	if err := c.do(ctx, http.MethodPost, "/tasks", map[string]any{
		"index_id":  indexID,
		"video_url": videoURL,
	}, &resp); err != nil {
		return "", "", apperr.Wrap(apperr.CodeAPI, "failed to create video indexing task", err)
	}

	logger.Log.Info("Video indexing task created",
		zap.String("task_id", resp.ID),
		zap.String("video_id", resp.VideoID),
	)

	return resp.ID, resp.VideoID, nil
}

// FindTaskByVideoID scans the index's task list for the task owning videoID.
// A video with no task is an API error rather than a silent miss.
func (c *Client) FindTaskByVideoID(ctx context.Context, indexID, videoID string) (*Task, error) {
	var resp struct {
		Data []Task `json:"data"`
	}
	path := fmt.Sprintf("/tasks?index_id=%s&page_limit=50", url.QueryEscape(indexID))
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, apperr.Wrap(apperr.CodeAPI, "failed to list indexing tasks", err)
	}

	for i := range resp.Data {
		if resp.Data[i].VideoID == videoID {
			return &resp.Data[i], nil
		}
	}

	return nil, apperr.New(apperr.CodeAPI, fmt.Sprintf("no indexing task found for video %s", videoID))
}

// GetTask fetches the current state of one indexing task.
func (c *Client) GetTask(ctx context.Context, taskID string) (*Task, error) {
	var resp Task
	if err := c.do(ctx, http.MethodGet, "/tasks/"+url.PathEscape(taskID), nil, &resp); err != nil {
		return nil, apperr.Wrap(apperr.CodeAPI, "failed to get indexing task", err)
	}
	return &resp, nil
}

// Analyze runs one open-ended prompt against an indexed video and returns the
// raw analysis text.
func (c *Client) Analyze(ctx context.Context, videoID, prompt string) (string, error) {
	var resp struct {
		ID   string `json:"id"`
		Data string `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, "/analyze", map[string]any{
		"video_id":    videoID,
		"prompt":      prompt,
		"temperature": 0.2,
	}, &resp); err != nil {
		return "", apperr.Wrap(apperr.CodeAPI, "failed to analyze video", err)
	}
	return resp.Data, nil
}

// SearchAds issues a grouped-by-video semantic query against the ads index.
// Clips scoring at or below the relevance floor are dropped; result groups
// keep the API's score ordering.
func (c *Client) SearchAds(ctx context.Context, queryText string, pageLimit int) ([]models.AdSearchResult, error) {
	if pageLimit <= 0 {
		pageLimit = 5
	}

	logger.Log.Info("Searching ads index",
		zap.String("query", queryText),
		zap.Int("page_limit", pageLimit),
		zap.String("index_id", c.adsIndexID),
	)

	if err := sleepCtx(ctx, c.searchDelay()); err != nil {
		return nil, apperr.Wrap(apperr.CodeSearch, "search cancelled", err)
	}

	var resp struct {
		Data []struct {
			ID    string `json:"id"`
			Clips []struct {
				Score         float64 `json:"score"`
				Start         float64 `json:"start"`
				End           float64 `json:"end"`
				VideoID       string  `json:"video_id"`
				Confidence    string  `json:"confidence"`
				ThumbnailURL  *string `json:"thumbnail_url"`
				Transcription *string `json:"transcription"`
			} `json:"clips"`
		} `json:"data"`
	}

	if err := c.do(ctx, http.MethodPost, "/search", map[string]any{
		"index_id":       c.adsIndexID,
		"query_text":     queryText,
		"search_options": []string{"visual", "audio"},
		"group_by":       "video",
		"sort_option":    "score",
		"page_limit":     pageLimit,
	}, &resp); err != nil {
		return nil, apperr.Wrap(apperr.CodeSearch, "failed to search ads", err)
	}

	results := make([]models.AdSearchResult, 0, len(resp.Data))
	for _, item := range resp.Data {
		if item.ID == "" || len(item.Clips) == 0 {
			continue
		}
		clips := make([]models.AdClip, 0, len(item.Clips))
		for _, clip := range item.Clips {
			if clip.Score <= minClipScore {
				continue
			}
			clips = append(clips, models.AdClip{
				Score:         clip.Score,
				Start:         clip.Start,
				End:           clip.End,
				VideoID:       clip.VideoID,
				Confidence:    clip.Confidence,
				ThumbnailURL:  clip.ThumbnailURL,
				Transcription: clip.Transcription,
			})
		}
		results = append(results, models.AdSearchResult{ID: item.ID, Clips: clips})
	}

	logger.Log.Info("Ad search completed",
		zap.String("query", queryText),
		zap.Int("result_count", len(results)),
	)

	return results, nil
}

// ListIndexes lists all indexes (passthrough endpoint support).
func (c *Client) ListIndexes(ctx context.Context) ([]Index, error) {
	var resp struct {
		Data []Index `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/indexes", nil, &resp); err != nil {
		return nil, apperr.Wrap(apperr.CodeAPI, "failed to list indexes", err)
	}
	return resp.Data, nil
}

// ListIndexVideos lists the videos of one index (passthrough endpoint support).
func (c *Client) ListIndexVideos(ctx context.Context, indexID string) ([]Video, error) {
	var resp struct {
		Data []Video `json:"data"`
	}
	path := "/indexes/" + url.PathEscape(indexID) + "/videos"
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, apperr.Wrap(apperr.CodeAPI, "failed to list index videos", err)
	}
	return resp.Data, nil
}

// GetIndexVideo fetches one indexed video (passthrough endpoint support).
func (c *Client) GetIndexVideo(ctx context.Context, indexID, videoID string) (*Video, error) {
	var resp Video
	path := "/indexes/" + url.PathEscape(indexID) + "/videos/" + url.PathEscape(videoID)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, apperr.Wrap(apperr.CodeAPI, "failed to get index video", err)
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("x-api-key", c.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request to TwelveLabs: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("TwelveLabs API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("parse TwelveLabs response: %w", err)
		}
	}

	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
