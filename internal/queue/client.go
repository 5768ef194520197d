package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/amber-aim/ad-placement-go/internal/models"
	"github.com/amber-aim/ad-placement-go/pkg/logger"
)

// RunStore creates or resets the status record for an enqueued video.
type RunStore interface {
	UpsertRun(ctx context.Context, videoID string, videoType models.VideoType) (*models.PipelineRun, error)
}

type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

// Client wraps the asynq client for enqueueing analysis tasks.
type Client struct {
	asynqClient enqueuer
	runs        RunStore
	taskTimeout time.Duration
}

// NewClient creates a new queue client. taskTimeout bounds a single analysis
// run end to end and should exceed the indexing poll timeout.
func NewClient(redisURL string, runs RunStore, taskTimeout time.Duration) (*Client, error) {
	redisOpt, err := ParseRedisURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if taskTimeout <= 0 {
		taskTimeout = time.Hour
	}

	return &Client{
		asynqClient: asynq.NewClient(redisOpt),
		runs:        runs,
		taskTimeout: taskTimeout,
	}, nil
}

// Close closes the client connection.
func (c *Client) Close() error {
	return c.asynqClient.Close()
}

// EnqueueVideoAnalysis records a pending run for the video and enqueues its
// analysis task. Analysis runs are not retried automatically; a failed run
// stays failed until the video is resubmitted.
func (c *Client) EnqueueVideoAnalysis(ctx context.Context, videoID, indexID string, videoType models.VideoType) error {
	payload, err := NewAnalyzeVideoTask(videoID, indexID, videoType)
	if err != nil {
		return fmt.Errorf("failed to create task payload: %w", err)
	}

	payloadBytes, err := payload.Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	if c.runs != nil {
		if _, err := c.runs.UpsertRun(ctx, videoID, videoType); err != nil {
			// The run record is tracking only; the analysis still proceeds.
			logger.Log.Warn("Failed to record pipeline run",
				zap.String("video_id", videoID),
				zap.Error(err),
			)
		}
	}

	task := asynq.NewTask(TypeAnalyzeVideo, payloadBytes)
	info, err := c.asynqClient.EnqueueContext(ctx, task,
		asynq.MaxRetry(0),
		asynq.Timeout(c.taskTimeout),
		asynq.Queue("default"),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	logger.Log.Info("Enqueued video analysis",
		zap.String("video_id", videoID),
		zap.String("task_id", info.ID),
	)

	return nil
}
