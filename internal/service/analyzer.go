package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/amber-aim/ad-placement-go/internal/apperr"
	"github.com/amber-aim/ad-placement-go/internal/metrics"
	"github.com/amber-aim/ad-placement-go/internal/models"
	"github.com/amber-aim/ad-placement-go/internal/service/twelvelabs"
	"github.com/amber-aim/ad-placement-go/pkg/logger"
)

// VideoIntelligence is the slice of the TwelveLabs client the analyzer needs.
type VideoIntelligence interface {
	FindTaskByVideoID(ctx context.Context, indexID, videoID string) (*twelvelabs.Task, error)
	GetTask(ctx context.Context, taskID string) (*twelvelabs.Task, error)
	Analyze(ctx context.Context, videoID, prompt string) (string, error)
}

// RunRecorder records pipeline stage transitions for a video. Recording is
// best-effort; the analyzer logs recorder failures and keeps going.
type RunRecorder interface {
	SetStage(ctx context.Context, videoID string, stage models.PipelineStage) error
	MarkFailed(ctx context.Context, videoID, reason string) error
}

// Analyzer drives one video through the pipeline: wait for indexing, run the
// analysis prompts, persist the raw analyses, then synthesize placements.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type Analyzer struct {
	video        VideoIntelligence
	synthesizer  *Synthesizer
	store        ObjectStore
	recorder     RunRecorder
	promptsDir   string
	pollInterval time.Duration
	pollTimeout  time.Duration
}

// AnalyzerConfig holds the pipeline tuning knobs.
type AnalyzerConfig struct {
	PromptsDir   string
	PollInterval time.Duration // default: 1 second
	PollTimeout  time.Duration // default: 30 minutes
}

// NewAnalyzer creates an Analyzer.
func NewAnalyzer(video VideoIntelligence, synthesizer *Synthesizer, store ObjectStore, recorder RunRecorder, config AnalyzerConfig) *Analyzer {
	if config.PollInterval <= 0 {
		config.PollInterval = time.Second
	}
	if config.PollTimeout <= 0 {
		config.PollTimeout = 30 * time.Minute
	}
	return &Analyzer{
		video:        video,
		synthesizer:  synthesizer,
		store:        store,
		recorder:     recorder,
		promptsDir:   config.PromptsDir,
		pollInterval: config.PollInterval,
		pollTimeout:  config.PollTimeout,
	}
}

// AnalyzeVideo runs the full pipeline for one indexed video. indexID is the
// index the video was submitted to. On any failure the run is marked failed
// and the error returned.
func (a *Analyzer) AnalyzeVideo(ctx context.Context, indexID, videoID string) (*models.PlacementResult, error) {
	result, err := a.run(ctx, indexID, videoID)
	if err != nil {
		metrics.RecordFailure(apperr.CodeOf(err))
		a.record(videoID, func() error {
			return a.recorder.MarkFailed(ctx, videoID, err.Error())
		})
		return nil, err
	}
	a.setStage(ctx, videoID, models.StageCompleted)
	return result, nil
}

func (a *Analyzer) run(ctx context.Context, indexID, videoID string) (*models.PlacementResult, error) {
	a.setStage(ctx, videoID, models.StageIndexing)
	start := time.Now()
	if err := a.waitForIndexing(ctx, indexID, videoID); err != nil {
		return nil, err
	}
	metrics.ObserveStage(string(models.StageIndexing), time.Since(start))

	a.setStage(ctx, videoID, models.StageAnalyzing)
	start = time.Now()
	analyses, err := a.runPrompts(ctx, videoID)
	if err != nil {
		return nil, err
	}

	raw := make(map[string]string, len(analyses))
	for _, analysis := range analyses {
		raw[analysis.Name] = analysis.Text
	}
	if err := a.store.WriteJSON(ctx, analysisKey(videoID), raw); err != nil {
		return nil, apperr.Wrap(apperr.CodePersistence, "failed to persist raw analyses", err)
	}
	metrics.ObserveStage(string(models.StageAnalyzing), time.Since(start))

	a.setStage(ctx, videoID, models.StageSynthesizing)
	start = time.Now()
	result, err := a.synthesizer.Synthesize(ctx, videoID, analyses)
	if err != nil {
		return nil, err
	}
	metrics.ObserveStage(string(models.StageSynthesizing), time.Since(start))
	return result, nil
}

// waitForIndexing polls the video's indexing task until it is ready, failed,
// or the timeout elapses.
func (a *Analyzer) waitForIndexing(ctx context.Context, indexID, videoID string) error {
	task, err := a.video.FindTaskByVideoID(ctx, indexID, videoID)
	if err != nil {
		return err
	}
	if task.Ready() {
		return nil
	}
	if task.Failed() {
		return apperr.New(apperr.CodeAPI, fmt.Sprintf("indexing failed for video %s", videoID))
	}

	logger.Log.Info("Waiting for video indexing",
		zap.String("task_id", task.ID),
		zap.String("video_id", videoID),
		zap.Duration("poll_interval", a.pollInterval),
		zap.Duration("poll_timeout", a.pollTimeout),
	)

	deadline := time.NewTimer(a.pollTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(a.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return apperr.Wrap(apperr.CodeAPI, "indexing wait cancelled", ctx.Err())
		case <-deadline.C:
			return apperr.New(apperr.CodeAPI,
				fmt.Sprintf("timed out after %s waiting for video %s to index", a.pollTimeout, videoID))
		case <-ticker.C:
			current, err := a.video.GetTask(ctx, task.ID)
			if err != nil {
				return err
			}
			if current.Ready() {
				logger.Log.Info("Video indexing completed",
					zap.String("task_id", task.ID),
					zap.String("video_id", videoID),
				)
				return nil
			}
			if current.Failed() {
				return apperr.New(apperr.CodeAPI, fmt.Sprintf("indexing failed for video %s", videoID))
			}
		}
	}
}

// runPrompts runs every analysis prompt against the video, in filename order.
// Any single failure aborts the run.
func (a *Analyzer) runPrompts(ctx context.Context, videoID string) ([]PromptResult, error) {
	prompts, err := loadAnalysisPrompts(a.promptsDir)
	if err != nil {
		return nil, err
	}

	logger.Log.Info("Analyzing video",
		zap.String("video_id", videoID),
		zap.Int("prompt_count", len(prompts)),
	)

	results := make([]PromptResult, 0, len(prompts))
	for _, prompt := range prompts {
		logger.Log.Info("Running analysis prompt",
			zap.String("video_id", videoID),
			zap.String("prompt", prompt.Name),
		)
		text, err := a.video.Analyze(ctx, videoID, prompt.Text)
		if err != nil {
			return nil, err
		}
		results = append(results, PromptResult{Name: prompt.Name, Text: text})
	}

	return results, nil
}

func (a *Analyzer) setStage(ctx context.Context, videoID string, stage models.PipelineStage) {
	a.record(videoID, func() error {
		return a.recorder.SetStage(ctx, videoID, stage)
	})
}

func (a *Analyzer) record(videoID string, fn func() error) {
	if a.recorder == nil {
		return
	}
	if err := fn(); err != nil {
		logger.Log.Warn("Failed to record pipeline stage",
			zap.String("video_id", videoID),
			zap.Error(err),
		)
	}
}

// loadAnalysisPrompts reads the TwelveLabs analysis prompts, sorted by
// filename so numbered prefixes control execution order.
func loadAnalysisPrompts(dir string) ([]PromptResult, error) {
	pattern := filepath.Join(dir, "twelvelabs", "*.txt")
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodePromptNotFound, "failed to list analysis prompts", err)
	}
	if len(paths) == 0 {
		return nil, apperr.New(apperr.CodePromptNotFound, fmt.Sprintf("no analysis prompts found in %s", pattern))
	}
	sort.Strings(paths)

	prompts := make([]PromptResult, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, apperr.Wrap(apperr.CodePromptNotFound, fmt.Sprintf("failed to read prompt: %s", path), err)
		}
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		prompts = append(prompts, PromptResult{Name: name, Text: string(data)})
	}

	return prompts, nil
}
