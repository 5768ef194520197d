// Package repository provides database operations for pipeline run tracking.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/amber-aim/ad-placement-go/internal/apperr"
	"github.com/amber-aim/ad-placement-go/internal/models"
)

// Repository handles all database operations for pipeline run tracking.
type Repository struct {
	db *pgxpool.Pool
}

// New creates a new Repository instance with the provided database connection pool.
func New(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// UpsertRun creates or resets the run record for a video. A rerun for the
// same video id overwrites the previous record.
func (r *Repository) UpsertRun(ctx context.Context, videoID string, videoType models.VideoType) (*models.PipelineRun, error) {
	now := time.Now()
	run := models.PipelineRun{
		ID:        uuid.New(),
		VideoID:   videoID,
		VideoType: videoType,
		Stage:     models.StagePending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	query := `
		INSERT INTO pipeline_runs (id, video_id, video_type, stage, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (video_id) DO UPDATE
		SET video_type = $3, stage = $4, error_message = NULL, updated_at = $6
		RETURNING id, created_at
	`
	err := r.db.QueryRow(ctx, query,
		run.ID, run.VideoID, run.VideoType, run.Stage, run.CreatedAt, run.UpdatedAt,
	).Scan(&run.ID, &run.CreatedAt)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodePersistence, "failed to upsert pipeline run", err)
	}
	return &run, nil
}

// SetStage advances the run for a video to the given stage.
func (r *Repository) SetStage(ctx context.Context, videoID string, stage models.PipelineStage) error {
	query := `
		UPDATE pipeline_runs
		SET stage = $2, updated_at = $3
		WHERE video_id = $1
	`
	_, err := r.db.Exec(ctx, query, videoID, stage, time.Now())
	if err != nil {
		return apperr.Wrap(apperr.CodePersistence, "failed to update pipeline stage", err)
	}
	return nil
}

// MarkFailed moves the run to the failed stage and records the reason.
func (r *Repository) MarkFailed(ctx context.Context, videoID, reason string) error {
	query := `
		UPDATE pipeline_runs
		SET stage = $2, error_message = $3, updated_at = $4
		WHERE video_id = $1
	`
	_, err := r.db.Exec(ctx, query, videoID, models.StageFailed, reason, time.Now())
	if err != nil {
		return apperr.Wrap(apperr.CodePersistence, "failed to mark pipeline run failed", err)
	}
	return nil
}

// GetRun fetches the run record for a video. A video with no record returns
// (nil, nil).
func (r *Repository) GetRun(ctx context.Context, videoID string) (*models.PipelineRun, error) {
	query := `
		SELECT id, video_id, video_type, stage, error_message, created_at, updated_at
		FROM pipeline_runs
		WHERE video_id = $1
	`
	var run models.PipelineRun
	err := r.db.QueryRow(ctx, query, videoID).Scan(
		&run.ID, &run.VideoID, &run.VideoType, &run.Stage,
		&run.ErrorMessage, &run.CreatedAt, &run.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.CodePersistence, "failed to get pipeline run", err)
	}
	return &run, nil
}

// NoopRecorder is a RunRecorder that records nothing. It stands in when the
// service runs without a database.
type NoopRecorder struct{}

// UpsertRun returns an in-memory pending run without persisting it.
func (NoopRecorder) UpsertRun(_ context.Context, videoID string, videoType models.VideoType) (*models.PipelineRun, error) {
	now := time.Now()
	return &models.PipelineRun{
		ID:        uuid.New(),
		VideoID:   videoID,
		VideoType: videoType,
		Stage:     models.StagePending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// SetStage is a no-op.
func (NoopRecorder) SetStage(context.Context, string, models.PipelineStage) error { return nil }

// MarkFailed is a no-op.
func (NoopRecorder) MarkFailed(context.Context, string, string) error { return nil }

// GetRun reports no record for every video.
func (NoopRecorder) GetRun(context.Context, string) (*models.PipelineRun, error) { return nil, nil }
