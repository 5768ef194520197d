package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amber-aim/ad-placement-go/internal/models"
	"github.com/amber-aim/ad-placement-go/pkg/logger"
)

func init() {
	_ = logger.Init("error", "")
}

func TestNewAnalyzeVideoTaskValidation(t *testing.T) {
	tests := []struct {
		name      string
		videoID   string
		indexID   string
		videoType models.VideoType
		wantError bool
	}{
		{"valid creator task", "vid-1", "idx-1", models.VideoTypeCreator, false},
		{"valid ad task", "vid-1", "idx-2", models.VideoTypeAd, false},
		{"missing video id", "", "idx-1", models.VideoTypeCreator, true},
		{"missing index id", "vid-1", "", models.VideoTypeCreator, true},
		{"invalid video type", "vid-1", "idx-1", models.VideoType("trailer"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := NewAnalyzeVideoTask(tt.videoID, tt.indexID, tt.videoType)
			if tt.wantError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			data, err := payload.Marshal()
			require.NoError(t, err)
			back, err := UnmarshalAnalyzeVideoPayload(data)
			require.NoError(t, err)
			assert.Equal(t, payload, back)
		})
	}
}

type fakeEnqueuer struct {
	tasks []*asynq.Task
	opts  [][]asynq.Option
	err   error
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	f.opts = append(f.opts, opts)
	return &asynq.TaskInfo{ID: "task-1", Queue: "default"}, nil
}

func (f *fakeEnqueuer) Close() error { return nil }

type fakeRunStore struct {
	upserts []string
	err     error
}

func (f *fakeRunStore) UpsertRun(_ context.Context, videoID string, videoType models.VideoType) (*models.PipelineRun, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.upserts = append(f.upserts, videoID)
	return &models.PipelineRun{VideoID: videoID, VideoType: videoType, Stage: models.StagePending}, nil
}

func TestEnqueueVideoAnalysis(t *testing.T) {
	enq := &fakeEnqueuer{}
	runs := &fakeRunStore{}
	client := &Client{asynqClient: enq, runs: runs, taskTimeout: time.Hour}

	err := client.EnqueueVideoAnalysis(context.Background(), "vid-1", "idx-1", models.VideoTypeCreator)
	require.NoError(t, err)

	require.Len(t, enq.tasks, 1)
	assert.Equal(t, TypeAnalyzeVideo, enq.tasks[0].Type())
	payload, err := UnmarshalAnalyzeVideoPayload(enq.tasks[0].Payload())
	require.NoError(t, err)
	assert.Equal(t, "vid-1", payload.VideoID)

	assert.Equal(t, []string{"vid-1"}, runs.upserts)
}

func TestEnqueueVideoAnalysisRunStoreFailureTolerated(t *testing.T) {
	enq := &fakeEnqueuer{}
	runs := &fakeRunStore{err: errors.New("db down")}
	client := &Client{asynqClient: enq, runs: runs, taskTimeout: time.Hour}

	err := client.EnqueueVideoAnalysis(context.Background(), "vid-1", "idx-1", models.VideoTypeCreator)
	require.NoError(t, err, "run tracking is best-effort")
	assert.Len(t, enq.tasks, 1)
}

func TestEnqueueVideoAnalysisInvalidPayload(t *testing.T) {
	enq := &fakeEnqueuer{}
	client := &Client{asynqClient: enq, taskTimeout: time.Hour}

	err := client.EnqueueVideoAnalysis(context.Background(), "", "idx-1", models.VideoTypeCreator)
	require.Error(t, err)
	assert.Empty(t, enq.tasks)
}

func TestEnqueueVideoAnalysisEnqueueFailure(t *testing.T) {
	enq := &fakeEnqueuer{err: errors.New("redis unreachable")}
	client := &Client{asynqClient: enq, taskTimeout: time.Hour}

	err := client.EnqueueVideoAnalysis(context.Background(), "vid-1", "idx-1", models.VideoTypeCreator)
	assert.Error(t, err)
}

type fakeAnalyzer struct {
	calls  []string
	result *models.PlacementResult
	err    error
}

func (f *fakeAnalyzer) AnalyzeVideo(_ context.Context, indexID, videoID string) (*models.PlacementResult, error) {
	f.calls = append(f.calls, indexID+"/"+videoID)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func TestProcessTask(t *testing.T) {
	analyzer := &fakeAnalyzer{result: &models.PlacementResult{Summary: "ok"}}
	handler := NewAnalysisHandler(analyzer)

	payload, err := NewAnalyzeVideoTask("vid-1", "idx-1", models.VideoTypeCreator)
	require.NoError(t, err)
	data, err := payload.Marshal()
	require.NoError(t, err)

	err = handler.ProcessTask(context.Background(), asynq.NewTask(TypeAnalyzeVideo, data))
	require.NoError(t, err)
	assert.Equal(t, []string{"idx-1/vid-1"}, analyzer.calls)
}

func TestProcessTaskMalformedPayload(t *testing.T) {
	handler := NewAnalysisHandler(&fakeAnalyzer{})

	err := handler.ProcessTask(context.Background(), asynq.NewTask(TypeAnalyzeVideo, []byte("not json")))
	assert.Error(t, err)
}

func TestProcessTaskAnalyzerFailure(t *testing.T) {
	analyzer := &fakeAnalyzer{err: errors.New("indexing timed out")}
	handler := NewAnalysisHandler(analyzer)

	payload, _ := NewAnalyzeVideoTask("vid-1", "idx-1", models.VideoTypeCreator)
	data, _ := payload.Marshal()

	err := handler.ProcessTask(context.Background(), asynq.NewTask(TypeAnalyzeVideo, data))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vid-1")
}
