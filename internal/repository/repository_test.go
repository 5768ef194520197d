package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amber-aim/ad-placement-go/internal/models"
)

func TestNoopRecorder(t *testing.T) {
	ctx := context.Background()
	var recorder NoopRecorder

	run, err := recorder.UpsertRun(ctx, "vid-1", models.VideoTypeCreator)
	require.NoError(t, err)
	assert.Equal(t, "vid-1", run.VideoID)
	assert.Equal(t, models.StagePending, run.Stage)

	assert.NoError(t, recorder.SetStage(ctx, "vid-1", models.StageIndexing))
	assert.NoError(t, recorder.MarkFailed(ctx, "vid-1", "boom"))

	got, err := recorder.GetRun(ctx, "vid-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}
