package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/waveCodeSite/aicg/internal/models"
	"github.com/waveCodeSite/aicg/internal/testutil"
)

func TestRequestJobCancelCascadesToNonTerminalTasks(t *testing.T) {
	repo, err := testutil.NewRepository()
	require.NoError(t, err)
	ctx := context.Background()

	job := &models.Job{ChapterID: "chapter-1", Kind: "pipeline_run", TargetStage: "S8_compose_video"}
	require.NoError(t, repo.CreateJob(ctx, job))

	batch := []models.Task{
		{JobID: job.ID, Kind: models.TaskKindExtractShots, Capability: models.CapabilityText, Stage: "S2"},
		{JobID: job.ID, Kind: models.TaskKindGenerateKeyframe, Capability: models.CapabilityImage, Stage: "S5"},
		{JobID: job.ID, Kind: models.TaskKindGenerateKeyframe, Capability: models.CapabilityImage, Stage: "S5"},
	}
	require.NoError(t, repo.CreateTasks(ctx, batch))
	require.NoError(t, repo.MarkTaskRunning(ctx, batch[1].ID))
	require.NoError(t, repo.MarkTaskSucceeded(ctx, batch[2].ID, models.TaskResult{}))

	require.NoError(t, repo.RequestJobCancel(ctx, job.ID))

	gotJob, err := repo.GetJob(ctx, job.ID)
	require.NoError(t, err)
	require.True(t, gotJob.CancelRequested)

	pending, err := repo.GetTask(ctx, batch[0].ID)
	require.NoError(t, err)
	require.True(t, pending.CancelRequested, "a pending task must inherit the job's cancel request")

	running, err := repo.GetTask(ctx, batch[1].ID)
	require.NoError(t, err)
	require.True(t, running.CancelRequested)

	done, err := repo.GetTask(ctx, batch[2].ID)
	require.NoError(t, err)
	require.False(t, done.CancelRequested, "a task that already succeeded must not be touched")
}
