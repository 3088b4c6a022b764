package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/waveCodeSite/aicg/internal/models"
	"github.com/waveCodeSite/aicg/internal/testutil"
)

func TestCreateTaskStampsSubmitSeq(t *testing.T) {
	repo, err := testutil.NewRepository()
	require.NoError(t, err)
	ctx := context.Background()

	task := &models.Task{JobID: "job-1", Kind: models.TaskKindExtractScenes, Capability: models.CapabilityText, Stage: "S1_extract_scenes"}
	require.NoError(t, repo.CreateTask(ctx, task))
	require.NotZero(t, task.SubmitSeq)
	require.NotEmpty(t, task.ID)
	require.Equal(t, models.TaskStatusPending, task.Status)
}

func TestCreateTasksPreservesSubmissionOrder(t *testing.T) {
	repo, err := testutil.NewRepository()
	require.NoError(t, err)
	ctx := context.Background()

	batch := []models.Task{
		{JobID: "job-2", Kind: models.TaskKindGenerateKeyframe, Capability: models.CapabilityImage, Stage: "S5_generate_keyframes"},
		{JobID: "job-2", Kind: models.TaskKindGenerateKeyframe, Capability: models.CapabilityImage, Stage: "S5_generate_keyframes"},
		{JobID: "job-2", Kind: models.TaskKindGenerateKeyframe, Capability: models.CapabilityImage, Stage: "S5_generate_keyframes"},
	}
	require.NoError(t, repo.CreateTasks(ctx, batch))

	require.Less(t, batch[0].SubmitSeq, batch[1].SubmitSeq)
	require.Less(t, batch[1].SubmitSeq, batch[2].SubmitSeq)

	rows, err := repo.ListTasksByJob(ctx, "job-2")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.True(t, rows[0].SubmitSeq < rows[1].SubmitSeq && rows[1].SubmitSeq < rows[2].SubmitSeq,
		"ListTasksByJob must return tasks in submission order")
}

func TestCreateTasksEmptyBatchIsNoop(t *testing.T) {
	repo, err := testutil.NewRepository()
	require.NoError(t, err)
	require.NoError(t, repo.CreateTasks(context.Background(), nil))
}

func TestMarkTaskFailedTerminalFieldsThenRetryCount(t *testing.T) {
	repo, err := testutil.NewRepository()
	require.NoError(t, err)
	ctx := context.Background()

	task := &models.Task{JobID: "job-3", Kind: models.TaskKindExtractShots, Capability: models.CapabilityText, Stage: "S2_extract_shots"}
	require.NoError(t, repo.CreateTask(ctx, task))

	require.NoError(t, repo.MarkTaskFailed(ctx, task.ID, "provider", "upstream exploded"))
	got, err := repo.GetTask(ctx, task.ID)
	require.NoError(t, err)
	require.Equal(t, models.TaskStatusFailed, got.Status)
	require.Equal(t, "provider", got.ErrorCode)

	require.NoError(t, repo.IncrementTaskRetries(ctx, task.ID))
	got, err = repo.GetTask(ctx, task.ID)
	require.NoError(t, err)
	require.Equal(t, 1, got.Retries)
}

func TestStageCountsTalliesTerminalOutcomes(t *testing.T) {
	repo, err := testutil.NewRepository()
	require.NoError(t, err)
	ctx := context.Background()

	batch := []models.Task{
		{JobID: "job-4", Kind: models.TaskKindGenerateKeyframe, Capability: models.CapabilityImage, Stage: "S5"},
		{JobID: "job-4", Kind: models.TaskKindGenerateKeyframe, Capability: models.CapabilityImage, Stage: "S5"},
		{JobID: "job-4", Kind: models.TaskKindGenerateKeyframe, Capability: models.CapabilityImage, Stage: "S5"},
	}
	require.NoError(t, repo.CreateTasks(ctx, batch))
	require.NoError(t, repo.MarkTaskSucceeded(ctx, batch[0].ID, models.TaskResult{}))
	require.NoError(t, repo.MarkTaskFailed(ctx, batch[1].ID, "content_policy", "blocked"))

	success, failed, total, err := repo.StageCounts(ctx, "job-4", "S5")
	require.NoError(t, err)
	require.Equal(t, 1, success)
	require.Equal(t, 1, failed)
	require.Equal(t, 3, total)
}
