package executor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/waveCodeSite/aicg/internal/apperr"
	"github.com/waveCodeSite/aicg/internal/events"
	"github.com/waveCodeSite/aicg/internal/models"
	"github.com/waveCodeSite/aicg/internal/testutil"
)

func newTestExecutor(t *testing.T) (*Executor, string) {
	t.Helper()
	repo, err := testutil.NewRepository()
	require.NoError(t, err)
	ctx := context.Background()

	project := &models.Project{UserID: "user-1", Title: "p", Type: models.ProjectTypeMovie}
	require.NoError(t, repo.CreateProject(ctx, project))
	chapter := &models.Chapter{ProjectID: project.ID, Title: "c"}
	require.NoError(t, repo.CreateChapter(ctx, chapter))

	return New(repo, nil, events.NewHub(), zap.NewNop()), chapter.ID
}

func TestSubmitJobRejectsUnknownTargetStage(t *testing.T) {
	ex, chapterID := newTestExecutor(t)
	_, err := ex.SubmitJob(context.Background(), chapterID, StageName("not_a_real_stage"), false)
	require.Error(t, err)
	require.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestSubmitJobWithoutAPIKeyLeavesJobRunning(t *testing.T) {
	ex, chapterID := newTestExecutor(t)
	job, err := ex.SubmitJob(context.Background(), chapterID, StageExtractCharacters, false)
	require.NoError(t, err)

	got, err := ex.repo.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	require.Equal(t, models.JobStatusRunning, got.Status, "s0 has no active api key configured, so it can never materialize or finish")
}

func TestEvaluateIsNoopOnceJobIsTerminal(t *testing.T) {
	ex, chapterID := newTestExecutor(t)
	job, err := ex.SubmitJob(context.Background(), chapterID, StageExtractCharacters, false)
	require.NoError(t, err)

	require.NoError(t, ex.repo.FinishJob(context.Background(), job.ID, models.JobStatusSuccess, "result", ""))
	require.NoError(t, ex.Evaluate(context.Background(), job.ID))

	got, err := ex.repo.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	require.Equal(t, models.JobStatusSuccess, got.Status)
}

func TestEvaluateCancelsJobWithCancelRequested(t *testing.T) {
	ex, chapterID := newTestExecutor(t)
	job, err := ex.SubmitJob(context.Background(), chapterID, StageExtractCharacters, false)
	require.NoError(t, err)

	require.NoError(t, ex.repo.RequestJobCancel(context.Background(), job.ID))
	require.NoError(t, ex.Evaluate(context.Background(), job.ID))

	got, err := ex.repo.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	require.Equal(t, models.JobStatusCancelled, got.Status)
}
