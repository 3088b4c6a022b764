package taskrt

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/waveCodeSite/aicg/internal/apperr"
	"github.com/waveCodeSite/aicg/internal/events"
	"github.com/waveCodeSite/aicg/internal/models"
	"github.com/waveCodeSite/aicg/internal/provider"
	"github.com/waveCodeSite/aicg/internal/queue"
	"github.com/waveCodeSite/aicg/internal/testutil"
)

func newTestRuntime(t *testing.T) *Runtime {
	t.Helper()
	repo, err := testutil.NewRepository()
	require.NoError(t, err)
	return New(repo, provider.NewRegistry(), nil, nil, events.NewHub(), nil, zap.NewNop(), ConcurrencyLimits{})
}

func asynqTaskFor(t *testing.T, taskID string) *asynq.Task {
	t.Helper()
	payload, err := json.Marshal(queue.Payload{TaskID: taskID})
	require.NoError(t, err)
	return asynq.NewTask(queue.TypeTaskDispatch, payload)
}

func TestDispatchSkipsCancelledTask(t *testing.T) {
	rt := newTestRuntime(t)
	ctx := context.Background()

	task := &models.Task{JobID: "job-1", Kind: models.TaskKindExtractShots, Capability: models.CapabilityText, CancelRequested: true}
	require.NoError(t, rt.repo.CreateTask(ctx, task))

	require.NoError(t, rt.Dispatch(ctx, asynqTaskFor(t, task.ID)))

	got, err := rt.repo.GetTask(ctx, task.ID)
	require.NoError(t, err)
	require.Equal(t, models.TaskStatusFailed, got.Status)
	require.Equal(t, string(apperr.KindCancelled), got.ErrorCode)
}

func TestDispatchSkipsAlreadyTerminalTaskAsDuplicate(t *testing.T) {
	rt := newTestRuntime(t)
	ctx := context.Background()

	task := &models.Task{JobID: "job-2", Kind: models.TaskKindExtractShots, Capability: models.CapabilityText, Status: models.TaskStatusSuccess}
	require.NoError(t, rt.repo.CreateTask(ctx, task))

	require.NoError(t, rt.Dispatch(ctx, asynqTaskFor(t, task.ID)))

	got, err := rt.repo.GetTask(ctx, task.ID)
	require.NoError(t, err)
	require.Equal(t, models.TaskStatusSuccess, got.Status, "a duplicate delivery of a terminal task must not be re-run")
}

func TestDispatchUnknownKindFailsPermanently(t *testing.T) {
	rt := newTestRuntime(t)
	ctx := context.Background()

	task := &models.Task{JobID: "job-3", Kind: models.TaskKind("made_up_kind"), Capability: models.CapabilityText}
	require.NoError(t, rt.repo.CreateTask(ctx, task))

	err := rt.Dispatch(ctx, asynqTaskFor(t, task.ID))
	require.Error(t, err)
	require.ErrorIs(t, err, asynq.SkipRetry)

	got, err := rt.repo.GetTask(ctx, task.ID)
	require.NoError(t, err)
	require.Equal(t, models.TaskStatusFailed, got.Status)
}

func TestMaxRetriesPerCapability(t *testing.T) {
	require.Equal(t, 3, maxRetries(apperr.KindProvider, models.CapabilityText))
	require.Equal(t, 2, maxRetries(apperr.KindProvider, models.CapabilityImage))
	require.Equal(t, 3, maxRetries(apperr.KindProvider, models.CapabilityTTS))
	require.Equal(t, 2, maxRetries(apperr.KindProvider, models.CapabilityVideoSubmit))
	require.Equal(t, 1, maxRetries(apperr.KindMalformedResponse, models.CapabilityImage),
		"the malformed-response rule overrides the per-capability cap")
}

func TestDispatchRestrictedToAllowedKindsRequeues(t *testing.T) {
	repo, err := testutil.NewRepository()
	require.NoError(t, err)
	rt := New(repo, provider.NewRegistry(), nil, nil, events.NewHub(), nil, zap.NewNop(), ConcurrencyLimits{}, models.TaskKindExtractShots)
	ctx := context.Background()

	task := &models.Task{JobID: "job-4", Kind: models.TaskKindExtractScenes, Capability: models.CapabilityText}
	require.NoError(t, rt.repo.CreateTask(ctx, task))

	err = rt.Dispatch(ctx, asynqTaskFor(t, task.ID))
	require.Error(t, err)
	require.False(t, errors.Is(err, asynq.SkipRetry), "a task kind this worker doesn't handle should be redelivered, not skipped")

	got, err := rt.repo.GetTask(ctx, task.ID)
	require.NoError(t, err)
	require.Equal(t, models.TaskStatusPending, got.Status, "must not be marked running if this worker can't actually handle it")
}
