package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/waveCodeSite/aicg/internal/models"
)

func TestGetJobIncludesItsTasks(t *testing.T) {
	srv := newTestServer(t)
	router := srv.NewRouter()
	ctx := context.Background()

	job := &models.Job{ChapterID: "chapter-1", Kind: "pipeline_run", TargetStage: "S0_extract_characters"}
	require.NoError(t, srv.repo.CreateJob(ctx, job))
	task := &models.Task{JobID: job.ID, Kind: models.TaskKindExtractCharacters, Capability: models.CapabilityText}
	require.NoError(t, srv.repo.CreateTask(ctx, task))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/api/jobs/"+job.ID, nil)
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		Job   models.Job    `json:"job"`
		Tasks []models.Task `json:"tasks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, job.ID, got.Job.ID)
	require.Len(t, got.Tasks, 1)
}

func TestCancelJobSetsCancelRequested(t *testing.T) {
	srv := newTestServer(t)
	router := srv.NewRouter()
	ctx := context.Background()

	job := &models.Job{ChapterID: "chapter-1", Kind: "pipeline_run", TargetStage: "S0_extract_characters"}
	require.NoError(t, srv.repo.CreateJob(ctx, job))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/api/jobs/"+job.ID+"/cancel", nil)
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code)

	got, err := srv.repo.GetJob(ctx, job.ID)
	require.NoError(t, err)
	require.True(t, got.CancelRequested)
}

func TestGetTaskNotFound(t *testing.T) {
	srv := newTestServer(t)
	router := srv.NewRouter()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/api/tasks/does-not-exist", nil)
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCancelTaskSetsCancelRequested(t *testing.T) {
	srv := newTestServer(t)
	router := srv.NewRouter()
	ctx := context.Background()

	job := &models.Job{ChapterID: "chapter-1", Kind: "pipeline_run", TargetStage: "S0_extract_characters"}
	require.NoError(t, srv.repo.CreateJob(ctx, job))
	task := &models.Task{JobID: job.ID, Kind: models.TaskKindExtractCharacters, Capability: models.CapabilityText}
	require.NoError(t, srv.repo.CreateTask(ctx, task))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/api/tasks/"+task.ID+"/cancel", nil)
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code)

	got, err := srv.repo.GetTask(ctx, task.ID)
	require.NoError(t, err)
	require.True(t, got.CancelRequested)
}
