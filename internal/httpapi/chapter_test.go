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

func TestCreateChapterWithSentencesAdvancesPipelineStatus(t *testing.T) {
	srv := newTestServer(t)
	router := srv.NewRouter()

	rec := doJSON(router, http.MethodPost, "/v1/api/projects/proj-1/chapters", map[string]interface{}{
		"title":     "Chapter One",
		"rawText":   "Once upon a time.",
		"sentences": []string{"Once upon a time.", "The end."},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var chapter models.Chapter
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &chapter))
	require.NotEmpty(t, chapter.ID)

	got, err := srv.repo.GetChapter(context.Background(), chapter.ID)
	require.NoError(t, err)
	require.Equal(t, models.PipelineStatusParsed, got.PipelineStatus)
}

func TestListChaptersScopedToProject(t *testing.T) {
	srv := newTestServer(t)
	router := srv.NewRouter()

	doJSON(router, http.MethodPost, "/v1/api/projects/proj-a/chapters", map[string]string{"title": "A1"})
	doJSON(router, http.MethodPost, "/v1/api/projects/proj-b/chapters", map[string]string{"title": "B1"})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/api/projects/proj-a/chapters", nil)
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		Chapters []models.Chapter `json:"chapters"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Chapters, 1)
	require.Equal(t, "A1", got.Chapters[0].Title)
}
