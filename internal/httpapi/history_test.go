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

func TestListHistoryReturnsPriorVersionsNewestFirst(t *testing.T) {
	srv := newTestServer(t)
	router := srv.NewRouter()
	ctx := context.Background()

	require.NoError(t, srv.repo.CreateScenes(ctx, []models.Scene{{ID: "scene-1", ScriptID: "script-1"}}))
	require.NoError(t, srv.repo.UpsertSceneImage(ctx, "scene-1", "https://blob/v1.png", "p1", "m"))
	require.NoError(t, srv.repo.UpsertSceneImage(ctx, "scene-1", "https://blob/v2.png", "p2", "m"))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/api/scene_image/scene-1/history", nil)
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		History []models.GenerationHistory `json:"history"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.History, 1, "only the superseded version shows up as history")
	require.Equal(t, "https://blob/v1.png", got.History[0].URL)
}

func TestSelectHistoryRestoresPriorURL(t *testing.T) {
	srv := newTestServer(t)
	router := srv.NewRouter()
	ctx := context.Background()

	require.NoError(t, srv.repo.CreateScenes(ctx, []models.Scene{{ID: "scene-2", ScriptID: "script-1"}}))
	require.NoError(t, srv.repo.UpsertSceneImage(ctx, "scene-2", "https://blob/v1.png", "p1", "m"))
	require.NoError(t, srv.repo.UpsertSceneImage(ctx, "scene-2", "https://blob/v2.png", "p2", "m"))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/api/scene_image/scene-2/history", nil)
	router.ServeHTTP(rec, req)
	var got struct {
		History []models.GenerationHistory `json:"history"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.History, 1)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/v1/api/scene_image/scene-2/history/"+got.History[0].ID+"/select", nil)
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	scene, err := srv.repo.GetScene(ctx, "scene-2")
	require.NoError(t, err)
	require.Equal(t, "https://blob/v1.png", scene.SceneImageURL)
}
