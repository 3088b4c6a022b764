package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/waveCodeSite/aicg/internal/apperr"
	"github.com/waveCodeSite/aicg/internal/models"
	"github.com/waveCodeSite/aicg/internal/testutil"
)

func TestUpsertSceneImageAppendsPriorURLToHistory(t *testing.T) {
	repo, err := testutil.NewRepository()
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, repo.CreateScenes(ctx, []models.Scene{{ID: "scene-1", ScriptID: "script-1"}}))

	require.NoError(t, repo.UpsertSceneImage(ctx, "scene-1", "https://blob/v1.png", "a wide shot", "model-a"))
	require.NoError(t, repo.UpsertSceneImage(ctx, "scene-1", "https://blob/v2.png", "a closer shot", "model-a"))

	scene, err := repo.GetScene(ctx, "scene-1")
	require.NoError(t, err)
	require.Equal(t, "https://blob/v2.png", scene.SceneImageURL)
	require.Equal(t, 2, scene.Version)

	history, err := repo.ListHistory(ctx, models.ArtifactKindSceneImage, "scene-1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, "https://blob/v1.png", history[0].URL)
}

func TestSelectHistoryRestoresPriorURLAndPushesCurrentOne(t *testing.T) {
	repo, err := testutil.NewRepository()
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, repo.CreateScenes(ctx, []models.Scene{{ID: "scene-2", ScriptID: "script-1"}}))
	require.NoError(t, repo.UpsertSceneImage(ctx, "scene-2", "https://blob/v1.png", "p1", "m"))
	require.NoError(t, repo.UpsertSceneImage(ctx, "scene-2", "https://blob/v2.png", "p2", "m"))

	history, err := repo.ListHistory(ctx, models.ArtifactKindSceneImage, "scene-2")
	require.NoError(t, err)
	require.Len(t, history, 1)

	require.NoError(t, repo.SelectHistory(ctx, models.ArtifactKindSceneImage, "scene-2", history[0].ID))

	scene, err := repo.GetScene(ctx, "scene-2")
	require.NoError(t, err)
	require.Equal(t, "https://blob/v1.png", scene.SceneImageURL)

	history, err = repo.ListHistory(ctx, models.ArtifactKindSceneImage, "scene-2")
	require.NoError(t, err)
	require.Len(t, history, 2, "the v2 url that was live is pushed onto history when v1 is restored")
}

func TestSelectHistoryRejectsMismatchedResource(t *testing.T) {
	repo, err := testutil.NewRepository()
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, repo.CreateScenes(ctx, []models.Scene{
		{ID: "scene-4", ScriptID: "script-1"},
		{ID: "scene-5", ScriptID: "script-1"},
	}))
	require.NoError(t, repo.UpsertSceneImage(ctx, "scene-4", "https://blob/v1.png", "p1", "m"))
	require.NoError(t, repo.UpsertSceneImage(ctx, "scene-4", "https://blob/v2.png", "p2", "m"))

	history, err := repo.ListHistory(ctx, models.ArtifactKindSceneImage, "scene-4")
	require.NoError(t, err)
	require.Len(t, history, 1)

	err = repo.SelectHistory(ctx, models.ArtifactKindSceneImage, "scene-5", history[0].ID)
	require.Error(t, err)
	require.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}
