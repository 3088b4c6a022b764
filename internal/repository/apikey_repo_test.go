package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/waveCodeSite/aicg/internal/models"
	"github.com/waveCodeSite/aicg/internal/testutil"
)

func TestRevokedAPIKeyIsNoLongerActive(t *testing.T) {
	repo, err := testutil.NewRepository()
	require.NoError(t, err)
	ctx := context.Background()

	key := &models.APIKey{UserID: "user-1", Provider: "volcengine", Secret: "sk-1"}
	require.NoError(t, repo.CreateAPIKey(ctx, key))
	require.Equal(t, "active", key.Status)

	got, err := repo.GetActiveAPIKeyByID(ctx, key.ID)
	require.NoError(t, err)
	require.Equal(t, "sk-1", got.Secret)

	require.NoError(t, repo.RevokeAPIKey(ctx, key.ID))
	_, err = repo.GetActiveAPIKeyByID(ctx, key.ID)
	require.Error(t, err)
}

func TestListAPIKeysScopedToUser(t *testing.T) {
	repo, err := testutil.NewRepository()
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, repo.CreateAPIKey(ctx, &models.APIKey{UserID: "user-a", Provider: "generic", Secret: "a"}))
	require.NoError(t, repo.CreateAPIKey(ctx, &models.APIKey{UserID: "user-b", Provider: "generic", Secret: "b"}))

	rows, err := repo.ListAPIKeys(ctx, "user-a")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "a", rows[0].Secret)
}
