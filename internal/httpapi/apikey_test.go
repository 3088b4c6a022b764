package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/waveCodeSite/aicg/internal/models"
)

func TestCreateAPIKeyNeverEchoesSecret(t *testing.T) {
	srv := newTestServer(t)
	router := srv.NewRouter()

	rec := doJSON(router, http.MethodPost, "/v1/api/keys", map[string]string{
		"userId":   "user-1",
		"provider": "volcengine",
		"secret":   "top-secret",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotContains(t, rec.Body.String(), "top-secret")

	var key models.APIKey
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &key))
	require.NotEmpty(t, key.ID)
	require.Equal(t, "volcengine", key.Provider)
}

func TestListAPIKeysRequiresUserID(t *testing.T) {
	srv := newTestServer(t)
	router := srv.NewRouter()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/api/keys", nil)
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListAPIKeysScopedToUserViaHTTP(t *testing.T) {
	srv := newTestServer(t)
	router := srv.NewRouter()

	doJSON(router, http.MethodPost, "/v1/api/keys", map[string]string{"userId": "user-1", "provider": "generic", "secret": "s1"})
	doJSON(router, http.MethodPost, "/v1/api/keys", map[string]string{"userId": "user-2", "provider": "generic", "secret": "s2"})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/api/keys?userId=user-1", nil)
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		Keys []models.APIKey `json:"keys"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Keys, 1)
	require.Equal(t, "user-1", got.Keys[0].UserID)
}

func TestRevokeAPIKeyMarksInactive(t *testing.T) {
	srv := newTestServer(t)
	router := srv.NewRouter()

	rec := doJSON(router, http.MethodPost, "/v1/api/keys", map[string]string{"userId": "user-1", "provider": "generic", "secret": "s1"})
	var key models.APIKey
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &key))

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/v1/api/keys/"+key.ID, nil)
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/v1/api/keys?userId=user-1", nil)
	router.ServeHTTP(rec, req)
	var got struct {
		Keys []models.APIKey `json:"keys"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Keys, 1)
	require.Equal(t, "revoked", got.Keys[0].Status)
}
