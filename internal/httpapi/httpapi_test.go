package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/waveCodeSite/aicg/internal/apperr"
	"github.com/waveCodeSite/aicg/internal/events"
	"github.com/waveCodeSite/aicg/internal/testutil"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	repo, err := testutil.NewRepository()
	require.NoError(t, err)
	return New(repo, nil, events.NewHub(), zap.NewNop())
}

func doJSON(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCreateAndGetProject(t *testing.T) {
	srv := newTestServer(t)
	router := srv.NewRouter()

	rec := doJSON(router, http.MethodPost, "/v1/api/projects", map[string]string{
		"userId": "user-1", "title": "My Story", "type": "movie",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/api/projects/"+created.ID, nil)
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		Project struct {
			Title string `json:"title"`
		} `json:"project"`
		Chapters []interface{} `json:"chapters"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "My Story", got.Project.Title)
	require.Len(t, got.Chapters, 0)
}

func TestCreateProjectValidationError(t *testing.T) {
	srv := newTestServer(t)
	router := srv.NewRouter()

	rec := doJSON(router, http.MethodPost, "/v1/api/projects", map[string]string{"title": "missing userId and type"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetProjectNotFound(t *testing.T) {
	srv := newTestServer(t)
	router := srv.NewRouter()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/api/projects/does-not-exist", nil)
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWriteErrorMapsTaxonomyToStatus(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{apperr.Validation("bad"), http.StatusBadRequest},
		{apperr.NotFound("missing"), http.StatusNotFound},
		{apperr.Conflict("exists"), http.StatusConflict},
		{apperr.ContentPolicy("blocked"), http.StatusUnprocessableEntity},
		{apperr.Quota("limited"), http.StatusTooManyRequests},
		{apperr.Timeout("slow"), http.StatusGatewayTimeout},
		{apperr.Provider("upstream"), http.StatusBadGateway},
		{apperr.IncompleteMaterials([]string{"x"}), http.StatusConflict},
		{apperr.Cancelled("stopped"), http.StatusGone},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		writeError(c, tc.err)
		require.Equal(t, tc.status, w.Code, "kind %v", apperr.KindOf(tc.err))
	}
}
