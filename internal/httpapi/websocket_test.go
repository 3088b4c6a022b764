package httpapi

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/waveCodeSite/aicg/internal/events"
	"github.com/waveCodeSite/aicg/internal/models"
	"github.com/waveCodeSite/aicg/internal/testutil"
)

func TestJobProgressWebSocketSendsSnapshotAndClosesWhenTerminal(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo, err := testutil.NewRepository()
	require.NoError(t, err)
	hub := events.NewHub()
	stop := make(chan struct{})
	go hub.Run(stop)
	defer close(stop)

	srv := New(repo, nil, hub, zap.NewNop())
	router := srv.NewRouter()

	job := &models.Job{ChapterID: "chapter-1", Kind: "pipeline_run", TargetStage: "S0_extract_characters"}
	require.NoError(t, repo.CreateJob(context.Background(), job))
	require.NoError(t, repo.FinishJob(context.Background(), job.ID, models.JobStatusSuccess, "result", ""))

	ts := httptest.NewServer(router)
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/jobs/" + job.ID + "/wss"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	var got models.Job
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&got))
	require.Equal(t, job.ID, got.ID)
	require.Equal(t, models.JobStatusSuccess, got.Status)

	_, _, err = conn.ReadMessage()
	require.Error(t, err, "the handler must close the connection once the job is terminal")
}
