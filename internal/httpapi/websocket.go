package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/waveCodeSite/aicg/internal/events"
	"github.com/waveCodeSite/aicg/internal/models"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// JobProgressWebSocket generalizes the teacher's TaskProgressWebSocket
// (routers/api/task.go): instead of polling the database on a ticker, it
// subscribes to the job's own "job:<id>" events.Hub topic and pushes a fresh
// snapshot only when a Task Runtime event actually fires, closing once the
// Job reaches a terminal status.
func (s *Server) JobProgressWebSocket(c *gin.Context) {
	jobID := c.Param("job_id")
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	job, err := s.repo.GetJob(c.Request.Context(), jobID)
	if err != nil {
		_ = conn.WriteJSON(gin.H{"error": err.Error()})
		return
	}
	if err := conn.WriteJSON(job); err != nil {
		return
	}
	if isTerminal(job.Status) {
		return
	}

	ch := make(chan events.Event, 16)
	s.hub.Subscribe(ch, "job:"+jobID)
	defer s.hub.Unsubscribe(ch, "job:"+jobID)

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ch:
			job, err := s.repo.GetJob(ctx, jobID)
			if err != nil {
				continue
			}
			if err := conn.WriteJSON(job); err != nil {
				return
			}
			if isTerminal(job.Status) {
				return
			}
		}
	}
}

func isTerminal(status string) bool {
	return status == models.JobStatusSuccess || status == models.JobStatusFailed || status == models.JobStatusCancelled
}
