// Package httpapi is the gin HTTP controller of spec.md §6's "serve"
// subcommand: it exposes projects/chapters/jobs/tasks/api-keys/history as
// REST resources and streams job progress over a gorilla websocket,
// generalizing the teacher's routers/router.go (one flat /v1/api group plus
// a bare /tasks/:task_id/wss) into resource-scoped route groups backed by
// the Artifact Repository and the Stage Graph Executor instead of direct
// SQL calls from the handler.
package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/waveCodeSite/aicg/internal/apperr"
	"github.com/waveCodeSite/aicg/internal/events"
	"github.com/waveCodeSite/aicg/internal/executor"
	"github.com/waveCodeSite/aicg/internal/repository"
)

// Server holds every dependency a handler needs; methods hang off it instead
// of closing over package globals (Design Note "Global mutable state").
type Server struct {
	repo *repository.Repository
	exec *executor.Executor
	hub  *events.Hub
	log  *zap.Logger
}

func New(repo *repository.Repository, exec *executor.Executor, hub *events.Hub, log *zap.Logger) *Server {
	return &Server{repo: repo, exec: exec, hub: hub, log: log}
}

// NewRouter builds the gin.Engine, grouped the way the teacher's InitRouter
// does (one versioned API group) plus a top-level websocket route.
func (s *Server) NewRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.log))

	v1 := r.Group("/v1/api")
	{
		v1.POST("/projects", s.CreateProject)
		v1.GET("/projects/:project_id", s.GetProject)
		v1.DELETE("/projects/:project_id", s.DeleteProject)

		v1.POST("/projects/:project_id/characters", s.CreateCharacter)
		v1.GET("/projects/:project_id/characters", s.ListCharacters)

		v1.POST("/projects/:project_id/chapters", s.CreateChapter)
		v1.GET("/projects/:project_id/chapters", s.ListChapters)
		v1.GET("/chapters/:chapter_id", s.GetChapter)

		v1.POST("/chapters/:chapter_id/jobs", s.SubmitJob)
		v1.GET("/chapters/:chapter_id/jobs", s.ListJobsByChapter)
		v1.GET("/jobs/:job_id", s.GetJob)
		v1.POST("/jobs/:job_id/cancel", s.CancelJob)

		v1.GET("/tasks/:task_id", s.GetTask)
		v1.POST("/tasks/:task_id/cancel", s.CancelTask)

		v1.POST("/keys", s.CreateAPIKey)
		v1.GET("/keys", s.ListAPIKeys)
		v1.DELETE("/keys/:key_id", s.RevokeAPIKey)

		v1.GET("/:resource_type/:resource_id/history", s.ListHistory)
		v1.POST("/:resource_type/:resource_id/history/:history_id/select", s.SelectHistory)
	}
	r.GET("/jobs/:job_id/wss", s.JobProgressWebSocket)
	return r
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		log.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
		)
	}
}

// writeError maps the apperr taxonomy of spec.md §7 onto HTTP status codes;
// errors outside that taxonomy are treated as unexpected server failures.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		status = http.StatusBadRequest
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindConflict:
		status = http.StatusConflict
	case apperr.KindContentPolicy:
		status = http.StatusUnprocessableEntity
	case apperr.KindQuota:
		status = http.StatusTooManyRequests
	case apperr.KindTimeout:
		status = http.StatusGatewayTimeout
	case apperr.KindProvider, apperr.KindMalformedResponse:
		status = http.StatusBadGateway
	case apperr.KindIncompleteMaterials:
		status = http.StatusConflict
	case apperr.KindCancelled:
		status = http.StatusGone
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
