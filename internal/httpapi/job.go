package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (s *Server) GetJob(c *gin.Context) {
	job, err := s.repo.GetJob(c.Request.Context(), c.Param("job_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	tasks, err := s.repo.ListTasksByJob(c.Request.Context(), job.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"job": job, "tasks": tasks})
}

// CancelJob sets CancelRequested on the job and cascades it onto every
// non-terminal task, then (when the Server has an executor) evaluates
// immediately so the job's own status
// flips to cancelled in this response rather than waiting on some other
// task or transition event to trigger the next evaluation pass. Tasks
// already dispatched to a worker process still only stop at their next
// suspension point; this evaluation cannot interrupt them synchronously.
func (s *Server) CancelJob(c *gin.Context) {
	jobID := c.Param("job_id")
	if err := s.repo.RequestJobCancel(c.Request.Context(), jobID); err != nil {
		writeError(c, err)
		return
	}
	if s.exec != nil {
		if err := s.exec.Evaluate(c.Request.Context(), jobID); err != nil {
			s.log.Error("post-cancel stage evaluation failed", zap.String("job_id", jobID), zap.Error(err))
		}
	}
	c.JSON(http.StatusAccepted, gin.H{"cancelRequested": true})
}

func (s *Server) GetTask(c *gin.Context) {
	task, err := s.repo.GetTask(c.Request.Context(), c.Param("task_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (s *Server) CancelTask(c *gin.Context) {
	if err := s.repo.RequestTaskCancel(c.Request.Context(), c.Param("task_id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"cancelRequested": true})
}
