package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/waveCodeSite/aicg/internal/apperr"
	"github.com/waveCodeSite/aicg/internal/executor"
	"github.com/waveCodeSite/aicg/internal/models"
)

// CreateChapter accepts the already-split sentences the text ingestion
// subsystem produced (out of scope here per spec.md §0) alongside the raw
// text, so the narrative pipeline's per-sentence stage has rows to work
// from the moment the chapter exists.
func (s *Server) CreateChapter(c *gin.Context) {
	var req struct {
		Title     string   `json:"title"`
		RawText   string   `json:"rawText"`
		Order     int      `json:"order"`
		Sentences []string `json:"sentences,omitempty"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.Validation(err.Error()))
		return
	}

	chapter := &models.Chapter{
		ProjectID: c.Param("project_id"),
		Order:     req.Order,
		Title:     req.Title,
		RawText:   req.RawText,
	}
	if err := s.repo.CreateChapter(c.Request.Context(), chapter); err != nil {
		writeError(c, err)
		return
	}

	if len(req.Sentences) > 0 {
		sentences := make([]models.Sentence, len(req.Sentences))
		for i, text := range req.Sentences {
			sentences[i] = models.Sentence{ChapterID: chapter.ID, Order: i, Text: text}
		}
		if err := s.repo.CreateSentences(c.Request.Context(), sentences); err != nil {
			writeError(c, err)
			return
		}
	}
	if err := s.repo.AdvancePipelineStatus(c.Request.Context(), chapter.ID, models.PipelineStatusParsed); err != nil {
		s.log.Warn("advance pipeline status after create failed", zap.String("chapter_id", chapter.ID), zap.Error(err))
	}

	c.JSON(http.StatusCreated, chapter)
}

func (s *Server) GetChapter(c *gin.Context) {
	chapter, err := s.repo.GetChapter(c.Request.Context(), c.Param("chapter_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, chapter)
}

func (s *Server) ListChapters(c *gin.Context) {
	rows, err := s.repo.ListChapters(c.Request.Context(), c.Param("project_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chapters": rows})
}

// SubmitJob is the entry point into the Stage Graph Executor: a client names
// the stage it wants driven to and whether a partially-successful
// dependency should still release downstream work.
func (s *Server) SubmitJob(c *gin.Context) {
	var req struct {
		TargetStage       string `json:"targetStage" binding:"required"`
		ContinueOnPartial bool   `json:"continueOnPartial"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.Validation(err.Error()))
		return
	}
	job, err := s.exec.SubmitJob(c.Request.Context(), c.Param("chapter_id"), executor.StageName(req.TargetStage), req.ContinueOnPartial)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, job)
}

func (s *Server) ListJobsByChapter(c *gin.Context) {
	rows, err := s.repo.ListJobsByChapter(c.Request.Context(), c.Param("chapter_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": rows})
}
