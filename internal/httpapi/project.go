package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/waveCodeSite/aicg/internal/apperr"
	"github.com/waveCodeSite/aicg/internal/models"
)

// CreateProject mirrors the teacher's CreateProject (routers/api/project.go)
// but only creates the container: the movie/narrative split means there is
// no single default task to enqueue at project-creation time any more, so
// pipeline work starts from SubmitJob against a Chapter instead.
func (s *Server) CreateProject(c *gin.Context) {
	var req struct {
		UserID string `json:"userId" binding:"required"`
		Title  string `json:"title" binding:"required"`
		Type   string `json:"type" binding:"required"`
		Style  string `json:"style"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.Validation(err.Error()))
		return
	}

	project := &models.Project{
		UserID: req.UserID,
		Title:  req.Title,
		Type:   models.ProjectType(req.Type),
		Style:  req.Style,
	}
	if err := s.repo.CreateProject(c.Request.Context(), project); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, project)
}

func (s *Server) GetProject(c *gin.Context) {
	project, err := s.repo.GetProject(c.Request.Context(), c.Param("project_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	chapters, err := s.repo.ListChapters(c.Request.Context(), project.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"project": project, "chapters": chapters})
}

func (s *Server) DeleteProject(c *gin.Context) {
	if err := s.repo.DeleteProject(c.Request.Context(), c.Param("project_id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (s *Server) CreateCharacter(c *gin.Context) {
	var req struct {
		Name            string `json:"name" binding:"required"`
		VisualTraits    string `json:"visualTraits"`
		KeyVisualTraits string `json:"keyVisualTraits"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.Validation(err.Error()))
		return
	}
	character := &models.Character{
		ProjectID:       c.Param("project_id"),
		Name:            req.Name,
		VisualTraits:    req.VisualTraits,
		KeyVisualTraits: req.KeyVisualTraits,
	}
	if err := s.repo.CreateCharacter(c.Request.Context(), character); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, character)
}

func (s *Server) ListCharacters(c *gin.Context) {
	rows, err := s.repo.ListCharacters(c.Request.Context(), c.Param("project_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"characters": rows})
}
