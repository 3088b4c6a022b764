package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/waveCodeSite/aicg/internal/models"
)

// ListHistory and SelectHistory back the original implementation's
// generation-history browser (original_source/_INDEX.md), addressed by the
// same (resource_type, resource_id) pair the Artifact Repository uses
// internally rather than a join through whichever table owns the artifact.
func (s *Server) ListHistory(c *gin.Context) {
	kind := models.ArtifactKind(c.Param("resource_type"))
	rows, err := s.repo.ListHistory(c.Request.Context(), kind, c.Param("resource_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": rows})
}

func (s *Server) SelectHistory(c *gin.Context) {
	kind := models.ArtifactKind(c.Param("resource_type"))
	err := s.repo.SelectHistory(c.Request.Context(), kind, c.Param("resource_id"), c.Param("history_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"selected": true})
}
