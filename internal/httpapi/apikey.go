package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/waveCodeSite/aicg/internal/apperr"
	"github.com/waveCodeSite/aicg/internal/models"
)

// CreateAPIKey is the supplemented per-user credential CRUD surface
// (original_source/backend's system_setting admin screen); Secret is never
// echoed back (models.APIKey tags it json:"-").
func (s *Server) CreateAPIKey(c *gin.Context) {
	var req struct {
		UserID   string `json:"userId" binding:"required"`
		Provider string `json:"provider" binding:"required"`
		BaseURL  string `json:"baseUrl"`
		Secret   string `json:"secret" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.Validation(err.Error()))
		return
	}
	key := &models.APIKey{
		UserID:   req.UserID,
		Provider: req.Provider,
		BaseURL:  req.BaseURL,
		Secret:   req.Secret,
	}
	if err := s.repo.CreateAPIKey(c.Request.Context(), key); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, key)
}

func (s *Server) ListAPIKeys(c *gin.Context) {
	userID := c.Query("userId")
	if userID == "" {
		writeError(c, apperr.Validation("userId query parameter is required"))
		return
	}
	rows, err := s.repo.ListAPIKeys(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"keys": rows})
}

func (s *Server) RevokeAPIKey(c *gin.Context) {
	if err := s.repo.RevokeAPIKey(c.Request.Context(), c.Param("key_id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"revoked": true})
}
