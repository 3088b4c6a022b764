package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/waveCodeSite/aicg/internal/apperr"
	"github.com/waveCodeSite/aicg/internal/models"
)

func (r *Repository) CreateChapter(ctx context.Context, c *models.Chapter) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.PipelineStatus == "" {
		c.PipelineStatus = models.PipelineStatusDraft
	}
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *Repository) GetChapter(ctx context.Context, id string) (*models.Chapter, error) {
	var c models.Chapter
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, wrapNotFound(err, "chapter")
	}
	return &c, nil
}

func (r *Repository) ListChapters(ctx context.Context, projectID string) ([]models.Chapter, error) {
	var rows []models.Chapter
	err := r.db.WithContext(ctx).Where("project_id = ?", projectID).Order("`order` ASC").Find(&rows).Error
	return rows, err
}

// AdvancePipelineStatus enforces the monotone status invariant at the data
// layer rather than trusting callers: it reads the current status inside the
// transaction and rejects a backward move with a ConflictError before
// writing, so two concurrent advances can't race a chapter status backward.
func (r *Repository) AdvancePipelineStatus(ctx context.Context, chapterID string, to models.PipelineStatus) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c models.Chapter
		if err := tx.First(&c, "id = ?", chapterID).Error; err != nil {
			return wrapNotFound(err, "chapter")
		}
		if !models.CanAdvance(c.PipelineStatus, to) {
			return apperr.Conflict("cannot move chapter from " + string(c.PipelineStatus) + " to " + string(to))
		}
		return tx.Model(&models.Chapter{}).Where("id = ?", chapterID).Update("pipeline_status", to).Error
	})
}
