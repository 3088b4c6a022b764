package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/waveCodeSite/aicg/internal/models"
)

// EnsureScript returns the chapter's Script, creating it on first use: the
// movie pipeline has exactly one Script per Chapter (ChapterID is uniquely
// indexed), and extract_scenes is the task that first needs it to exist.
func (r *Repository) EnsureScript(ctx context.Context, chapterID string) (*models.Script, error) {
	var s models.Script
	err := r.db.WithContext(ctx).First(&s, "chapter_id = ?", chapterID).Error
	if err == nil {
		return &s, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}
	s = models.Script{ID: uuid.NewString(), ChapterID: chapterID}
	if err := r.db.WithContext(ctx).Create(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *Repository) GetScriptByID(ctx context.Context, id string) (*models.Script, error) {
	var s models.Script
	if err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error; err != nil {
		return nil, wrapNotFound(err, "script")
	}
	return &s, nil
}
