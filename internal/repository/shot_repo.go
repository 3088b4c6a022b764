package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/waveCodeSite/aicg/internal/apperr"
	"github.com/waveCodeSite/aicg/internal/models"
)

// CreateShots inserts shots and validates that every CharacterRef names a
// Character that actually exists on the project, catching a malformed
// extraction before it reaches the Stage Graph Executor's readiness check.
func (r *Repository) CreateShots(ctx context.Context, projectID string, shots []models.Shot) error {
	if len(shots) == 0 {
		return nil
	}
	names := map[string]bool{}
	for i := range shots {
		if shots[i].ID == "" {
			shots[i].ID = uuid.NewString()
		}
		if shots[i].Status == "" {
			shots[i].Status = models.ShotStatusPending
		}
		for _, ref := range shots[i].CharacterRefs {
			names[ref] = true
		}
	}
	if len(names) > 0 {
		var count int64
		refList := make([]string, 0, len(names))
		for n := range names {
			refList = append(refList, n)
		}
		if err := r.db.WithContext(ctx).Model(&models.Character{}).
			Where("project_id = ? AND name IN ?", projectID, refList).
			Count(&count).Error; err != nil {
			return err
		}
		if int(count) != len(refList) {
			return apperr.Validation("shot references a character not defined on this project")
		}
	}
	return r.db.WithContext(ctx).Create(&shots).Error
}

func (r *Repository) GetShot(ctx context.Context, id string) (*models.Shot, error) {
	var s models.Shot
	if err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error; err != nil {
		return nil, wrapNotFound(err, "shot")
	}
	return &s, nil
}

func (r *Repository) ListShots(ctx context.Context, sceneID string) ([]models.Shot, error) {
	var rows []models.Shot
	err := r.db.WithContext(ctx).Where("scene_id = ?", sceneID).Order("`order` ASC").Find(&rows).Error
	return rows, err
}

// UpsertShotKeyframe writes a shot's keyframe image and flips Status to
// completed, with optimistic-concurrency protection on Version.
func (r *Repository) UpsertShotKeyframe(ctx context.Context, shotID, url, prompt, model string) error {
	shot, err := r.GetShot(ctx, shotID)
	if err != nil {
		return err
	}
	return r.upsertURL(ctx, urlUpdate{
		resourceType: models.ArtifactKindShotKeyframe,
		resourceID:   shotID,
		newURL:       url,
		priorURL:     shot.KeyframeURL,
		prompt:       prompt,
		model:        model,
	}, func(tx *gorm.DB) error {
		res := tx.Model(&models.Shot{}).Where("id = ? AND version = ?", shotID, shot.Version).
			Updates(map[string]interface{}{
				"keyframe_url":    url,
				"keyframe_prompt": prompt,
				"status":          models.ShotStatusCompleted,
				"version":         shot.Version + 1,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.Conflict("shot was modified concurrently")
		}
		return nil
	})
}

func (r *Repository) MarkShotFailed(ctx context.Context, shotID, message string) error {
	return r.db.WithContext(ctx).Model(&models.Shot{}).Where("id = ?", shotID).
		Updates(map[string]interface{}{
			"status":        models.ShotStatusFailed,
			"error_message": message,
		}).Error
}
