package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/waveCodeSite/aicg/internal/apperr"
	"github.com/waveCodeSite/aicg/internal/models"
)

func (r *Repository) CreateScenes(ctx context.Context, scenes []models.Scene) error {
	for i := range scenes {
		if scenes[i].ID == "" {
			scenes[i].ID = uuid.NewString()
		}
	}
	if len(scenes) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&scenes).Error
}

func (r *Repository) GetScene(ctx context.Context, id string) (*models.Scene, error) {
	var s models.Scene
	if err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error; err != nil {
		return nil, wrapNotFound(err, "scene")
	}
	return &s, nil
}

func (r *Repository) ListScenes(ctx context.Context, scriptID string) ([]models.Scene, error) {
	var rows []models.Scene
	err := r.db.WithContext(ctx).Where("script_id = ?", scriptID).Order("`order` ASC").Find(&rows).Error
	return rows, err
}

// UpsertSceneImage writes a scene's environment reference image, bumping
// Version and pushing the prior URL into GenerationHistory when one exists.
func (r *Repository) UpsertSceneImage(ctx context.Context, sceneID, url, prompt, model string) error {
	scene, err := r.GetScene(ctx, sceneID)
	if err != nil {
		return err
	}
	return r.upsertURL(ctx, urlUpdate{
		resourceType: models.ArtifactKindSceneImage,
		resourceID:   sceneID,
		newURL:       url,
		priorURL:     scene.SceneImageURL,
		prompt:       prompt,
		model:        model,
	}, func(tx *gorm.DB) error {
		res := tx.Model(&models.Scene{}).Where("id = ? AND version = ?", sceneID, scene.Version).
			Updates(map[string]interface{}{
				"scene_image_url": url,
				"version":         scene.Version + 1,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.Conflict("scene was modified concurrently")
		}
		return nil
	})
}
