package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/waveCodeSite/aicg/internal/apperr"
	"github.com/waveCodeSite/aicg/internal/models"
)

// CreateCharacter enforces the per-project unique-name invariant explicitly
// rather than relying on the database to surface a driver-specific duplicate
// key error, so callers always see an apperr.Conflict regardless of which
// SQL driver is behind the gorm.DB.
func (r *Repository) CreateCharacter(ctx context.Context, c *models.Character) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Character{}).
		Where("project_id = ? AND name = ?", c.ProjectID, c.Name).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return apperr.Conflict("character name already used on this project")
	}
	err := r.db.WithContext(ctx).Create(c).Error
	if err != nil && strings.Contains(err.Error(), "Duplicate") {
		return apperr.Conflict("character name already used on this project")
	}
	return err
}

func (r *Repository) GetCharacter(ctx context.Context, id string) (*models.Character, error) {
	var c models.Character
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, wrapNotFound(err, "character")
	}
	return &c, nil
}

func (r *Repository) GetCharacterByName(ctx context.Context, projectID, name string) (*models.Character, error) {
	var c models.Character
	if err := r.db.WithContext(ctx).First(&c, "project_id = ? AND name = ?", projectID, name).Error; err != nil {
		return nil, wrapNotFound(err, "character")
	}
	return &c, nil
}

func (r *Repository) ListCharacters(ctx context.Context, projectID string) ([]models.Character, error) {
	var rows []models.Character
	err := r.db.WithContext(ctx).Where("project_id = ?", projectID).Order("name ASC").Find(&rows).Error
	return rows, err
}

// UpsertCharacterAvatar writes the character's generated avatar, the single
// artifact a Shot's readiness check waits on.
func (r *Repository) UpsertCharacterAvatar(ctx context.Context, characterID, url, prompt, model string) error {
	c, err := r.GetCharacter(ctx, characterID)
	if err != nil {
		return err
	}
	return r.upsertURL(ctx, urlUpdate{
		resourceType: models.ArtifactKindCharacterAvatar,
		resourceID:   characterID,
		newURL:       url,
		priorURL:     c.AvatarURL,
		prompt:       prompt,
		model:        model,
	}, func(tx *gorm.DB) error {
		res := tx.Model(&models.Character{}).Where("id = ? AND version = ?", characterID, c.Version).
			Updates(map[string]interface{}{
				"avatar_url":       url,
				"generated_prompt": prompt,
				"version":          c.Version + 1,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.Conflict("character was modified concurrently")
		}
		return nil
	})
}
