package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/waveCodeSite/aicg/internal/apperr"
	"github.com/waveCodeSite/aicg/internal/models"
)

func (r *Repository) CreateProject(ctx context.Context, p *models.Project) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Type != models.ProjectTypeNarrative && p.Type != models.ProjectTypeMovie {
		return apperr.Validation("project type must be narrative or movie")
	}
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *Repository) GetProject(ctx context.Context, id string) (*models.Project, error) {
	var p models.Project
	err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error
	if err != nil {
		return nil, wrapNotFound(err, "project")
	}
	return &p, nil
}

// DeleteProject cascades into Chapters (and everything they own) per
// spec.md §4.2's cascade rule. Relations are resolved by foreign-key
// columns rather than declared GORM associations, matching how the
// teacher's models keep relations implicit, so the cascade is walked
// explicitly chapter by chapter instead of relying on GORM's
// Select(clause.Associations).
func (r *Repository) DeleteProject(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var chapterIDs []string
		if err := tx.Model(&models.Chapter{}).Where("project_id = ?", id).Pluck("id", &chapterIDs).Error; err != nil {
			return err
		}
		for _, chapterID := range chapterIDs {
			if err := deleteChapterCascade(tx, chapterID); err != nil {
				return err
			}
		}
		if err := tx.Where("project_id = ?", id).Delete(&models.Character{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Project{}, "id = ?", id).Error
	})
}

// deleteChapterCascade removes a Chapter and everything it owns: its Script,
// the Script's Scenes, each Scene's Shots, and each Shot's outgoing
// Transitions. GenerationHistory rows are never deleted with their owner —
// they are marked Orphaned so spec.md §4.2's history never disappears out
// from under a still-valid resource_id collision, while making plain that
// the resource they describe is gone.
func deleteChapterCascade(tx *gorm.DB, chapterID string) error {
	var sentenceIDs []string
	if err := tx.Model(&models.Sentence{}).Where("chapter_id = ?", chapterID).Pluck("id", &sentenceIDs).Error; err != nil {
		return err
	}
	if len(sentenceIDs) > 0 {
		if err := orphanHistory(tx, models.ArtifactKindSentenceImage, sentenceIDs); err != nil {
			return err
		}
		if err := orphanHistory(tx, models.ArtifactKindSentenceAudio, sentenceIDs); err != nil {
			return err
		}
		if err := tx.Where("sentence_id IN ?", sentenceIDs).Delete(&models.SentenceAsset{}).Error; err != nil {
			return err
		}
		if err := tx.Where("chapter_id = ?", chapterID).Delete(&models.Sentence{}).Error; err != nil {
			return err
		}
	}

	var scriptIDs []string
	if err := tx.Model(&models.Script{}).Where("chapter_id = ?", chapterID).Pluck("id", &scriptIDs).Error; err != nil {
		return err
	}
	for _, scriptID := range scriptIDs {
		var sceneIDs []string
		if err := tx.Model(&models.Scene{}).Where("script_id = ?", scriptID).Pluck("id", &sceneIDs).Error; err != nil {
			return err
		}
		if len(sceneIDs) > 0 {
			if err := orphanHistory(tx, models.ArtifactKindSceneImage, sceneIDs); err != nil {
				return err
			}
		}
		for _, sceneID := range sceneIDs {
			var shotIDs []string
			if err := tx.Model(&models.Shot{}).Where("scene_id = ?", sceneID).Pluck("id", &shotIDs).Error; err != nil {
				return err
			}
			if len(shotIDs) > 0 {
				if err := orphanHistory(tx, models.ArtifactKindShotKeyframe, shotIDs); err != nil {
					return err
				}
				var transitionIDs []string
				if err := tx.Model(&models.Transition{}).Where("from_shot_id IN ? OR to_shot_id IN ?", shotIDs, shotIDs).Pluck("id", &transitionIDs).Error; err != nil {
					return err
				}
				if len(transitionIDs) > 0 {
					if err := orphanHistory(tx, models.ArtifactKindTransitionVideo, transitionIDs); err != nil {
						return err
					}
				}
				if err := tx.Where("from_shot_id IN ? OR to_shot_id IN ?", shotIDs, shotIDs).Delete(&models.Transition{}).Error; err != nil {
					return err
				}
			}
			if err := tx.Where("scene_id = ?", sceneID).Delete(&models.Shot{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("script_id = ?", scriptID).Delete(&models.Scene{}).Error; err != nil {
			return err
		}
	}
	if err := tx.Where("chapter_id = ?", chapterID).Delete(&models.Script{}).Error; err != nil {
		return err
	}

	if err := tx.Where("chapter_id = ?", chapterID).Delete(&models.VideoTask{}).Error; err != nil {
		return err
	}

	return tx.Delete(&models.Chapter{}, "id = ?", chapterID).Error
}

func orphanHistory(tx *gorm.DB, kind models.ArtifactKind, resourceIDs []string) error {
	return tx.Model(&models.GenerationHistory{}).
		Where("resource_type = ? AND resource_id IN ?", string(kind), resourceIDs).
		Update("orphaned", true).Error
}
