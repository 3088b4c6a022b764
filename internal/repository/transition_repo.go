package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/waveCodeSite/aicg/internal/apperr"
	"github.com/waveCodeSite/aicg/internal/models"
)

func (r *Repository) CreateTransition(ctx context.Context, t *models.Transition) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Status == "" {
		t.Status = models.TransitionStatusPending
	}
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *Repository) GetTransition(ctx context.Context, id string) (*models.Transition, error) {
	var t models.Transition
	if err := r.db.WithContext(ctx).First(&t, "id = ?", id).Error; err != nil {
		return nil, wrapNotFound(err, "transition")
	}
	return &t, nil
}

func (r *Repository) ListTransitions(ctx context.Context, scriptID string) ([]models.Transition, error) {
	var rows []models.Transition
	err := r.db.WithContext(ctx).Where("script_id = ?", scriptID).Order("`order` ASC").Find(&rows).Error
	return rows, err
}

// ListPendingTransitions backs the Provider Polling Sweeper: every
// Transition that has been submitted to a video provider and has not yet
// reached a terminal status.
func (r *Repository) ListPendingTransitions(ctx context.Context) ([]models.Transition, error) {
	var rows []models.Transition
	err := r.db.WithContext(ctx).
		Where("status = ? AND external_task_id <> ''", models.TransitionStatusProcessing).
		Find(&rows).Error
	return rows, err
}

func (r *Repository) SetTransitionPrompt(ctx context.Context, transitionID, prompt string) error {
	return r.db.WithContext(ctx).Model(&models.Transition{}).Where("id = ?", transitionID).
		Update("video_prompt", prompt).Error
}

// SetTransitionSubmitted records the provider's external task id once a
// video generation request has been accepted, along with the api key and
// model the sweeper must reuse to poll it: Transition carries no other
// link back to the submitting Task.
func (r *Repository) SetTransitionSubmitted(ctx context.Context, transitionID, externalTaskID, apiKeyID, model, jobID string) error {
	return r.db.WithContext(ctx).Model(&models.Transition{}).Where("id = ?", transitionID).
		Updates(map[string]interface{}{
			"status":           models.TransitionStatusProcessing,
			"external_task_id": externalTaskID,
			"api_key_id":       apiKeyID,
			"model":            model,
			"job_id":           jobID,
		}).Error
}

// UpsertTransitionVideo writes the finished clip URL once the sweeper
// observes a completed provider task.
func (r *Repository) UpsertTransitionVideo(ctx context.Context, transitionID, url, prompt, model string) error {
	t, err := r.GetTransition(ctx, transitionID)
	if err != nil {
		return err
	}
	return r.upsertURL(ctx, urlUpdate{
		resourceType: models.ArtifactKindTransitionVideo,
		resourceID:   transitionID,
		newURL:       url,
		priorURL:     t.VideoURL,
		prompt:       prompt,
		model:        model,
	}, func(tx *gorm.DB) error {
		res := tx.Model(&models.Transition{}).Where("id = ? AND version = ?", transitionID, t.Version).
			Updates(map[string]interface{}{
				"video_url": url,
				"status":    models.TransitionStatusCompleted,
				"version":   t.Version + 1,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.Conflict("transition was modified concurrently")
		}
		return nil
	})
}

func (r *Repository) MarkTransitionFailed(ctx context.Context, transitionID, message string) error {
	return r.db.WithContext(ctx).Model(&models.Transition{}).Where("id = ?", transitionID).
		Updates(map[string]interface{}{
			"status":        models.TransitionStatusFailed,
			"error_message": message,
		}).Error
}
