package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/waveCodeSite/aicg/internal/models"
)

func (r *Repository) CreateJob(ctx context.Context, j *models.Job) error {
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	if j.Status == "" {
		j.Status = models.JobStatusPending
	}
	return r.db.WithContext(ctx).Create(j).Error
}

func (r *Repository) GetJob(ctx context.Context, id string) (*models.Job, error) {
	var j models.Job
	if err := r.db.WithContext(ctx).First(&j, "id = ?", id).Error; err != nil {
		return nil, wrapNotFound(err, "job")
	}
	return &j, nil
}

func (r *Repository) ListJobsByChapter(ctx context.Context, chapterID string) ([]models.Job, error) {
	var rows []models.Job
	err := r.db.WithContext(ctx).Where("chapter_id = ?", chapterID).Order("created_at DESC").Find(&rows).Error
	return rows, err
}

func (r *Repository) SetJobStatus(ctx context.Context, jobID, status string) error {
	return r.db.WithContext(ctx).Model(&models.Job{}).Where("id = ?", jobID).
		Update("status", status).Error
}

// RequestJobCancel sets the job's CancelRequested flag (its status is left
// for the executor to change) and cascades the request onto
// every one of its tasks that hasn't already reached a terminal status, so
// a task already enqueued on asynq sees CancelRequested at its next
// dispatch and stops there instead of running to completion (spec.md §4.5,
// Scenario D).
func (r *Repository) RequestJobCancel(ctx context.Context, jobID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Job{}).Where("id = ?", jobID).
			Update("cancel_requested", true).Error; err != nil {
			return err
		}
		return tx.Model(&models.Task{}).
			Where("job_id = ? AND status NOT IN ?", jobID, []string{
				models.TaskStatusSuccess, models.TaskStatusFailed, models.TaskStatusCancelled,
			}).
			Update("cancel_requested", true).Error
	})
}

// UpdateJobProgress writes a Job's rollup progress and statistics in one
// update, the write path the Stage Graph Executor calls on every evaluation
// pass (spec.md §4.4's weighted progress contract; weighting and counting
// live in the executor, this just persists the values it computed).
func (r *Repository) UpdateJobProgress(ctx context.Context, jobID string, progress float64, stats models.JobStatistics) error {
	return r.db.WithContext(ctx).Model(&models.Job{}).Where("id = ?", jobID).
		Updates(map[string]interface{}{
			"progress":   progress,
			"statistics": stats,
		}).Error
}

func (r *Repository) FinishJob(ctx context.Context, jobID, status, resultRef, errMsg string) error {
	return r.db.WithContext(ctx).Model(&models.Job{}).Where("id = ?", jobID).
		Updates(map[string]interface{}{
			"status":     status,
			"result_ref": resultRef,
			"error":      errMsg,
		}).Error
}
