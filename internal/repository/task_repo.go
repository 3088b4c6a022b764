package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/waveCodeSite/aicg/internal/models"
)

func (r *Repository) CreateTask(ctx context.Context, t *models.Task) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Status == "" {
		t.Status = models.TaskStatusPending
	}
	if t.SubmitSeq == 0 {
		t.SubmitSeq = time.Now().UnixNano()
	}
	return r.db.WithContext(ctx).Create(t).Error
}

// CreateTasks inserts a batch sharing one JobID, stamping SubmitSeq with a
// monotonically increasing counter so the dispatcher can preserve
// submission order when two tasks become ready in the same tick.
func (r *Repository) CreateTasks(ctx context.Context, tasks []models.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	base := time.Now().UnixNano()
	for i := range tasks {
		if tasks[i].ID == "" {
			tasks[i].ID = uuid.NewString()
		}
		if tasks[i].Status == "" {
			tasks[i].Status = models.TaskStatusPending
		}
		if tasks[i].SubmitSeq == 0 {
			tasks[i].SubmitSeq = base + int64(i)
		}
	}
	return r.db.WithContext(ctx).Create(&tasks).Error
}

func (r *Repository) GetTask(ctx context.Context, id string) (*models.Task, error) {
	var t models.Task
	if err := r.db.WithContext(ctx).First(&t, "id = ?", id).Error; err != nil {
		return nil, wrapNotFound(err, "task")
	}
	return &t, nil
}

func (r *Repository) ListTasksByJob(ctx context.Context, jobID string) ([]models.Task, error) {
	var rows []models.Task
	err := r.db.WithContext(ctx).Where("job_id = ?", jobID).Order("submit_seq ASC").Find(&rows).Error
	return rows, err
}

// ListPendingTasksByJob returns every task in the job still pending or
// blocked, for the
// executor's readiness evaluator to re-check against current artifact state.
func (r *Repository) ListPendingTasksByJob(ctx context.Context, jobID string) ([]models.Task, error) {
	var rows []models.Task
	err := r.db.WithContext(ctx).
		Where("job_id = ? AND status IN ?", jobID, []string{models.TaskStatusPending, models.TaskStatusBlocked}).
		Order("submit_seq ASC").Find(&rows).Error
	return rows, err
}

func (r *Repository) MarkTaskRunning(ctx context.Context, taskID string) error {
	return r.db.WithContext(ctx).Model(&models.Task{}).Where("id = ?", taskID).
		Updates(map[string]interface{}{
			"status":     models.TaskStatusRunning,
			"started_at": time.Now(),
		}).Error
}

func (r *Repository) MarkTaskBlocked(ctx context.Context, taskID string) error {
	return r.db.WithContext(ctx).Model(&models.Task{}).Where("id = ?", taskID).
		Update("status", models.TaskStatusBlocked).Error
}

func (r *Repository) MarkTaskSucceeded(ctx context.Context, taskID string, result models.TaskResult) error {
	return r.db.WithContext(ctx).Model(&models.Task{}).Where("id = ?", taskID).
		Updates(map[string]interface{}{
			"status":      models.TaskStatusSuccess,
			"result":      result,
			"finished_at": time.Now(),
		}).Error
}

// MarkTaskFailed records a terminal failure. Whether the Task Runtime
// retries before calling this is decided by apperr.Retryable, not here —
// this is the final write once a task has exhausted its retries or hit a
// non-retryable error kind.
func (r *Repository) MarkTaskFailed(ctx context.Context, taskID, errCode, errMsg string) error {
	return r.db.WithContext(ctx).Model(&models.Task{}).Where("id = ?", taskID).
		Updates(map[string]interface{}{
			"status":      models.TaskStatusFailed,
			"error_code":  errCode,
			"error":       errMsg,
			"finished_at": time.Now(),
		}).Error
}

func (r *Repository) IncrementTaskRetries(ctx context.Context, taskID string) error {
	return r.db.WithContext(ctx).Model(&models.Task{}).Where("id = ?", taskID).
		Update("retries", gorm.Expr("retries + 1")).Error
}

func (r *Repository) UpdateTaskProgress(ctx context.Context, taskID string, progress models.TaskProgress) error {
	return r.db.WithContext(ctx).Model(&models.Task{}).Where("id = ?", taskID).
		Update("progress", progress).Error
}

func (r *Repository) ListTasksByJobAndStage(ctx context.Context, jobID, stage string) ([]models.Task, error) {
	var rows []models.Task
	err := r.db.WithContext(ctx).Where("job_id = ? AND stage = ?", jobID, stage).Find(&rows).Error
	return rows, err
}

// StageCounts tallies terminal outcomes for a stage's tasks, the input to
// the partial-readiness policy (failed_count > 0 && success_count > 0 means
// "partial").
func (r *Repository) StageCounts(ctx context.Context, jobID, stage string) (success, failed, total int, err error) {
	rows, err := r.ListTasksByJobAndStage(ctx, jobID, stage)
	if err != nil {
		return 0, 0, 0, err
	}
	for _, t := range rows {
		total++
		switch t.Status {
		case models.TaskStatusSuccess:
			success++
		case models.TaskStatusFailed:
			failed++
		}
	}
	return success, failed, total, nil
}

func (r *Repository) RequestTaskCancel(ctx context.Context, taskID string) error {
	return r.db.WithContext(ctx).Model(&models.Task{}).Where("id = ?", taskID).
		Update("cancel_requested", true).Error
}
