package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/waveCodeSite/aicg/internal/models"
)

// UpsertVideoTask creates the one VideoTask row a chapter owns, or returns
// the existing one: ChapterID is uniquely indexed, so a second Compose Video
// job resumes the same row instead of racing a duplicate assembly run.
func (r *Repository) UpsertVideoTask(ctx context.Context, chapterID, resolution string, fps int, bgmRef string, bgmVolume float64) (*models.VideoTask, error) {
	var vt models.VideoTask
	err := r.db.WithContext(ctx).First(&vt, "chapter_id = ?", chapterID).Error
	if err == nil {
		return &vt, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}
	vt = models.VideoTask{
		ID:         uuid.NewString(),
		ChapterID:  chapterID,
		Resolution: resolution,
		FPS:        fps,
		BGMRef:     bgmRef,
		BGMVolume:  bgmVolume,
		Status:     models.VideoTaskStatusValidating,
	}
	if err := r.db.WithContext(ctx).Create(&vt).Error; err != nil {
		return nil, err
	}
	return &vt, nil
}

func (r *Repository) GetVideoTaskByChapter(ctx context.Context, chapterID string) (*models.VideoTask, error) {
	var vt models.VideoTask
	if err := r.db.WithContext(ctx).First(&vt, "chapter_id = ?", chapterID).Error; err != nil {
		return nil, wrapNotFound(err, "video task")
	}
	return &vt, nil
}

// UpdateVideoTaskProgress persists the assembly stage pointer (current
// sentence/clip index out of total) that internal/assembly reports as it
// walks the download-concat-mix-upload pipeline.
func (r *Repository) UpdateVideoTaskProgress(ctx context.Context, id, status string, progress float64, currentSentence, currentClip int) error {
	return r.db.WithContext(ctx).Model(&models.VideoTask{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":                 status,
			"progress":               progress,
			"current_sentence_index": currentSentence,
			"current_clip_index":     currentClip,
		}).Error
}

func (r *Repository) FinishVideoTask(ctx context.Context, id, videoURL, errMsg string) error {
	status := models.VideoTaskStatusCompleted
	if errMsg != "" {
		status = models.VideoTaskStatusFailed
	}
	return r.db.WithContext(ctx).Model(&models.VideoTask{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        status,
			"video_url":     videoURL,
			"error_message": errMsg,
			"progress":      1.0,
		}).Error
}
