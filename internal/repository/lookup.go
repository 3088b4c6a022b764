package repository

import (
	"context"

	"github.com/waveCodeSite/aicg/internal/models"
)

// These resolve the owning Project for an entity several joins down, used
// by taskrt to build a Blob Store key's {project_id} prefix without every
// caller having to thread the project id through task payloads.

func (r *Repository) ProjectIDForScript(ctx context.Context, scriptID string) (string, error) {
	var chapterID string
	if err := r.db.WithContext(ctx).Model(&models.Script{}).Where("id = ?", scriptID).Pluck("chapter_id", &chapterID).Error; err != nil {
		return "", err
	}
	return r.projectIDForChapter(ctx, chapterID)
}

func (r *Repository) ProjectIDForScene(ctx context.Context, sceneID string) (string, error) {
	var scriptID string
	if err := r.db.WithContext(ctx).Model(&models.Scene{}).Where("id = ?", sceneID).Pluck("script_id", &scriptID).Error; err != nil {
		return "", err
	}
	return r.ProjectIDForScript(ctx, scriptID)
}

func (r *Repository) ProjectIDForSentence(ctx context.Context, sentenceID string) (string, error) {
	var chapterID string
	if err := r.db.WithContext(ctx).Model(&models.Sentence{}).Where("id = ?", sentenceID).Pluck("chapter_id", &chapterID).Error; err != nil {
		return "", err
	}
	return r.projectIDForChapter(ctx, chapterID)
}

func (r *Repository) projectIDForChapter(ctx context.Context, chapterID string) (string, error) {
	var projectID string
	err := r.db.WithContext(ctx).Model(&models.Chapter{}).Where("id = ?", chapterID).Pluck("project_id", &projectID).Error
	return projectID, err
}
