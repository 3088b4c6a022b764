package repository

import (
	"context"

	"github.com/waveCodeSite/aicg/internal/apperr"
	"github.com/waveCodeSite/aicg/internal/models"
)

// ListHistory returns every generation attempt recorded for one artifact,
// newest first, backing the history browser a client renders before calling
// SelectHistory.
func (r *Repository) ListHistory(ctx context.Context, kind models.ArtifactKind, resourceID string) ([]models.GenerationHistory, error) {
	var rows []models.GenerationHistory
	err := r.db.WithContext(ctx).
		Where("resource_type = ? AND resource_id = ?", string(kind), resourceID).
		Order("created_at DESC").Find(&rows).Error
	return rows, err
}

// SelectHistory implements the "select history" operation: the live
// artifact is rewritten to the chosen historical URL, and its current value
// is pushed onto the history stack in the same transaction — exactly the
// upsertURL contract every *_repo.go Upsert* method already follows, so
// this just resolves which one to call for the given kind.
func (r *Repository) SelectHistory(ctx context.Context, kind models.ArtifactKind, resourceID, historyID string) error {
	var entry models.GenerationHistory
	if err := r.db.WithContext(ctx).First(&entry, "id = ?", historyID).Error; err != nil {
		return wrapNotFound(err, "history entry")
	}
	if entry.ResourceType != string(kind) || entry.ResourceID != resourceID {
		return apperr.Validation("history entry does not belong to this resource")
	}

	switch kind {
	case models.ArtifactKindSceneImage:
		return r.UpsertSceneImage(ctx, resourceID, entry.URL, entry.Prompt, entry.Model)
	case models.ArtifactKindCharacterAvatar:
		return r.UpsertCharacterAvatar(ctx, resourceID, entry.URL, entry.Prompt, entry.Model)
	case models.ArtifactKindShotKeyframe:
		return r.UpsertShotKeyframe(ctx, resourceID, entry.URL, entry.Prompt, entry.Model)
	case models.ArtifactKindTransitionVideo:
		return r.UpsertTransitionVideo(ctx, resourceID, entry.URL, entry.Prompt, entry.Model)
	case models.ArtifactKindSentenceImage:
		return r.UpsertSentenceImage(ctx, resourceID, entry.URL, entry.Prompt, entry.Model)
	default:
		return apperr.Validation("history selection is not supported for this artifact kind")
	}
}
