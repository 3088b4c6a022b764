package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/waveCodeSite/aicg/internal/models"
)

func (r *Repository) CreateSentences(ctx context.Context, sentences []models.Sentence) error {
	for i := range sentences {
		if sentences[i].ID == "" {
			sentences[i].ID = uuid.NewString()
		}
	}
	if len(sentences) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&sentences).Error
}

func (r *Repository) ListSentences(ctx context.Context, chapterID string) ([]models.Sentence, error) {
	var rows []models.Sentence
	err := r.db.WithContext(ctx).Where("chapter_id = ?", chapterID).Order("`order` ASC").Find(&rows).Error
	return rows, err
}

func (r *Repository) GetSentenceAsset(ctx context.Context, sentenceID string) (*models.SentenceAsset, error) {
	var a models.SentenceAsset
	err := r.db.WithContext(ctx).First(&a, "sentence_id = ?", sentenceID).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// UpsertSentenceImage writes the sentence's image URL, creating the
// SentenceAsset row on first write, and runs through upsertURL so a rewrite
// appends the prior image to GenerationHistory.
func (r *Repository) UpsertSentenceImage(ctx context.Context, sentenceID, url, prompt, model string) error {
	existing, err := r.GetSentenceAsset(ctx, sentenceID)
	if err != nil {
		return err
	}
	prior := ""
	if existing != nil {
		prior = existing.ImageURL
	}
	return r.upsertURL(ctx, urlUpdate{
		resourceType: models.ArtifactKindSentenceImage,
		resourceID:   sentenceID,
		newURL:       url,
		priorURL:     prior,
		prompt:       prompt,
		model:        model,
	}, func(tx *gorm.DB) error {
		if existing == nil {
			return tx.Create(&models.SentenceAsset{
				ID:          uuid.NewString(),
				SentenceID:  sentenceID,
				ImageURL:    url,
				ImagePrompt: prompt,
				Version:     1,
			}).Error
		}
		return tx.Model(&models.SentenceAsset{}).Where("sentence_id = ?", sentenceID).
			Updates(map[string]interface{}{
				"image_url":    url,
				"image_prompt": prompt,
				"version":      gorm.Expr("version + 1"),
			}).Error
	})
}

// UpsertSentenceAudio writes the sentence's narration audio URL and its
// duration. DurationMs is stored as the caller supplies it; the TTS handler
// passes the adapter's AudioResult.DurationMs, which is the provider-reported
// value when the provider sends one. The audio itself is not probed here.
func (r *Repository) UpsertSentenceAudio(ctx context.Context, sentenceID, url string, durationMs int, voicePrompt, model string) error {
	existing, err := r.GetSentenceAsset(ctx, sentenceID)
	if err != nil {
		return err
	}
	prior := ""
	if existing != nil {
		prior = existing.AudioURL
	}
	return r.upsertURL(ctx, urlUpdate{
		resourceType: models.ArtifactKindSentenceAudio,
		resourceID:   sentenceID,
		newURL:       url,
		priorURL:     prior,
		prompt:       voicePrompt,
		model:        model,
	}, func(tx *gorm.DB) error {
		if existing == nil {
			return tx.Create(&models.SentenceAsset{
				ID:          uuid.NewString(),
				SentenceID:  sentenceID,
				AudioURL:    url,
				DurationMs:  durationMs,
				VoicePrompt: voicePrompt,
				Version:     1,
			}).Error
		}
		return tx.Model(&models.SentenceAsset{}).Where("sentence_id = ?", sentenceID).
			Updates(map[string]interface{}{
				"audio_url":    url,
				"duration_ms":  durationMs,
				"voice_prompt": voicePrompt,
				"version":      gorm.Expr("version + 1"),
			}).Error
	})
}
