package models

import "time"

// GenerationHistory is an append-only per-artifact log. Selecting a history
// entry mutates the live artifact to point at the historical URL; the
// current live entry becomes one more history row (spec.md §3). History
// never points upward — it is addressed by (ResourceType, ResourceID) only,
// never by a pointer back to the live row (Design Note "Cyclic references").
type GenerationHistory struct {
	ID           string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	ResourceType string    `gorm:"index:idx_hist_resource;type:varchar(32)" json:"resourceType"`
	ResourceID   string    `gorm:"index:idx_hist_resource;type:varchar(64)" json:"resourceId"`
	URL          string    `json:"url"`
	Prompt       string    `gorm:"type:text" json:"prompt"`
	Model        string    `json:"model"`
	Orphaned     bool      `json:"orphaned"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (GenerationHistory) TableName() string { return "generation_history" }

// ArtifactKind enumerates the resource_type values used as the first half of
// a GenerationHistory key.
type ArtifactKind string

const (
	ArtifactKindSceneImage    ArtifactKind = "scene_image"
	ArtifactKindCharacterAvatar ArtifactKind = "character_avatar"
	ArtifactKindShotKeyframe  ArtifactKind = "shot_keyframe"
	ArtifactKindTransitionVideo ArtifactKind = "transition_video"
	ArtifactKindSentenceImage ArtifactKind = "sentence_image"
	ArtifactKindSentenceAudio ArtifactKind = "sentence_audio"
)
