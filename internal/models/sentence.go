package models

import "time"

// Sentence is an ordered leaf of chapter text in the narrative pipeline.
type Sentence struct {
	ID        string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	ChapterID string    `gorm:"index;type:varchar(64)" json:"chapterId"`
	Order     int       `json:"order"`
	Text      string    `gorm:"type:text" json:"text"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Sentence) TableName() string { return "sentence" }

// SentenceAsset is the at-most-one generation tuple owned by a Sentence.
// DurationMs is the duration the TTS adapter reported for AudioURL (the
// adapter measures the payload only when the provider omits it); assembly
// uses it as the clip length and does not re-measure the audio.
type SentenceAsset struct {
	ID           string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	SentenceID   string    `gorm:"uniqueIndex;type:varchar(64)" json:"sentenceId"`
	ImageURL     string    `json:"imageUrl"`
	AudioURL     string    `json:"audioUrl"`
	DurationMs   int       `json:"durationMs"`
	SubtitleText string    `gorm:"type:text" json:"subtitleText"`
	ImagePrompt  string    `gorm:"type:text" json:"imagePrompt"`
	VoicePrompt  string    `gorm:"type:text" json:"voicePrompt"`
	Version      int       `json:"version"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (SentenceAsset) TableName() string { return "sentence_asset" }
