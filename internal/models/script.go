package models

import "time"

// Script is one per chapter in the movie pipeline; owns ordered Scenes.
type Script struct {
	ID        string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	ChapterID string    `gorm:"uniqueIndex;type:varchar(64)" json:"chapterId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Script) TableName() string { return "script" }

// Scene is ordered within a Script; owns ordered Shots and has an
// environment-only reference image.
type Scene struct {
	ID            string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	ScriptID      string    `gorm:"index;type:varchar(64)" json:"scriptId"`
	Order         int       `json:"order"`
	Description   string    `gorm:"type:text" json:"description"`
	SceneImageURL string    `json:"sceneImageUrl"`
	Version       int       `json:"version"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (Scene) TableName() string { return "scene" }

const (
	ShotStatusPending    = "pending"
	ShotStatusProcessing = "processing"
	ShotStatusCompleted  = "completed"
	ShotStatusFailed     = "failed"
)

// Shot is ordered within a Scene; the smallest filmable unit. Its keyframe
// must be generatable independently of dialogue; the ordered sequence of
// Shots is the video atom.
type Shot struct {
	ID            string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	SceneID       string    `gorm:"index;type:varchar(64)" json:"sceneId"`
	Order         int       `json:"order"`
	Dialogue      string    `gorm:"type:text" json:"dialogue"`
	KeyframeURL   string    `json:"keyframeUrl"`
	KeyframePrompt string   `gorm:"type:text" json:"keyframePrompt"`
	CharacterRefs StringSet `gorm:"type:json" json:"characterRefs"`
	Status        string    `gorm:"type:varchar(16)" json:"status"`
	ErrorMessage  string    `gorm:"type:text" json:"errorMessage"`
	Version       int       `json:"version"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (Shot) TableName() string { return "shot" }

const (
	TransitionStatusPending    = "pending"
	TransitionStatusProcessing = "processing"
	TransitionStatusCompleted  = "completed"
	TransitionStatusFailed     = "failed"
)

// Transition is the directed edge between two consecutive Shots within a
// Script. Exactly one Transition exists per consecutive ordered Shot pair.
type Transition struct {
	ID             string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	ScriptID       string    `gorm:"index;type:varchar(64)" json:"scriptId"`
	FromShotID     string    `gorm:"index;type:varchar(64)" json:"fromShotId"`
	ToShotID       string    `gorm:"index;type:varchar(64)" json:"toShotId"`
	Order          int       `json:"order"`
	VideoPrompt    string    `gorm:"type:text" json:"videoPrompt"`
	VideoURL       string    `json:"videoUrl"`
	Status         string    `gorm:"type:varchar(16)" json:"status"`
	ExternalTaskID string    `json:"externalTaskId"`
	APIKeyID       string    `gorm:"type:varchar(64)" json:"apiKeyId"`
	Model          string    `gorm:"type:varchar(128)" json:"model"`
	JobID          string    `gorm:"index;type:varchar(64)" json:"jobId"`
	ErrorMessage   string    `gorm:"type:text" json:"errorMessage"`
	Version        int       `json:"version"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func (Transition) TableName() string { return "transition" }
