package models

import "time"

const (
	VideoTaskStatusValidating   = "validating"
	VideoTaskStatusDownloading  = "downloading"
	VideoTaskStatusSynthesizing = "synthesizing"
	VideoTaskStatusConcatenating = "concatenating"
	VideoTaskStatusUploading    = "uploading"
	VideoTaskStatusCompleted    = "completed"
	VideoTaskStatusFailed       = "failed"
)

// VideoTask is the terminal assembly record per chapter, §3.
type VideoTask struct {
	ID                  string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	ChapterID           string    `gorm:"uniqueIndex;type:varchar(64)" json:"chapterId"`
	Resolution          string    `json:"resolution"`
	FPS                 int       `json:"fps"`
	BGMRef              string    `json:"bgmRef,omitempty"`
	BGMVolume           float64   `json:"bgmVolume"`
	Status              string    `gorm:"type:varchar(16)" json:"status"`
	Progress            float64   `json:"progress"`
	CurrentSentenceIndex int      `json:"currentSentenceIndex"`
	TotalSentences      int       `json:"totalSentences"`
	CurrentClipIndex    int       `json:"currentClipIndex"`
	TotalClips          int       `json:"totalClips"`
	VideoURL            string    `json:"videoUrl"`
	ErrorMessage        string    `gorm:"type:text" json:"errorMessage"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

func (VideoTask) TableName() string { return "video_task" }
