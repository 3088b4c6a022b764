package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const (
	JobStatusPending   = "pending"
	JobStatusRunning   = "running"
	JobStatusSuccess   = "success"
	JobStatusFailed    = "failed"
	JobStatusCancelled = "cancelled"
)

// JobStatistics tracks aggregate task outcomes for a Job, §3.
type JobStatistics struct {
	Total   int `json:"total"`
	Success int `json:"success"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

func (s JobStatistics) Value() (driver.Value, error) { return json.Marshal(s) }

func (s *JobStatistics) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New(fmt.Sprint("failed to unmarshal JobStatistics value:", value))
	}
	return json.Unmarshal(bytes, s)
}

// Job is a user-submitted request to drive part of the pipeline.
type Job struct {
	ID               string        `gorm:"primaryKey;type:varchar(64)" json:"id"`
	ChapterID        string        `gorm:"index;type:varchar(64)" json:"chapterId"`
	Kind             string        `gorm:"type:varchar(64)" json:"kind"`
	TargetStage      string        `gorm:"type:varchar(64)" json:"targetStage"`
	Status           string        `gorm:"type:varchar(16)" json:"status"`
	Progress         float64       `json:"progress"`
	Statistics       JobStatistics `gorm:"type:json" json:"statistics"`
	ResultRef        string        `json:"resultRef"`
	Error            string        `gorm:"type:text" json:"error"`
	ContinueOnPartial bool         `json:"continueOnPartial"`
	CancelRequested  bool          `json:"cancelRequested"`
	CreatedAt        time.Time     `json:"createdAt"`
	UpdatedAt        time.Time     `json:"updatedAt"`
}

func (Job) TableName() string { return "job" }

const (
	TaskStatusPending   = "pending"
	TaskStatusBlocked   = "blocked"
	TaskStatusRunning   = "running"
	TaskStatusSuccess   = "success"
	TaskStatusFailed    = "failed"
	TaskStatusCancelled = "cancelled"
)

// TaskKind enumerates the task families the dispatcher switches on, the
// "Polymorphic task payloads" Design Note's tagged union discriminant.
type TaskKind string

const (
	TaskKindExtractCharacters    TaskKind = "extract_characters"
	TaskKindExtractScenes        TaskKind = "extract_scenes"
	TaskKindExtractShots         TaskKind = "extract_shots"
	TaskKindGenerateSceneImage   TaskKind = "generate_scene_image"
	TaskKindGenerateCharacterAvatar TaskKind = "generate_character_avatar"
	TaskKindGenerateKeyframe     TaskKind = "generate_keyframe"
	TaskKindCreateTransition     TaskKind = "create_transition"
	TaskKindSubmitTransitionVideo TaskKind = "submit_transition_video"
	TaskKindComposeVideo         TaskKind = "compose_video"
	TaskKindGenerateSentenceImage TaskKind = "generate_sentence_image"
	TaskKindGenerateSentenceAudio TaskKind = "generate_sentence_audio"
)

// TaskCapability is the provider capability a task kind exercises, used by
// the Task Runtime to pick a concurrency-cap bucket and a retry schedule.
type TaskCapability string

const (
	CapabilityText        TaskCapability = "text"
	CapabilityImage       TaskCapability = "image"
	CapabilityTTS         TaskCapability = "tts"
	CapabilityVideoSubmit TaskCapability = "video_submit"
	CapabilityVideoPoll   TaskCapability = "video_poll"
	CapabilityAssembly    TaskCapability = "assembly"
)

// Task is the executor's unit of work. Payload carries kind-specific
// parameters as a typed tagged union, generalizing the teacher's
// TaskParameters (models/task.go).
type Task struct {
	ID          string      `gorm:"primaryKey;type:varchar(64)" json:"id"`
	JobID       string      `gorm:"index;type:varchar(64)" json:"jobId"`
	ParentID    string      `gorm:"index;type:varchar(64)" json:"parentId,omitempty"`
	Kind        TaskKind    `gorm:"type:varchar(64)" json:"kind"`
	Capability  TaskCapability `gorm:"type:varchar(32)" json:"capability"`
	Stage       string      `gorm:"type:varchar(64)" json:"stage"`
	Status      string      `gorm:"type:varchar(16)" json:"status"`
	Payload     TaskPayload `gorm:"type:json" json:"payload"`
	Progress    TaskProgress `gorm:"type:json" json:"progress"`
	Result      TaskResult  `gorm:"type:json" json:"result"`
	Error       string      `gorm:"type:text" json:"error"`
	ErrorCode   string      `gorm:"type:varchar(64)" json:"errorCode"`
	Retries     int         `json:"retries"`
	CancelRequested bool    `json:"cancelRequested"`
	SubmitSeq   int64       `json:"submitSeq"`
	StartedAt   time.Time   `json:"startedAt"`
	FinishedAt  time.Time   `json:"finishedAt"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

func (Task) TableName() string { return "task" }

// TaskProgress is a {current, total} pair reported by in-flight tasks that
// rolls up to the Job's aggregate progress (§4.4).
type TaskProgress struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

func (p TaskProgress) Value() (driver.Value, error) { return json.Marshal(p) }

func (p *TaskProgress) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New(fmt.Sprint("failed to unmarshal TaskProgress value:", value))
	}
	return json.Unmarshal(bytes, p)
}

// TaskPayload is the tagged union of every task kind's parameters. Exactly
// one field is populated per Kind; the dispatcher pattern-matches on Kind,
// never on the payload's runtime type (Design Note "Polymorphic task
// payloads" — avoids reflection entirely).
type TaskPayload struct {
	ExtractCharacters    *ExtractCharactersPayload    `json:"extract_characters,omitempty"`
	ExtractScenes        *ExtractScenesPayload        `json:"extract_scenes,omitempty"`
	ExtractShots         *ExtractShotsPayload         `json:"extract_shots,omitempty"`
	GenerateSceneImage   *GenerateSceneImagePayload   `json:"generate_scene_image,omitempty"`
	GenerateCharacterAvatar *GenerateCharacterAvatarPayload `json:"generate_character_avatar,omitempty"`
	GenerateKeyframe     *GenerateKeyframePayload     `json:"generate_keyframe,omitempty"`
	CreateTransition     *CreateTransitionPayload     `json:"create_transition,omitempty"`
	SubmitTransitionVideo *SubmitTransitionVideoPayload `json:"submit_transition_video,omitempty"`
	ComposeVideo         *ComposeVideoPayload         `json:"compose_video,omitempty"`
	GenerateSentenceImage *GenerateSentenceImagePayload `json:"generate_sentence_image,omitempty"`
	GenerateSentenceAudio *GenerateSentenceAudioPayload `json:"generate_sentence_audio,omitempty"`
}

func (p TaskPayload) Value() (driver.Value, error) { return json.Marshal(p) }

func (p *TaskPayload) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New(fmt.Sprint("failed to unmarshal TaskPayload value:", value))
	}
	return json.Unmarshal(bytes, p)
}

type ExtractCharactersPayload struct {
	ChapterID string `json:"chapter_id"`
	APIKeyID  string `json:"api_key_id"`
	Model     string `json:"model"`
}

type ExtractScenesPayload struct {
	ChapterID string `json:"chapter_id"`
	APIKeyID  string `json:"api_key_id"`
	Model     string `json:"model"`
}

type ExtractShotsPayload struct {
	SceneID  string `json:"scene_id"`
	APIKeyID string `json:"api_key_id"`
	Model    string `json:"model"`
}

type GenerateSceneImagePayload struct {
	SceneID  string `json:"scene_id"`
	Prompt   string `json:"prompt"`
	APIKeyID string `json:"api_key_id"`
	Model    string `json:"model"`
}

type GenerateCharacterAvatarPayload struct {
	CharacterID string `json:"character_id"`
	Prompt      string `json:"prompt"`
	APIKeyID    string `json:"api_key_id"`
	Model       string `json:"model"`
}

type GenerateKeyframePayload struct {
	ShotID         string   `json:"shot_id"`
	Prompt         string   `json:"prompt"`
	ReferenceImages []string `json:"reference_images,omitempty"`
	APIKeyID       string   `json:"api_key_id"`
	Model          string   `json:"model"`
}

type CreateTransitionPayload struct {
	TransitionID string `json:"transition_id"`
	APIKeyID     string `json:"api_key_id"`
	Model        string `json:"model"`
}

type SubmitTransitionVideoPayload struct {
	TransitionID string `json:"transition_id"`
	FirstFrame   string `json:"first_frame"`
	LastFrame    string `json:"last_frame"`
	DurationS    int    `json:"duration_s"`
	APIKeyID     string `json:"api_key_id"`
	Model        string `json:"model"`
}

type ComposeVideoPayload struct {
	ChapterID  string `json:"chapter_id"`
	Resolution string `json:"resolution"`
	FPS        int    `json:"fps"`
	BGMRef     string `json:"bgm_ref,omitempty"`
	BGMVolume  float64 `json:"bgm_volume"`
}

type GenerateSentenceImagePayload struct {
	SentenceID string `json:"sentence_id"`
	Prompt     string `json:"prompt"`
	APIKeyID   string `json:"api_key_id"`
	Model      string `json:"model"`
}

type GenerateSentenceAudioPayload struct {
	SentenceID string `json:"sentence_id"`
	Text       string `json:"text"`
	VoiceID    string `json:"voice_id"`
	APIKeyID   string `json:"api_key_id"`
	Model      string `json:"model"`
}

// TaskResult holds the minimal resource locator a completed task produces,
// generalizing the teacher's TaskResult (models/task.go).
type TaskResult struct {
	ResourceType   string `json:"resource_type"`
	ResourceID     string `json:"resource_id"`
	ResourceURL    string `json:"resource_url"`
	ExternalTaskID string `json:"external_task_id,omitempty"`
}

func (r TaskResult) Value() (driver.Value, error) { return json.Marshal(r) }

func (r *TaskResult) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New(fmt.Sprint("failed to unmarshal TaskResult value:", value))
	}
	return json.Unmarshal(bytes, r)
}
