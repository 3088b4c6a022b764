// Package models defines the persisted entities of the production pipeline:
// projects, chapters, their narrative/movie children, and the executor's
// own job/task bookkeeping. Each type carries a GORM table mapping in the
// style of the teacher's models/project.go.
package models

import "time"

// ProjectType distinguishes the two pipelines the executor knows how to drive.
type ProjectType string

const (
	ProjectTypeNarrative ProjectType = "narrative"
	ProjectTypeMovie     ProjectType = "movie"
)

// Project is a user-owned container for chapters.
type Project struct {
	ID        string      `gorm:"primaryKey;type:varchar(64)" json:"id"`
	UserID    string      `gorm:"index;type:varchar(64)" json:"userId"`
	Title     string      `json:"title"`
	Type      ProjectType `gorm:"type:varchar(16)" json:"type"`
	Style     string      `json:"style"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

func (Project) TableName() string { return "project" }

// PipelineStatus is the Chapter's monotone production state, §3.
type PipelineStatus string

const (
	PipelineStatusDraft               PipelineStatus = "draft"
	PipelineStatusParsed              PipelineStatus = "parsed"
	PipelineStatusScriptGenerated     PipelineStatus = "script_generated"
	PipelineStatusMaterialsPrepared   PipelineStatus = "materials_prepared"
	PipelineStatusCompleted           PipelineStatus = "completed"
	PipelineStatusFailed              PipelineStatus = "failed"
)

// pipelineStatusOrder gives the monotone ordinal of every non-sink status;
// PipelineStatusFailed is a sink reachable from any state and is not ordered.
var pipelineStatusOrder = map[PipelineStatus]int{
	PipelineStatusDraft:             0,
	PipelineStatusParsed:            1,
	PipelineStatusScriptGenerated:   2,
	PipelineStatusMaterialsPrepared: 3,
	PipelineStatusCompleted:         4,
}

// CanAdvance reports whether a transition from `from` to `to` is a forward
// move along the enum, per the invariant in spec.md §8 property 3. Resets to
// an earlier status are rejected here; an explicit admin reset bypasses this
// check by writing the column directly rather than calling CanAdvance.
func CanAdvance(from, to PipelineStatus) bool {
	if to == PipelineStatusFailed {
		return true
	}
	fromOrd, ok := pipelineStatusOrder[from]
	if !ok {
		return false
	}
	toOrd, ok := pipelineStatusOrder[to]
	if !ok {
		return false
	}
	return toOrd > fromOrd
}

// Chapter is an ordered slice of text belonging to a project; the unit of
// production.
type Chapter struct {
	ID             string         `gorm:"primaryKey;type:varchar(64)" json:"id"`
	ProjectID      string         `gorm:"index;type:varchar(64)" json:"projectId"`
	Order          int            `json:"order"`
	Title          string         `json:"title"`
	RawText        string         `gorm:"type:longtext" json:"rawText"`
	PipelineStatus PipelineStatus `gorm:"type:varchar(32)" json:"pipelineStatus"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

func (Chapter) TableName() string { return "chapter" }
