package models

import "time"

// Character is project-scoped; Name is unique within a project. Referenced
// by name from Shots — name matching is exact-string, no fuzzy resolution.
type Character struct {
	ID              string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	ProjectID       string    `gorm:"index:idx_char_project_name;type:varchar(64)" json:"projectId"`
	Name            string    `gorm:"index:idx_char_project_name;type:varchar(128)" json:"name"`
	VisualTraits    string    `gorm:"type:text" json:"visualTraits"`
	KeyVisualTraits string    `gorm:"type:text" json:"keyVisualTraits"`
	AvatarURL       string    `json:"avatarUrl"`
	GeneratedPrompt string    `gorm:"type:text" json:"generatedPrompt"`
	Version         int       `json:"version"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func (Character) TableName() string { return "character" }

// APIKey is a per-user credential record for a named provider. The secret
// is never surfaced verbatim beyond the Provider Adapter Layer (§3).
type APIKey struct {
	ID        string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	UserID    string    `gorm:"index;type:varchar(64)" json:"userId"`
	Provider  string    `gorm:"type:varchar(64)" json:"provider"`
	BaseURL   string    `json:"baseUrl"`
	Secret    string    `gorm:"type:varchar(512)" json:"-"`
	Status    string    `gorm:"type:varchar(16)" json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (APIKey) TableName() string { return "api_key" }
