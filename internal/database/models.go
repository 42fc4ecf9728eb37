package database

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Role values stored on Profile.Role.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Profile mirrors an identity from the hosted auth service and carries its credit balance.
// The ID is the auth service's user id, never generated locally.
type Profile struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	FullName  string    `gorm:"size:255" json:"full_name"`
	AvatarURL string    `gorm:"size:512" json:"avatar_url"`
	Credits   int       `gorm:"not null;default:0;check:credits >= 0" json:"credits"`
	Role      string    `gorm:"size:16;not null;default:user" json:"role"`
	IsBanned  bool      `gorm:"not null;default:false" json:"is_banned"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Project 表示用户通过提示词生成的网站。
type Project struct {
	ID           string    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       string    `gorm:"type:uuid;index;not null" json:"user_id"`
	Author       *Profile  `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"profiles,omitempty"`
	Title        string    `gorm:"size:255;not null" json:"title"`
	Prompt       string    `gorm:"type:text" json:"prompt"`
	HTMLContent  string    `gorm:"type:text" json:"html_content"`
	IsPublic     bool      `gorm:"not null;default:false;index" json:"is_public"`
	ThumbnailURL string    `gorm:"size:1024" json:"thumbnail_url"`
	ThumbnailKey string    `gorm:"size:512" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// BeforeCreate assigns a UUID when none is set.
func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// ProjectVersion is an append-only snapshot of a project's HTML.
type ProjectVersion struct {
	ID            string    `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID     string    `gorm:"type:uuid;not null;uniqueIndex:idx_project_versions_number" json:"project_id"`
	Project       *Project  `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	HTMLContent   string    `gorm:"type:text" json:"html_content"`
	Label         string    `gorm:"size:255" json:"label"`
	VersionNumber int       `gorm:"not null;uniqueIndex:idx_project_versions_number" json:"version_number"`
	CreatedAt     time.Time `json:"created_at"`
}

// BeforeCreate assigns a UUID when none is set.
func (v *ProjectVersion) BeforeCreate(tx *gorm.DB) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	return nil
}

// AiLog is the write-once audit record of one generation attempt.
type AiLog struct {
	ID             string         `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         string         `gorm:"type:uuid;index" json:"user_id"`
	Author         *Profile       `gorm:"foreignKey:UserID;constraint:OnDelete:SET NULL" json:"profiles,omitempty"`
	ProjectID      string         `gorm:"type:uuid;index" json:"project_id"`
	OriginalPrompt string         `gorm:"type:text" json:"original_prompt"`
	EnhancedPrompt string         `gorm:"type:text" json:"enhanced_prompt"`
	ModelUsed      string         `gorm:"size:128" json:"model_used"`
	Success        bool           `gorm:"not null" json:"success"`
	ErrorMessage   string         `gorm:"type:text" json:"error_message"`
	Metadata       datatypes.JSON `gorm:"type:jsonb" json:"metadata"`
	CreatedAt      time.Time      `json:"created_at"`
}

// BeforeCreate assigns a UUID when none is set.
func (l *AiLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}

// AllModels lists the tables owned by this service, in dependency order.
func AllModels() []any {
	return []any{&Profile{}, &Project{}, &ProjectVersion{}, &AiLog{}}
}
