// models/profile_mirror.go
package models

import (
	"time"

	"gorm.io/gorm"
)

// ProfileMirror mirrors display metadata from the profile service so the
// leaderboard can resolve names without a cross-service call per row.
// Table name: profile_mirror
type ProfileMirror struct {
	ID             string    `gorm:"primaryKey;type:uuid;not null" json:"id"`
	ExternalUserID string    `gorm:"type:uuid;not null;uniqueIndex" json:"external_user_id"` // Primary lookup key
	TenantID       string    `gorm:"not null;index" json:"tenant_id"`
	DisplayName    string    `gorm:"type:varchar(128);not null" json:"display_name"`
	AvatarURL      string    `gorm:"type:text" json:"avatar_url"`
	GradeLevel     string    `gorm:"type:varchar(32)" json:"grade_level"`
	IsActive       bool      `gorm:"not null" json:"is_active"`
	LastSyncedAt   time.Time `gorm:"not null" json:"last_synced_at"`
	CreatedAt      time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time `gorm:"not null" json:"updated_at"`

	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (ProfileMirror) TableName() string {
	return "profile_mirror"
}
