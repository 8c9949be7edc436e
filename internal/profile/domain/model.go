// Package domain contains the provisioned user profile model.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Profile is the application-level record behind an authenticated identity.
// AuthID carries the identity's external UUID; a missing row for a valid
// AuthID means the account has authenticated but was never provisioned.
type Profile struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	AuthID     string            `gorm:"type:text;not null;uniqueIndex:ux_profiles_auth_id" json:"auth_id"`
	Email      string            `gorm:"type:text;not null" json:"email"`
	FirstName  string            `gorm:"type:text" json:"first_name"`
	LastName   string            `gorm:"type:text" json:"last_name"`
	OrgID      snowflake.ID      `gorm:"not null;index" json:"org_id"`
	Role       string            `gorm:"type:text;not null" json:"role"`
	Department string            `gorm:"type:text" json:"department"`
	Title      string            `gorm:"type:text" json:"title"`
	Origin     string            `gorm:"type:text;not null;default:'web_signup'" json:"origin"`
	Metadata   datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata"`
	CreatedAt  time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt  time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Profile) TableName() string { return "profiles" }
