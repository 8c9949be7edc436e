// Package domain contains the vendor registry models.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

const (
	StatusPending  = "pending"
	StatusActive   = "active"
	StatusInactive = "inactive"
)

const (
	RiskTierLow      = "low"
	RiskTierMedium   = "medium"
	RiskTierHigh     = "high"
	RiskTierCritical = "critical"
)

// Vendor is a supplier tracked by an organization. The performance rates are
// 0..1 fractions; RiskScore and RiskTier are derived, never written directly
// by callers.
type Vendor struct {
	ID                 snowflake.ID      `gorm:"primaryKey" json:"id"`
	OrgID              snowflake.ID      `gorm:"not null;index" json:"org_id"`
	Name               string            `gorm:"type:text;not null" json:"name"`
	Category           string            `gorm:"type:text" json:"category"`
	Status             string            `gorm:"type:text;not null;default:'pending'" json:"status"`
	ContactEmail       string            `gorm:"type:text" json:"contact_email"`
	Website            string            `gorm:"type:text" json:"website"`
	OnTimeDeliveryRate float64           `gorm:"not null;default:0" json:"on_time_delivery_rate"`
	QualityScore       float64           `gorm:"not null;default:0" json:"quality_score"`
	ComplianceScore    float64           `gorm:"not null;default:0" json:"compliance_score"`
	RiskScore          int               `gorm:"not null;default:0;index" json:"risk_score"`
	RiskTier           string            `gorm:"type:text;not null;default:'low'" json:"risk_tier"`
	SpendYTD           int64             `gorm:"not null;default:0" json:"spend_ytd"`
	Metadata           datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata"`
	CreatedAt          time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt          time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Vendor) TableName() string { return "vendors" }
