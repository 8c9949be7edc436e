// Package domain contains the contract tracking models.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

const (
	StatusDraft      = "draft"
	StatusActive     = "active"
	StatusExpired    = "expired"
	StatusTerminated = "terminated"
)

// Contract is an agreement with a vendor. Value is stored in minor currency
// units.
type Contract struct {
	ID        snowflake.ID      `gorm:"primaryKey" json:"id"`
	OrgID     snowflake.ID      `gorm:"not null;index" json:"org_id"`
	VendorID  snowflake.ID      `gorm:"not null;index" json:"vendor_id"`
	Title     string            `gorm:"type:text;not null" json:"title"`
	Value     int64             `gorm:"not null;default:0" json:"value"`
	Currency  string            `gorm:"type:text;not null;default:'USD'" json:"currency"`
	Status    string            `gorm:"type:text;not null;default:'draft'" json:"status"`
	StartDate time.Time         `gorm:"not null" json:"start_date"`
	EndDate   time.Time         `gorm:"not null;index" json:"end_date"`
	AutoRenew bool              `gorm:"not null;default:false" json:"auto_renew"`
	Metadata  datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Contract) TableName() string { return "contracts" }

var (
	ErrContractNotFound = errors.New("contract_not_found")
	ErrInvalidContract  = errors.New("invalid_contract")
	ErrInvalidPeriod    = errors.New("invalid_period")
	ErrInvalidStatus    = errors.New("invalid_status")
)

type CreateContractRequest struct {
	VendorID  snowflake.ID `json:"vendor_id,string"`
	Title     string       `json:"title"`
	Value     int64        `json:"value"`
	Currency  string       `json:"currency"`
	StartDate time.Time    `json:"start_date"`
	EndDate   time.Time    `json:"end_date"`
	AutoRenew bool         `json:"auto_renew"`
}

type Service interface {
	Create(ctx context.Context, orgID snowflake.ID, req CreateContractRequest) (*Contract, error)
	GetByID(ctx context.Context, orgID snowflake.ID, id snowflake.ID) (*Contract, error)
	List(ctx context.Context, orgID snowflake.ID, status string) ([]Contract, error)
	ExpiringWithin(ctx context.Context, orgID snowflake.ID, window time.Duration) ([]Contract, error)
	SetStatus(ctx context.Context, orgID snowflake.ID, id snowflake.ID, status string) (*Contract, error)
}

type Repository interface {
	Create(ctx context.Context, contract Contract) error
	FindByID(ctx context.Context, orgID, id snowflake.ID) (*Contract, error)
	List(ctx context.Context, orgID snowflake.ID, status string) ([]Contract, error)
	ListExpiring(ctx context.Context, orgID snowflake.ID, from, until time.Time) ([]Contract, error)
	Save(ctx context.Context, contract *Contract) error
	CountByStatus(ctx context.Context, orgID snowflake.ID, status string) (int64, error)
	CountExpiring(ctx context.Context, orgID snowflake.ID, from, until time.Time) (int64, error)
	CountCreatedBetween(ctx context.Context, orgID snowflake.ID, from, until time.Time) (int64, error)
	TotalActiveValue(ctx context.Context, orgID snowflake.ID) (int64, error)
}
