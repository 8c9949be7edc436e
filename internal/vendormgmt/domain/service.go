package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrVendorNotFound = errors.New("vendor_not_found")
	ErrInvalidVendor  = errors.New("invalid_vendor")
	ErrInvalidStatus  = errors.New("invalid_status")
)

type Service interface {
	Create(ctx context.Context, orgID snowflake.ID, req CreateVendorRequest) (*Vendor, error)
	GetByID(ctx context.Context, orgID snowflake.ID, id snowflake.ID) (*Vendor, error)
	List(ctx context.Context, orgID snowflake.ID, filter ListFilter) ([]Vendor, error)
	UpdateScores(ctx context.Context, orgID snowflake.ID, id snowflake.ID, req UpdateScoresRequest) (*Vendor, error)
	SetStatus(ctx context.Context, orgID snowflake.ID, id snowflake.ID, status string) (*Vendor, error)
}

type CreateVendorRequest struct {
	Name         string  `json:"name"`
	Category     string  `json:"category"`
	ContactEmail string  `json:"contact_email"`
	Website      string  `json:"website"`
	SpendYTD     int64   `json:"spend_ytd"`
	Delivery     float64 `json:"on_time_delivery_rate"`
	Quality      float64 `json:"quality_score"`
	Compliance   float64 `json:"compliance_score"`
}

type UpdateScoresRequest struct {
	Delivery   *float64 `json:"on_time_delivery_rate"`
	Quality    *float64 `json:"quality_score"`
	Compliance *float64 `json:"compliance_score"`
	SpendYTD   *int64   `json:"spend_ytd"`
}

type ListFilter struct {
	Status   string
	RiskTier string
	Category string
}

type Repository interface {
	Create(ctx context.Context, vendor Vendor) error
	FindByID(ctx context.Context, orgID, id snowflake.ID) (*Vendor, error)
	List(ctx context.Context, orgID snowflake.ID, filter ListFilter) ([]Vendor, error)
	Save(ctx context.Context, vendor *Vendor) error
	CountByOrg(ctx context.Context, orgID snowflake.ID) (int64, error)
	CountHighRisk(ctx context.Context, orgID snowflake.ID) (int64, error)
	CountByRiskTier(ctx context.Context, orgID snowflake.ID) (map[string]int64, error)
	CountCreatedBetween(ctx context.Context, orgID snowflake.ID, from, until time.Time) (int64, error)
	AverageRiskScore(ctx context.Context, orgID snowflake.ID) (float64, error)
}
