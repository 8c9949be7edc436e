// Package dashboard derives the KPI figures shown on the landing view from
// the vendor and contract stores.
package dashboard

import (
	"context"
	"math"
	"time"

	"github.com/bwmarrin/snowflake"
	contractdomain "github.com/procurehub/procurehub/internal/contract/domain"
	vendordomain "github.com/procurehub/procurehub/internal/vendormgmt/domain"
	"go.uber.org/zap"
)

const (
	// ExpiryWindow is the near horizon for the expiring-contracts KPI.
	ExpiryWindow = 30 * 24 * time.Hour
	// ExtendedExpiryWindow is the far horizon.
	ExtendedExpiryWindow = 90 * 24 * time.Hour
	// TrendPeriod is the width of one trend bucket: the current period is
	// the last 30 days, the previous period the 30 days before it.
	TrendPeriod = 30 * 24 * time.Hour
)

// Trend compares record creation across two adjacent periods.
type Trend struct {
	Current  int64 `json:"current"`
	Previous int64 `json:"previous"`
	Delta    int64 `json:"delta"`
}

// Stats is the aggregate snapshot for one organization.
type Stats struct {
	VendorCount        int64            `json:"vendor_count"`
	VendorsByTier      map[string]int64 `json:"vendors_by_tier"`
	HighRiskVendors    int64            `json:"high_risk_vendors"`
	AverageRiskScore   float64          `json:"average_risk_score"`
	ActiveContracts    int64            `json:"active_contracts"`
	TotalContractValue int64            `json:"total_contract_value"`
	ExpiringIn30Days   int64            `json:"expiring_in_30_days"`
	ExpiringIn90Days   int64            `json:"expiring_in_90_days"`
	VendorTrend        Trend            `json:"vendor_trend"`
	ContractTrend      Trend            `json:"contract_trend"`
}

type Service interface {
	Stats(ctx context.Context, orgID snowflake.ID) (*Stats, error)
}

type service struct {
	vendors   vendordomain.Repository
	contracts contractdomain.Repository
	log       *zap.Logger
}

func NewService(vendors vendordomain.Repository, contracts contractdomain.Repository, log *zap.Logger) Service {
	return &service{
		vendors:   vendors,
		contracts: contracts,
		log:       log.Named("dashboard.service"),
	}
}

func (s *service) Stats(ctx context.Context, orgID snowflake.ID) (*Stats, error) {
	vendorCount, err := s.vendors.CountByOrg(ctx, orgID)
	if err != nil {
		return nil, err
	}
	byTier, err := s.vendors.CountByRiskTier(ctx, orgID)
	if err != nil {
		return nil, err
	}
	highRisk, err := s.vendors.CountHighRisk(ctx, orgID)
	if err != nil {
		return nil, err
	}
	avgRisk, err := s.vendors.AverageRiskScore(ctx, orgID)
	if err != nil {
		return nil, err
	}

	activeContracts, err := s.contracts.CountByStatus(ctx, orgID, contractdomain.StatusActive)
	if err != nil {
		return nil, err
	}
	totalValue, err := s.contracts.TotalActiveValue(ctx, orgID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	expiring30, err := s.contracts.CountExpiring(ctx, orgID, now, now.Add(ExpiryWindow))
	if err != nil {
		return nil, err
	}
	expiring90, err := s.contracts.CountExpiring(ctx, orgID, now, now.Add(ExtendedExpiryWindow))
	if err != nil {
		return nil, err
	}

	vendorTrend, err := s.trend(ctx, now, orgID, s.vendors.CountCreatedBetween)
	if err != nil {
		return nil, err
	}
	contractTrend, err := s.trend(ctx, now, orgID, s.contracts.CountCreatedBetween)
	if err != nil {
		return nil, err
	}

	return &Stats{
		VendorCount:        vendorCount,
		VendorsByTier:      byTier,
		HighRiskVendors:    highRisk,
		AverageRiskScore:   math.Round(avgRisk*10) / 10,
		ActiveContracts:    activeContracts,
		TotalContractValue: totalValue,
		ExpiringIn30Days:   expiring30,
		ExpiringIn90Days:   expiring90,
		VendorTrend:        vendorTrend,
		ContractTrend:      contractTrend,
	}, nil
}

func (s *service) trend(
	ctx context.Context,
	now time.Time,
	orgID snowflake.ID,
	count func(ctx context.Context, orgID snowflake.ID, from, until time.Time) (int64, error),
) (Trend, error) {
	periodStart := now.Add(-TrendPeriod)
	current, err := count(ctx, orgID, periodStart, now)
	if err != nil {
		return Trend{}, err
	}
	previous, err := count(ctx, orgID, periodStart.Add(-TrendPeriod), periodStart)
	if err != nil {
		return Trend{}, err
	}
	return Trend{
		Current:  current,
		Previous: previous,
		Delta:    current - previous,
	}, nil
}
