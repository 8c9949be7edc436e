package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/procurehub/procurehub/internal/vendormgmt/domain"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, vendor domain.Vendor) error {
	return r.db.WithContext(ctx).Create(&vendor).Error
}

func (r *repository) FindByID(ctx context.Context, orgID, id snowflake.ID) (*domain.Vendor, error) {
	var vendor domain.Vendor
	err := r.db.WithContext(ctx).
		First(&vendor, "org_id = ? AND id = ?", orgID, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrVendorNotFound
	}
	if err != nil {
		return nil, err
	}
	return &vendor, nil
}

func (r *repository) List(ctx context.Context, orgID snowflake.ID, filter domain.ListFilter) ([]domain.Vendor, error) {
	q := r.db.WithContext(ctx).Where("org_id = ?", orgID)
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.RiskTier != "" {
		q = q.Where("risk_tier = ?", filter.RiskTier)
	}
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}

	var vendors []domain.Vendor
	if err := q.Order("risk_score DESC").Find(&vendors).Error; err != nil {
		return nil, err
	}
	return vendors, nil
}

func (r *repository) Save(ctx context.Context, vendor *domain.Vendor) error {
	return r.db.WithContext(ctx).Save(vendor).Error
}

func (r *repository) CountByOrg(ctx context.Context, orgID snowflake.ID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Vendor{}).
		Where("org_id = ?", orgID).
		Count(&count).Error
	return count, err
}

func (r *repository) CountHighRisk(ctx context.Context, orgID snowflake.ID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Vendor{}).
		Where("org_id = ? AND risk_tier IN ?", orgID, []string{domain.RiskTierHigh, domain.RiskTierCritical}).
		Count(&count).Error
	return count, err
}

func (r *repository) CountByRiskTier(ctx context.Context, orgID snowflake.ID) (map[string]int64, error) {
	var rows []struct {
		RiskTier string `gorm:"column:risk_tier"`
		Count    int64  `gorm:"column:count"`
	}
	err := r.db.WithContext(ctx).Raw(
		`SELECT risk_tier, COUNT(*) AS count
		 FROM vendors
		 WHERE org_id = ?
		 GROUP BY risk_tier`,
		orgID,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	// Every tier is present in the result so the dashboard renders zeroes
	// instead of missing keys.
	counts := map[string]int64{
		domain.RiskTierLow:      0,
		domain.RiskTierMedium:   0,
		domain.RiskTierHigh:     0,
		domain.RiskTierCritical: 0,
	}
	for _, row := range rows {
		counts[row.RiskTier] = row.Count
	}
	return counts, nil
}

func (r *repository) CountCreatedBetween(ctx context.Context, orgID snowflake.ID, from, until time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Vendor{}).
		Where("org_id = ? AND created_at >= ? AND created_at < ?", orgID, from, until).
		Count(&count).Error
	return count, err
}

func (r *repository) AverageRiskScore(ctx context.Context, orgID snowflake.ID) (float64, error) {
	var row struct {
		Avg float64 `gorm:"column:avg"`
	}
	err := r.db.WithContext(ctx).Raw(
		`SELECT COALESCE(AVG(risk_score), 0) AS avg FROM vendors WHERE org_id = ?`,
		orgID,
	).Scan(&row).Error
	return row.Avg, err
}
