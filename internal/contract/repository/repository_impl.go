package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/procurehub/procurehub/internal/contract/domain"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, contract domain.Contract) error {
	return r.db.WithContext(ctx).Create(&contract).Error
}

func (r *repository) FindByID(ctx context.Context, orgID, id snowflake.ID) (*domain.Contract, error) {
	var contract domain.Contract
	err := r.db.WithContext(ctx).
		First(&contract, "org_id = ? AND id = ?", orgID, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrContractNotFound
	}
	if err != nil {
		return nil, err
	}
	return &contract, nil
}

func (r *repository) List(ctx context.Context, orgID snowflake.ID, status string) ([]domain.Contract, error) {
	q := r.db.WithContext(ctx).Where("org_id = ?", orgID)
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var contracts []domain.Contract
	if err := q.Order("end_date ASC").Find(&contracts).Error; err != nil {
		return nil, err
	}
	return contracts, nil
}

func (r *repository) ListExpiring(ctx context.Context, orgID snowflake.ID, from, until time.Time) ([]domain.Contract, error) {
	var contracts []domain.Contract
	err := r.db.WithContext(ctx).
		Where("org_id = ? AND status = ? AND end_date >= ? AND end_date < ?",
			orgID, domain.StatusActive, from, until).
		Order("end_date ASC").
		Find(&contracts).Error
	if err != nil {
		return nil, err
	}
	return contracts, nil
}

func (r *repository) Save(ctx context.Context, contract *domain.Contract) error {
	return r.db.WithContext(ctx).Save(contract).Error
}

func (r *repository) CountByStatus(ctx context.Context, orgID snowflake.ID, status string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Contract{}).
		Where("org_id = ? AND status = ?", orgID, status).
		Count(&count).Error
	return count, err
}

func (r *repository) CountExpiring(ctx context.Context, orgID snowflake.ID, from, until time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Contract{}).
		Where("org_id = ? AND status = ? AND end_date >= ? AND end_date < ?",
			orgID, domain.StatusActive, from, until).
		Count(&count).Error
	return count, err
}

func (r *repository) CountCreatedBetween(ctx context.Context, orgID snowflake.ID, from, until time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Contract{}).
		Where("org_id = ? AND created_at >= ? AND created_at < ?", orgID, from, until).
		Count(&count).Error
	return count, err
}

func (r *repository) TotalActiveValue(ctx context.Context, orgID snowflake.ID) (int64, error) {
	var row struct {
		Total int64 `gorm:"column:total"`
	}
	err := r.db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(value), 0) AS total
		 FROM contracts
		 WHERE org_id = ? AND status = ?`,
		orgID, domain.StatusActive,
	).Scan(&row).Error
	return row.Total, err
}
