package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/procurehub/procurehub/internal/profile/domain"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) domain.Repository {
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, profile domain.Profile) error {
	return r.db.WithContext(ctx).Create(&profile).Error
}

func (r *repository) FetchByAuthID(ctx context.Context, authID string) (*domain.Profile, error) {
	trimmed := strings.TrimSpace(authID)
	if trimmed == "" {
		return nil, domain.ErrInvalidAuthID
	}

	var profile domain.Profile
	err := r.db.WithContext(ctx).First(&profile, "auth_id = ?", trimmed).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *repository) Update(ctx context.Context, authID string, patch map[string]any) (*domain.Profile, error) {
	trimmed := strings.TrimSpace(authID)
	if trimmed == "" {
		return nil, domain.ErrInvalidAuthID
	}
	if len(patch) == 0 {
		return nil, domain.ErrInvalidPatch
	}

	result := r.db.WithContext(ctx).
		Model(&domain.Profile{}).
		Where("auth_id = ?", trimmed).
		Updates(patch)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, domain.ErrProfileNotFound
	}

	return r.FetchByAuthID(ctx, trimmed)
}
