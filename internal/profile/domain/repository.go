package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, profile Profile) error
	FetchByAuthID(ctx context.Context, authID string) (*Profile, error)
	Update(ctx context.Context, authID string, patch map[string]any) (*Profile, error)
}
