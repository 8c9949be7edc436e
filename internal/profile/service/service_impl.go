package service

import (
	"context"
	"strings"

	"github.com/procurehub/procurehub/internal/profile/domain"
	"go.uber.org/zap"
)

type service struct {
	repo domain.Repository
	log  *zap.Logger
}

func NewService(repo domain.Repository, log *zap.Logger) domain.Service {
	return &service{
		repo: repo,
		log:  log.Named("profile.service"),
	}
}

func (s *service) GetByAuthID(ctx context.Context, authID string) (*domain.Profile, error) {
	return s.repo.FetchByAuthID(ctx, authID)
}

func (s *service) Update(ctx context.Context, authID string, req domain.UpdateProfileRequest) (*domain.Profile, error) {
	patch := map[string]any{}
	if req.FirstName != nil {
		patch["first_name"] = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		patch["last_name"] = strings.TrimSpace(*req.LastName)
	}
	if req.Department != nil {
		patch["department"] = strings.TrimSpace(*req.Department)
	}
	if req.Title != nil {
		patch["title"] = strings.TrimSpace(*req.Title)
	}
	if len(patch) == 0 {
		return nil, domain.ErrInvalidPatch
	}

	profile, err := s.repo.Update(ctx, authID, patch)
	if err != nil {
		return nil, err
	}

	s.log.Info("profile updated", zap.String("auth_id", authID))
	return profile, nil
}
