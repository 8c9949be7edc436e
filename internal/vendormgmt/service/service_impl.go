package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/procurehub/procurehub/internal/vendormgmt/domain"
	"go.uber.org/zap"
)

type service struct {
	repo  domain.Repository
	genID *snowflake.Node
	log   *zap.Logger
}

func NewService(repo domain.Repository, genID *snowflake.Node, log *zap.Logger) domain.Service {
	return &service{
		repo:  repo,
		genID: genID,
		log:   log.Named("vendor.service"),
	}
}

func (s *service) Create(ctx context.Context, orgID snowflake.ID, req domain.CreateVendorRequest) (*domain.Vendor, error) {
	name := strings.TrimSpace(req.Name)
	if orgID == 0 || name == "" {
		return nil, domain.ErrInvalidVendor
	}

	score := domain.ComputeRiskScore(req.Delivery, req.Quality, req.Compliance)
	now := time.Now().UTC()
	vendor := domain.Vendor{
		ID:                 s.genID.Generate(),
		OrgID:              orgID,
		Name:               name,
		Category:           strings.TrimSpace(req.Category),
		Status:             domain.StatusPending,
		ContactEmail:       strings.ToLower(strings.TrimSpace(req.ContactEmail)),
		Website:            strings.TrimSpace(req.Website),
		OnTimeDeliveryRate: req.Delivery,
		QualityScore:       req.Quality,
		ComplianceScore:    req.Compliance,
		RiskScore:          score,
		RiskTier:           domain.RiskTierFor(score),
		SpendYTD:           req.SpendYTD,
		CreatedAt:          now,
	}
	if err := s.repo.Create(ctx, vendor); err != nil {
		return nil, err
	}

	s.log.Info("vendor created",
		zap.String("vendor_id", vendor.ID.String()),
		zap.String("risk_tier", vendor.RiskTier),
	)
	return &vendor, nil
}

func (s *service) GetByID(ctx context.Context, orgID snowflake.ID, id snowflake.ID) (*domain.Vendor, error) {
	return s.repo.FindByID(ctx, orgID, id)
}

func (s *service) List(ctx context.Context, orgID snowflake.ID, filter domain.ListFilter) ([]domain.Vendor, error) {
	return s.repo.List(ctx, orgID, filter)
}

// UpdateScores applies the supplied performance fractions and re-derives the
// risk score and tier.
func (s *service) UpdateScores(ctx context.Context, orgID snowflake.ID, id snowflake.ID, req domain.UpdateScoresRequest) (*domain.Vendor, error) {
	vendor, err := s.repo.FindByID(ctx, orgID, id)
	if err != nil {
		return nil, err
	}

	if req.Delivery != nil {
		vendor.OnTimeDeliveryRate = *req.Delivery
	}
	if req.Quality != nil {
		vendor.QualityScore = *req.Quality
	}
	if req.Compliance != nil {
		vendor.ComplianceScore = *req.Compliance
	}
	if req.SpendYTD != nil {
		vendor.SpendYTD = *req.SpendYTD
	}

	vendor.RiskScore = domain.ComputeRiskScore(vendor.OnTimeDeliveryRate, vendor.QualityScore, vendor.ComplianceScore)
	vendor.RiskTier = domain.RiskTierFor(vendor.RiskScore)
	vendor.UpdatedAt = time.Now().UTC()

	if err := s.repo.Save(ctx, vendor); err != nil {
		return nil, err
	}
	return vendor, nil
}

func (s *service) SetStatus(ctx context.Context, orgID snowflake.ID, id snowflake.ID, status string) (*domain.Vendor, error) {
	switch status {
	case domain.StatusPending, domain.StatusActive, domain.StatusInactive:
	default:
		return nil, domain.ErrInvalidStatus
	}

	vendor, err := s.repo.FindByID(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	vendor.Status = status
	vendor.UpdatedAt = time.Now().UTC()
	if err := s.repo.Save(ctx, vendor); err != nil {
		return nil, err
	}
	return vendor, nil
}
