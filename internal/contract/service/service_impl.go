package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/procurehub/procurehub/internal/contract/domain"
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
		log:   log.Named("contract.service"),
	}
}

func (s *service) Create(ctx context.Context, orgID snowflake.ID, req domain.CreateContractRequest) (*domain.Contract, error) {
	title := strings.TrimSpace(req.Title)
	if orgID == 0 || req.VendorID == 0 || title == "" {
		return nil, domain.ErrInvalidContract
	}
	if req.EndDate.IsZero() || !req.EndDate.After(req.StartDate) {
		return nil, domain.ErrInvalidPeriod
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = "USD"
	}

	contract := domain.Contract{
		ID:        s.genID.Generate(),
		OrgID:     orgID,
		VendorID:  req.VendorID,
		Title:     title,
		Value:     req.Value,
		Currency:  currency,
		Status:    domain.StatusDraft,
		StartDate: req.StartDate.UTC(),
		EndDate:   req.EndDate.UTC(),
		AutoRenew: req.AutoRenew,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, contract); err != nil {
		return nil, err
	}

	s.log.Info("contract created",
		zap.String("contract_id", contract.ID.String()),
		zap.String("vendor_id", contract.VendorID.String()),
	)
	return &contract, nil
}

func (s *service) GetByID(ctx context.Context, orgID snowflake.ID, id snowflake.ID) (*domain.Contract, error) {
	return s.repo.FindByID(ctx, orgID, id)
}

func (s *service) List(ctx context.Context, orgID snowflake.ID, status string) ([]domain.Contract, error) {
	return s.repo.List(ctx, orgID, status)
}

// ExpiringWithin lists active contracts whose end date falls inside the
// window from now.
func (s *service) ExpiringWithin(ctx context.Context, orgID snowflake.ID, window time.Duration) ([]domain.Contract, error) {
	now := time.Now().UTC()
	return s.repo.ListExpiring(ctx, orgID, now, now.Add(window))
}

func (s *service) SetStatus(ctx context.Context, orgID snowflake.ID, id snowflake.ID, status string) (*domain.Contract, error) {
	switch status {
	case domain.StatusDraft, domain.StatusActive, domain.StatusExpired, domain.StatusTerminated:
	default:
		return nil, domain.ErrInvalidStatus
	}

	contract, err := s.repo.FindByID(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	contract.Status = status
	contract.UpdatedAt = time.Now().UTC()
	if err := s.repo.Save(ctx, contract); err != nil {
		return nil, err
	}
	return contract, nil
}
