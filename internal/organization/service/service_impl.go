package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/procurehub/procurehub/internal/organization/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type service struct {
	db    *gorm.DB
	repo  domain.Repository
	genID *snowflake.Node
	log   *zap.Logger
}

func NewService(db *gorm.DB, repo domain.Repository, genID *snowflake.Node, log *zap.Logger) domain.Service {
	return &service{
		db:    db,
		repo:  repo,
		genID: genID,
		log:   log.Named("organization.service"),
	}
}

func (s *service) Create(ctx context.Context, userID snowflake.ID, req domain.CreateOrganizationRequest) (*domain.OrganizationResponse, error) {
	if userID == 0 {
		return nil, domain.ErrInvalidUser
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	now := time.Now().UTC()
	orgID := s.genID.Generate()
	org := domain.Organization{
		ID:        orgID,
		Name:      name,
		Slug:      uniqueSlug(name, orgID),
		Domain:    normalizeDomain(req.Domain),
		Personal:  req.Personal,
		CreatedAt: now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.CreateOrganization(ctx, org); err != nil {
			return err
		}

		member := domain.OrganizationMember{
			ID:        s.genID.Generate(),
			OrgID:     orgID,
			UserID:    userID,
			Role:      domain.RoleOwner,
			CreatedAt: now,
		}
		return repo.AddMember(ctx, member)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("organization created",
		zap.String("org_id", orgID.String()),
		zap.Bool("personal", org.Personal),
	)

	return &domain.OrganizationResponse{
		ID:       orgID.String(),
		Name:     name,
		Slug:     org.Slug,
		Domain:   org.Domain,
		Personal: org.Personal,
	}, nil
}

func (s *service) GetByID(ctx context.Context, id string) (*domain.OrganizationResponse, error) {
	raw := strings.TrimSpace(id)
	if raw == "" {
		return nil, domain.ErrInvalidOrganization
	}
	orgID, err := snowflake.ParseString(raw)
	if err != nil {
		return nil, domain.ErrInvalidOrganization
	}

	org, err := s.repo.FindByID(ctx, orgID)
	if err != nil {
		return nil, err
	}

	return &domain.OrganizationResponse{
		ID:       org.ID.String(),
		Name:     org.Name,
		Slug:     org.Slug,
		Domain:   org.Domain,
		Personal: org.Personal,
	}, nil
}

func (s *service) ListOrganizationsByUser(ctx context.Context, userID snowflake.ID) ([]domain.OrganizationListResponseItem, error) {
	if userID == 0 {
		return nil, domain.ErrInvalidUser
	}

	items, err := s.repo.ListOrganizationsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.OrganizationListResponseItem, 0, len(items))
	for _, item := range items {
		resp = append(resp, domain.OrganizationListResponseItem{
			ID:        item.ID.String(),
			Name:      item.Name,
			Role:      item.Role,
			Personal:  item.Personal,
			CreatedAt: item.CreatedAt,
		})
	}

	return resp, nil
}

func (s *service) RoleForUser(ctx context.Context, orgID snowflake.ID, userID snowflake.ID) (string, error) {
	if orgID == 0 || userID == 0 {
		return "", domain.ErrInvalidUser
	}
	return s.repo.MemberRole(ctx, orgID, userID)
}

// uniqueSlug suffixes the name slug with the snowflake ID so tenant slugs
// never collide across same-named organizations.
func uniqueSlug(name string, id snowflake.ID) string {
	return slug.Make(name) + "-" + id.Base36()
}

func normalizeDomain(raw *string) *string {
	if raw == nil {
		return nil
	}
	normalized := strings.ToLower(strings.TrimSpace(*raw))
	if normalized == "" {
		return nil
	}
	return &normalized
}
