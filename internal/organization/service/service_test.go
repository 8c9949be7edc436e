package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/procurehub/procurehub/internal/organization/domain"
	"github.com/procurehub/procurehub/internal/organization/repository"
	"github.com/procurehub/procurehub/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (domain.Service, domain.Repository, *gorm.DB) {
	t.Helper()

	dbConn, err := db.NewTest()
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := dbConn.AutoMigrate(&domain.Organization{}, &domain.OrganizationMember{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	repo := repository.NewRepository(dbConn)
	node, err := snowflake.NewNode(2)
	if err != nil {
		t.Fatalf("failed to create snowflake node: %v", err)
	}

	return NewService(dbConn, repo, node, zap.NewNop()), repo, dbConn
}

func TestCreateAssignsOwnerMembership(t *testing.T) {
	svc, repo, _ := newTestService(t)
	userID := snowflake.ID(42)

	corp := "acme.io"
	org, err := svc.Create(context.Background(), userID, domain.CreateOrganizationRequest{
		Name:   "Acme",
		Domain: &corp,
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if org.Slug == "" {
		t.Fatalf("expected generated slug")
	}

	orgID, err := snowflake.ParseString(org.ID)
	if err != nil {
		t.Fatalf("unexpected org id %q: %v", org.ID, err)
	}
	role, err := repo.MemberRole(context.Background(), orgID, userID)
	if err != nil {
		t.Fatalf("member role lookup failed: %v", err)
	}
	if role != domain.RoleOwner {
		t.Fatalf("expected creator to be OWNER, got %s", role)
	}
}

func TestCreateRejectsEmptyName(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Create(context.Background(), snowflake.ID(7), domain.CreateOrganizationRequest{Name: "   "})
	if err != domain.ErrInvalidName {
		t.Fatalf("expected ErrInvalidName, got %v", err)
	}
}

func TestFindByDomainIsCaseInsensitive(t *testing.T) {
	svc, repo, _ := newTestService(t)

	corp := "Globex.COM"
	if _, err := svc.Create(context.Background(), snowflake.ID(9), domain.CreateOrganizationRequest{
		Name:   "Globex",
		Domain: &corp,
	}); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	org, err := repo.FindByDomain(context.Background(), "GLOBEX.com")
	if err != nil {
		t.Fatalf("domain lookup failed: %v", err)
	}
	if org.Name != "Globex" {
		t.Fatalf("expected Globex, got %s", org.Name)
	}
}

func TestListOrganizationsByUser(t *testing.T) {
	svc, _, _ := newTestService(t)
	userID := snowflake.ID(11)

	for _, name := range []string{"First Workspace", "Second Workspace"} {
		if _, err := svc.Create(context.Background(), userID, domain.CreateOrganizationRequest{
			Name:     name,
			Personal: true,
		}); err != nil {
			t.Fatalf("create %s failed: %v", name, err)
		}
	}

	items, err := svc.ListOrganizationsByUser(context.Background(), userID)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 organizations, got %d", len(items))
	}
	for _, item := range items {
		if item.Role != domain.RoleOwner {
			t.Fatalf("expected OWNER role, got %s", item.Role)
		}
	}
}

func TestRoleForUserNotMember(t *testing.T) {
	svc, _, _ := newTestService(t)

	org, err := svc.Create(context.Background(), snowflake.ID(21), domain.CreateOrganizationRequest{Name: "Initech"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	orgID, _ := snowflake.ParseString(org.ID)

	if _, err := svc.RoleForUser(context.Background(), orgID, snowflake.ID(99)); err != domain.ErrNotMember {
		t.Fatalf("expected ErrNotMember, got %v", err)
	}
}
