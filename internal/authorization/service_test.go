package authorization

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	orgdomain "github.com/procurehub/procurehub/internal/organization/domain"
	"github.com/procurehub/procurehub/pkg/db"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) (Service, snowflake.ID, map[string]snowflake.ID) {
	t.Helper()

	dbConn, err := db.NewTest()
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := dbConn.AutoMigrate(&orgdomain.Organization{}, &orgdomain.OrganizationMember{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	node, _ := snowflake.NewNode(6)
	orgID := node.Generate()
	if err := dbConn.Create(&orgdomain.Organization{
		ID:        orgID,
		Name:      "Acme",
		Slug:      "acme",
		CreatedAt: time.Now().UTC(),
	}).Error; err != nil {
		t.Fatalf("seed org failed: %v", err)
	}

	users := map[string]snowflake.ID{}
	for _, role := range []string{orgdomain.RoleOwner, orgdomain.RoleAdmin, orgdomain.RoleViewer} {
		userID := node.Generate()
		users[role] = userID
		if err := dbConn.Create(&orgdomain.OrganizationMember{
			ID:        node.Generate(),
			OrgID:     orgID,
			UserID:    userID,
			Role:      role,
			CreatedAt: time.Now().UTC(),
		}).Error; err != nil {
			t.Fatalf("seed member failed: %v", err)
		}
	}

	enforcer, err := NewEnforcer(dbConn)
	if err != nil {
		t.Fatalf("failed to build enforcer: %v", err)
	}
	return NewService(dbConn, zap.NewNop(), enforcer), orgID, users
}

func TestViewerCannotCreateVendors(t *testing.T) {
	svc, orgID, users := newTestService(t)
	ctx := context.Background()
	actor := "user:" + users[orgdomain.RoleViewer].String()

	if err := svc.Authorize(ctx, actor, orgID.String(), ObjectVendor, ActionVendorView); err != nil {
		t.Fatalf("viewer should read vendors: %v", err)
	}
	if err := svc.Authorize(ctx, actor, orgID.String(), ObjectVendor, ActionVendorCreate); err != ErrForbidden {
		t.Fatalf("expected ErrForbidden for viewer create, got %v", err)
	}
}

func TestAdminManagesVendorsButNotOrganization(t *testing.T) {
	svc, orgID, users := newTestService(t)
	ctx := context.Background()
	actor := "user:" + users[orgdomain.RoleAdmin].String()

	if err := svc.Authorize(ctx, actor, orgID.String(), ObjectVendor, ActionVendorCreate); err != nil {
		t.Fatalf("admin should create vendors: %v", err)
	}
	if err := svc.Authorize(ctx, actor, orgID.String(), ObjectOrganization, ActionOrganizationUpdate); err != ErrForbidden {
		t.Fatalf("expected ErrForbidden for admin org update, got %v", err)
	}
}

func TestOwnerManagesOrganization(t *testing.T) {
	svc, orgID, users := newTestService(t)

	actor := "user:" + users[orgdomain.RoleOwner].String()
	if err := svc.Authorize(context.Background(), actor, orgID.String(), ObjectOrganization, ActionOrganizationUpdate); err != nil {
		t.Fatalf("owner should update organization: %v", err)
	}
}

func TestNonMemberIsForbidden(t *testing.T) {
	svc, orgID, _ := newTestService(t)

	if err := svc.Authorize(context.Background(), "user:424242", orgID.String(), ObjectVendor, ActionVendorView); err != ErrForbidden {
		t.Fatalf("expected ErrForbidden for non-member, got %v", err)
	}
}

func TestMalformedActorRejected(t *testing.T) {
	svc, orgID, _ := newTestService(t)

	if err := svc.Authorize(context.Background(), "api:nope", orgID.String(), ObjectVendor, ActionVendorView); err != ErrInvalidActor {
		t.Fatalf("expected ErrInvalidActor, got %v", err)
	}
}
