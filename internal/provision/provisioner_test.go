package provision

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/procurehub/procurehub/internal/authorization"
	identitydomain "github.com/procurehub/procurehub/internal/identity/domain"
	identityrepo "github.com/procurehub/procurehub/internal/identity/repository"
	orgdomain "github.com/procurehub/procurehub/internal/organization/domain"
	orgrepo "github.com/procurehub/procurehub/internal/organization/repository"
	profiledomain "github.com/procurehub/procurehub/internal/profile/domain"
	profilerepo "github.com/procurehub/procurehub/internal/profile/repository"
	"github.com/procurehub/procurehub/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type provisionFixture struct {
	provisioner Provisioner
	users       identitydomain.Repository
	orgs        orgdomain.Repository
	profiles    profiledomain.Repository
	db          *gorm.DB
	node        *snowflake.Node
}

func newProvisionFixture(t *testing.T) *provisionFixture {
	t.Helper()

	dbConn, err := db.NewTest()
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := dbConn.AutoMigrate(
		&identitydomain.User{},
		&orgdomain.Organization{},
		&orgdomain.OrganizationMember{},
		&profiledomain.Profile{},
	); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	uRepo, _ := identityrepo.New(dbConn)
	oRepo := orgrepo.NewRepository(dbConn)
	pRepo := profilerepo.NewRepository(dbConn)
	node, err := snowflake.NewNode(3)
	if err != nil {
		t.Fatalf("failed to create snowflake node: %v", err)
	}

	return &provisionFixture{
		provisioner: New(dbConn, uRepo, oRepo, pRepo, node, zap.NewNop()),
		users:       uRepo,
		orgs:        oRepo,
		profiles:    pRepo,
		db:          dbConn,
		node:        node,
	}
}

// seedUser registers the identity row backing an authID, mirroring what the
// identity service does at signup before provisioning runs.
func (f *provisionFixture) seedUser(t *testing.T, authID, email string) snowflake.ID {
	t.Helper()

	user := identitydomain.User{
		ID:         f.node.Generate(),
		ExternalID: authID,
		Provider:   "local",
		Email:      email,
	}
	if err := f.db.Create(&user).Error; err != nil {
		t.Fatalf("failed to seed user %s: %v", authID, err)
	}
	return user.ID
}

func TestProvisionCorporateDomainJoinsExistingOrg(t *testing.T) {
	f := newProvisionFixture(t)
	ctx := context.Background()
	ownerUserID := f.seedUser(t, "auth-owner", "founder@acme.io")
	joinerUserID := f.seedUser(t, "auth-joiner", "newhire@acme.io")

	// First identity at acme.io registers the organization as OWNER.
	owner, err := f.provisioner.Provision(ctx, Request{
		AuthID:      "auth-owner",
		Email:       "founder@acme.io",
		DisplayName: "Fran Founder",
		Origin:      OriginWebSignup,
	})
	if err != nil {
		t.Fatalf("owner provisioning failed: %v", err)
	}
	if owner.Role != orgdomain.RoleOwner {
		t.Fatalf("expected first corporate signup to be OWNER, got %s", owner.Role)
	}

	org, err := f.orgs.FindByDomain(ctx, "acme.io")
	if err != nil {
		t.Fatalf("expected organization registered for acme.io: %v", err)
	}
	if org.ID != owner.OrgID {
		t.Fatalf("owner profile points at org %v, domain lookup found %v", owner.OrgID, org.ID)
	}
	if role, err := f.orgs.MemberRole(ctx, owner.OrgID, ownerUserID); err != nil || role != orgdomain.RoleOwner {
		t.Fatalf("expected OWNER membership row for the founder, got role=%q err=%v", role, err)
	}

	// Second identity at the same domain joins read-only.
	joiner, err := f.provisioner.Provision(ctx, Request{
		AuthID:      "auth-joiner",
		Email:       "newhire@acme.io",
		DisplayName: "Nat Newhire",
	})
	if err != nil {
		t.Fatalf("joiner provisioning failed: %v", err)
	}
	if joiner.OrgID != owner.OrgID {
		t.Fatalf("expected joiner to land in the owner's org")
	}
	if joiner.Role != orgdomain.RoleViewer {
		t.Fatalf("expected domain-matched joiner to be VIEWER, got %s", joiner.Role)
	}
	if role, err := f.orgs.MemberRole(ctx, joiner.OrgID, joinerUserID); err != nil || role != orgdomain.RoleViewer {
		t.Fatalf("expected VIEWER membership row for the joiner, got role=%q err=%v", role, err)
	}
}

func TestProvisionFreemailGetsPersonalWorkspace(t *testing.T) {
	f := newProvisionFixture(t)
	ctx := context.Background()
	userID := f.seedUser(t, "auth-personal", "solo@gmail.com")

	profile, err := f.provisioner.Provision(ctx, Request{
		AuthID:      "auth-personal",
		Email:       "solo@gmail.com",
		DisplayName: "Sam Solo",
	})
	if err != nil {
		t.Fatalf("provisioning failed: %v", err)
	}
	if profile.Role != orgdomain.RoleOwner {
		t.Fatalf("expected personal workspace OWNER, got %s", profile.Role)
	}

	org, err := f.orgs.FindByID(ctx, profile.OrgID)
	if err != nil {
		t.Fatalf("org lookup failed: %v", err)
	}
	if !org.Personal {
		t.Fatalf("expected personal workspace")
	}
	if org.Domain != nil {
		t.Fatalf("freemail workspace must carry no domain, got %v", *org.Domain)
	}
	if role, err := f.orgs.MemberRole(ctx, profile.OrgID, userID); err != nil || role != orgdomain.RoleOwner {
		t.Fatalf("expected OWNER membership row in the personal workspace, got role=%q err=%v", role, err)
	}

	// gmail.com must never be claimable as a corporate domain.
	if _, err := f.orgs.FindByDomain(ctx, "gmail.com"); err == nil {
		t.Fatalf("expected no organization registered for gmail.com")
	}
}

func TestProvisionIsIdempotent(t *testing.T) {
	f := newProvisionFixture(t)
	ctx := context.Background()
	f.seedUser(t, "auth-repeat", "repeat@umbrella.org")

	first, err := f.provisioner.Provision(ctx, Request{
		AuthID: "auth-repeat",
		Email:  "repeat@umbrella.org",
	})
	if err != nil {
		t.Fatalf("first provisioning failed: %v", err)
	}

	second, err := f.provisioner.Provision(ctx, Request{
		AuthID: "auth-repeat",
		Email:  "repeat@umbrella.org",
	})
	if err != nil {
		t.Fatalf("second provisioning failed: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected the same profile on re-provision, got %v and %v", first.ID, second.ID)
	}
}

func TestProvisionConcurrentSameDomain(t *testing.T) {
	f := newProvisionFixture(t)
	ctx := context.Background()

	const workers = 4
	for i := 0; i < workers; i++ {
		suffix := string(rune('a' + i))
		f.seedUser(t, "auth-race-"+suffix, "user"+suffix+"@wayne.co")
	}

	profiles := make([]*profiledomain.Profile, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			suffix := string(rune('a' + i))
			profiles[i], errs[i] = f.provisioner.Provision(ctx, Request{
				AuthID: "auth-race-" + suffix,
				Email:  "user" + suffix + "@wayne.co",
			})
		}(i)
	}
	wg.Wait()

	org, err := f.orgs.FindByDomain(ctx, "wayne.co")
	if err != nil {
		t.Fatalf("expected one organization for wayne.co: %v", err)
	}

	owners := 0
	for i := 0; i < workers; i++ {
		if errs[i] != nil {
			t.Fatalf("worker %d failed: %v", i, errs[i])
		}
		if profiles[i].OrgID != org.ID {
			t.Fatalf("worker %d landed outside the shared org", i)
		}
		if profiles[i].Role == orgdomain.RoleOwner {
			owners++
		}
	}
	if owners != 1 {
		t.Fatalf("expected exactly one OWNER for the domain, got %d", owners)
	}

	var memberships int64
	if err := f.db.Model(&orgdomain.OrganizationMember{}).
		Where("org_id = ?", org.ID).
		Count(&memberships).Error; err != nil {
		t.Fatalf("failed to count memberships: %v", err)
	}
	if memberships != workers {
		t.Fatalf("expected %d membership rows, got %d", workers, memberships)
	}
}

func TestProvisionRejectsMissingIdentity(t *testing.T) {
	f := newProvisionFixture(t)

	if _, err := f.provisioner.Provision(context.Background(), Request{Email: "x@y.z"}); err != ErrInvalidIdentity {
		t.Fatalf("expected ErrInvalidIdentity for empty auth id, got %v", err)
	}

	// An authID with no backing identity row is rejected the same way.
	_, err := f.provisioner.Provision(context.Background(), Request{
		AuthID: "auth-ghost",
		Email:  "ghost@y.z",
	})
	if !errors.Is(err, ErrInvalidIdentity) {
		t.Fatalf("expected ErrInvalidIdentity for unknown identity, got %v", err)
	}
}

// A freshly provisioned member must be visible to the RBAC layer and the
// organization listing without any further writes.
func TestProvisionedMemberCanAccessOrgResources(t *testing.T) {
	f := newProvisionFixture(t)
	ctx := context.Background()
	ownerUserID := f.seedUser(t, "auth-initech-owner", "peter@initech.dev")
	viewerUserID := f.seedUser(t, "auth-initech-viewer", "milton@initech.dev")

	enforcer, err := authorization.NewEnforcer(f.db)
	if err != nil {
		t.Fatalf("failed to build enforcer: %v", err)
	}
	authz := authorization.NewService(f.db, zap.NewNop(), enforcer)

	owner, err := f.provisioner.Provision(ctx, Request{
		AuthID:      "auth-initech-owner",
		Email:       "peter@initech.dev",
		DisplayName: "Peter Gibbons",
		Origin:      OriginWebSignup,
	})
	if err != nil {
		t.Fatalf("owner provisioning failed: %v", err)
	}
	viewer, err := f.provisioner.Provision(ctx, Request{
		AuthID:      "auth-initech-viewer",
		Email:       "milton@initech.dev",
		DisplayName: "Milton Waddams",
	})
	if err != nil {
		t.Fatalf("viewer provisioning failed: %v", err)
	}
	if viewer.OrgID != owner.OrgID {
		t.Fatalf("expected both identities in the same org")
	}

	orgID := owner.OrgID.String()

	if err := authz.Authorize(ctx, "user:"+ownerUserID.String(), orgID, authorization.ObjectVendor, authorization.ActionVendorView); err != nil {
		t.Fatalf("provisioned owner denied vendor.view: %v", err)
	}
	if err := authz.Authorize(ctx, "user:"+ownerUserID.String(), orgID, authorization.ObjectOrganization, authorization.ActionOrganizationUpdate); err != nil {
		t.Fatalf("provisioned owner denied organization.update: %v", err)
	}

	if err := authz.Authorize(ctx, "user:"+viewerUserID.String(), orgID, authorization.ObjectVendor, authorization.ActionVendorView); err != nil {
		t.Fatalf("provisioned viewer denied vendor.view: %v", err)
	}
	if err := authz.Authorize(ctx, "user:"+viewerUserID.String(), orgID, authorization.ObjectVendor, authorization.ActionVendorCreate); !errors.Is(err, authorization.ErrForbidden) {
		t.Fatalf("expected vendor.create forbidden for viewer, got %v", err)
	}

	orgs, err := f.orgs.ListOrganizationsByUser(ctx, ownerUserID)
	if err != nil {
		t.Fatalf("organization listing failed: %v", err)
	}
	if len(orgs) != 1 || orgs[0].ID != owner.OrgID {
		t.Fatalf("expected the provisioned org in the owner's listing, got %+v", orgs)
	}
	if orgs[0].Role != orgdomain.RoleOwner {
		t.Fatalf("expected listing role OWNER, got %s", orgs[0].Role)
	}
}
