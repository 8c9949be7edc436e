// Package provision creates the organization and profile records backing a
// newly authenticated identity. Provisioning is the fallback path for any
// identity that can authenticate but has no profile row yet, whether it came
// from the signup form or a federated login.
package provision

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	identitydomain "github.com/procurehub/procurehub/internal/identity/domain"
	orgdomain "github.com/procurehub/procurehub/internal/organization/domain"
	profiledomain "github.com/procurehub/procurehub/internal/profile/domain"
	"github.com/procurehub/procurehub/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	// OriginWebSignup marks profiles created through the signup form.
	OriginWebSignup = "web_signup"
	// OriginAutoSignup marks profiles provisioned lazily on first resolve,
	// typically after a federated login.
	OriginAutoSignup = "auto_signup"
)

// freemailDomains are consumer mail providers. Addresses on these domains
// never join or create a shared tenant; they get a personal workspace.
var freemailDomains = map[string]struct{}{
	"gmail.com":      {},
	"googlemail.com": {},
	"yahoo.com":      {},
	"yahoo.co.uk":    {},
	"hotmail.com":    {},
	"outlook.com":    {},
	"live.com":       {},
	"msn.com":        {},
	"icloud.com":     {},
	"me.com":         {},
	"aol.com":        {},
	"proton.me":      {},
	"protonmail.com": {},
	"gmx.com":        {},
	"gmx.net":        {},
	"mail.com":       {},
	"zoho.com":       {},
	"yandex.com":     {},
}

var (
	ErrInvalidIdentity = errors.New("invalid_identity")
	// ErrProvisionFailed wraps unexpected persistence failures. The caller
	// keeps the session alive and may retry.
	ErrProvisionFailed = errors.New("provision_failed")
)

// Request carries everything known about the identity being provisioned.
type Request struct {
	AuthID      string
	Email       string
	DisplayName string
	Origin      string
	CompanyName string // optional, from the signup form
}

// Provisioner creates the organization and profile for an identity.
type Provisioner interface {
	Provision(ctx context.Context, req Request) (*profiledomain.Profile, error)
}

type provisioner struct {
	db          *gorm.DB
	userRepo    identitydomain.Repository
	orgRepo     orgdomain.Repository
	profileRepo profiledomain.Repository
	genID       *snowflake.Node
	log         *zap.Logger
}

func New(
	dbConn *gorm.DB,
	userRepo identitydomain.Repository,
	orgRepo orgdomain.Repository,
	profileRepo profiledomain.Repository,
	genID *snowflake.Node,
	log *zap.Logger,
) Provisioner {
	return &provisioner{
		db:          dbConn,
		userRepo:    userRepo,
		orgRepo:     orgRepo,
		profileRepo: profileRepo,
		genID:       genID,
		log:         log.Named("provision"),
	}
}

// Provision resolves the organization placement for the identity's email
// domain and writes the organization, membership and profile rows in one
// transaction. Concurrent provisioning of the same identity or the same
// corporate domain is recovered by re-reading after a unique violation, so
// the call is idempotent from the caller's point of view.
func (p *provisioner) Provision(ctx context.Context, req Request) (*profiledomain.Profile, error) {
	authID := strings.TrimSpace(req.AuthID)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if authID == "" || email == "" {
		return nil, ErrInvalidIdentity
	}
	origin := req.Origin
	if origin == "" {
		origin = OriginAutoSignup
	}

	// Another request may have finished provisioning already.
	if existing, err := p.profileRepo.FetchByAuthID(ctx, authID); err == nil {
		return existing, nil
	}

	// The membership row is keyed by the user's row ID, not the external
	// auth ID, so the identity must exist before anything is written.
	user, err := p.userRepo.FindByExternalID(ctx, authID)
	if err != nil {
		if errors.Is(err, identitydomain.ErrUserNotFound) {
			return nil, ErrInvalidIdentity
		}
		return nil, fmt.Errorf("%w: %v", ErrProvisionFailed, err)
	}

	profile, err := p.provisionOnce(ctx, authID, email, user.ID, req)
	if err == nil {
		p.log.Info("identity provisioned",
			zap.String("auth_id", authID),
			zap.String("origin", origin),
			zap.String("role", profile.Role),
		)
		return profile, nil
	}

	if db.IsDuplicateKeyErr(err) {
		// Lost a race on the profile or the org domain. The winner's rows
		// are authoritative; retry once against them.
		p.log.Warn("provisioning race detected, retrying",
			zap.String("auth_id", authID),
			zap.Error(err),
		)
		if existing, ferr := p.profileRepo.FetchByAuthID(ctx, authID); ferr == nil {
			return existing, nil
		}
		profile, err = p.provisionOnce(ctx, authID, email, user.ID, req)
		if err == nil {
			return profile, nil
		}
	}

	return nil, fmt.Errorf("%w: %v", ErrProvisionFailed, err)
}

func (p *provisioner) provisionOnce(ctx context.Context, authID, email string, userID snowflake.ID, req Request) (*profiledomain.Profile, error) {
	emailDomain := domainOf(email)
	firstName, lastName := splitName(req.DisplayName, email)
	origin := req.Origin
	if origin == "" {
		origin = OriginAutoSignup
	}

	now := time.Now().UTC()
	var created profiledomain.Profile

	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		orgRepo := p.orgRepo.WithTx(tx)
		profileRepo := p.profileRepo.WithTx(tx)

		orgID, role, err := p.placeInOrganization(ctx, orgRepo, emailDomain, req.CompanyName, firstName, now)
		if err != nil {
			return err
		}

		// The membership row is what the RBAC layer reads; the profile's
		// Role field mirrors it for display.
		if err := orgRepo.AddMember(ctx, orgdomain.OrganizationMember{
			ID:        p.genID.Generate(),
			OrgID:     orgID,
			UserID:    userID,
			Role:      role,
			CreatedAt: now,
		}); err != nil {
			return err
		}

		created = profiledomain.Profile{
			ID:        p.genID.Generate(),
			AuthID:    authID,
			Email:     email,
			FirstName: firstName,
			LastName:  lastName,
			OrgID:     orgID,
			Role:      role,
			Origin:    origin,
			CreatedAt: now,
		}
		return profileRepo.Create(ctx, created)
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// placeInOrganization decides which tenant the identity lands in:
// a corporate domain matching an existing organization joins it as VIEWER,
// an unmatched corporate domain registers a new organization with the
// identity as OWNER, and a freemail address gets a personal workspace.
func (p *provisioner) placeInOrganization(
	ctx context.Context,
	orgRepo orgdomain.Repository,
	emailDomain, companyName, firstName string,
	now time.Time,
) (snowflake.ID, string, error) {
	if emailDomain != "" && !isFreemail(emailDomain) {
		existing, err := orgRepo.FindByDomain(ctx, emailDomain)
		switch {
		case err == nil:
			return existing.ID, orgdomain.RoleViewer, nil
		case errors.Is(err, gorm.ErrRecordNotFound):
			return p.createOrganization(ctx, orgRepo, organizationName(companyName, emailDomain), &emailDomain, false, now)
		default:
			return 0, "", err
		}
	}

	// Freemail or unparsable address: personal workspace with no domain.
	name := personalWorkspaceName(firstName)
	return p.createOrganization(ctx, orgRepo, name, nil, true, now)
}

func (p *provisioner) createOrganization(
	ctx context.Context,
	orgRepo orgdomain.Repository,
	name string,
	emailDomain *string,
	personal bool,
	now time.Time,
) (snowflake.ID, string, error) {
	orgID := p.genID.Generate()
	org := orgdomain.Organization{
		ID:        orgID,
		Name:      name,
		Slug:      fmt.Sprintf("%s-%s", slug.Make(name), orgID.Base36()),
		Domain:    emailDomain,
		Personal:  personal,
		CreatedAt: now,
	}
	if err := orgRepo.CreateOrganization(ctx, org); err != nil {
		return 0, "", err
	}
	return orgID, orgdomain.RoleOwner, nil
}

func isFreemail(emailDomain string) bool {
	_, ok := freemailDomains[emailDomain]
	return ok
}

func domainOf(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return ""
	}
	return strings.ToLower(email[at+1:])
}

func splitName(displayName, email string) (string, string) {
	name := strings.TrimSpace(displayName)
	if name == "" {
		// Fall back to the mailbox local part.
		if at := strings.Index(email, "@"); at > 0 {
			name = email[:at]
		}
	}
	parts := strings.Fields(name)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}

func organizationName(companyName, emailDomain string) string {
	if trimmed := strings.TrimSpace(companyName); trimmed != "" {
		return trimmed
	}
	// Derive a readable default from the registrable label: acme.io -> Acme.
	label := emailDomain
	if dot := strings.Index(label, "."); dot > 0 {
		label = label[:dot]
	}
	if label == "" {
		return "Workspace"
	}
	return strings.ToUpper(label[:1]) + label[1:]
}

func personalWorkspaceName(firstName string) string {
	if firstName == "" {
		return "Personal Workspace"
	}
	return firstName + "'s Workspace"
}
