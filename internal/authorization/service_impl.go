package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectVendor       = "vendor"
	ObjectContract     = "contract"
	ObjectDashboard    = "dashboard"
	ObjectOrganization = "organization"
	ObjectProfile      = "profile"
)

const (
	ActionVendorView   = "vendor.view"
	ActionVendorCreate = "vendor.create"
	ActionVendorUpdate = "vendor.update"

	ActionContractView   = "contract.view"
	ActionContractCreate = "contract.create"
	ActionContractUpdate = "contract.update"

	ActionDashboardView = "dashboard.view"

	ActionOrganizationView   = "organization.view"
	ActionOrganizationUpdate = "organization.update"

	ActionProfileView   = "profile.view"
	ActionProfileUpdate = "profile.update"
)

type ServiceImpl struct {
	db       *gorm.DB
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(db *gorm.DB, log *zap.Logger, enforcer *casbin.SyncedEnforcer) Service {
	return &ServiceImpl{
		db:       db,
		log:      log.Named("authorization.service"),
		enforcer: enforcer,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, actor string, orgID string, object string, action string) error {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return ErrInvalidActor
	}
	orgID = strings.TrimSpace(orgID)
	if orgID == "" {
		return ErrInvalidOrganization
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	subject, roleName, err := s.resolveActor(ctx, actor, orgID)
	if err != nil {
		return err
	}

	domain := fmt.Sprintf("org:%s", orgID)
	if err := s.ensureGrouping(subject, roleName, domain); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, domain, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Info("authorization denied",
			zap.String("subject", subject),
			zap.String("org_id", orgID),
			zap.String("object", object),
			zap.String("action", action),
		)
		return ErrForbidden
	}
	return nil
}

func (s *ServiceImpl) resolveActor(ctx context.Context, actor string, orgID string) (string, string, error) {
	if actor == "system" {
		return actor, "role:system", nil
	}
	if strings.HasPrefix(actor, "user:") {
		userIDRaw := strings.TrimPrefix(actor, "user:")
		userID, err := snowflake.ParseString(userIDRaw)
		if err != nil || userID == 0 {
			return "", "", ErrInvalidActor
		}
		parsedOrgID, err := snowflake.ParseString(orgID)
		if err != nil || parsedOrgID == 0 {
			return "", "", ErrInvalidOrganization
		}
		role, err := s.roleForUser(ctx, parsedOrgID, userID)
		if err != nil {
			return "", "", err
		}
		return actor, fmt.Sprintf("role:%s", strings.ToLower(role)), nil
	}
	return "", "", ErrInvalidActor
}

func (s *ServiceImpl) roleForUser(ctx context.Context, orgID snowflake.ID, userID snowflake.ID) (string, error) {
	var row struct {
		Role string `gorm:"column:role"`
	}
	if err := s.db.WithContext(ctx).Raw(
		`SELECT role
		 FROM organization_members
		 WHERE org_id = ? AND user_id = ?
		 LIMIT 1`,
		orgID,
		userID,
	).Scan(&row).Error; err != nil {
		return "", err
	}

	role := strings.TrimSpace(row.Role)
	if role == "" {
		return "", ErrForbidden
	}
	return role, nil
}

// ensureGrouping keeps the subject bound to exactly one role per org domain,
// replacing a stale binding when the membership role changed.
func (s *ServiceImpl) ensureGrouping(subject string, roleName string, domain string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject, "", domain)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 {
			continue
		}
		if rule[1] != roleName {
			params := make([]interface{}, 0, len(rule))
			for _, value := range rule {
				params = append(params, value)
			}
			_, _ = s.enforcer.RemoveGroupingPolicy(params...)
		}
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName, domain)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName, domain)
	return err
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		// Viewers are read-only.
		{"role:viewer", ObjectVendor, ActionVendorView},
		{"role:viewer", ObjectContract, ActionContractView},
		{"role:viewer", ObjectDashboard, ActionDashboardView},
		{"role:viewer", ObjectOrganization, ActionOrganizationView},
		{"role:viewer", ObjectProfile, ActionProfileView},
		{"role:viewer", ObjectProfile, ActionProfileUpdate},

		// Admins manage vendors and contracts.
		{"role:admin", ObjectVendor, ActionVendorView},
		{"role:admin", ObjectVendor, ActionVendorCreate},
		{"role:admin", ObjectVendor, ActionVendorUpdate},
		{"role:admin", ObjectContract, ActionContractView},
		{"role:admin", ObjectContract, ActionContractCreate},
		{"role:admin", ObjectContract, ActionContractUpdate},
		{"role:admin", ObjectDashboard, ActionDashboardView},
		{"role:admin", ObjectOrganization, ActionOrganizationView},
		{"role:admin", ObjectProfile, ActionProfileView},
		{"role:admin", ObjectProfile, ActionProfileUpdate},

		// Owners additionally manage the organization itself.
		{"role:owner", ObjectVendor, ActionVendorView},
		{"role:owner", ObjectVendor, ActionVendorCreate},
		{"role:owner", ObjectVendor, ActionVendorUpdate},
		{"role:owner", ObjectContract, ActionContractView},
		{"role:owner", ObjectContract, ActionContractCreate},
		{"role:owner", ObjectContract, ActionContractUpdate},
		{"role:owner", ObjectDashboard, ActionDashboardView},
		{"role:owner", ObjectOrganization, ActionOrganizationView},
		{"role:owner", ObjectOrganization, ActionOrganizationUpdate},
		{"role:owner", ObjectProfile, ActionProfileView},
		{"role:owner", ObjectProfile, ActionProfileUpdate},

		// System actors bypass membership checks for background jobs.
		{"role:system", ObjectVendor, ActionVendorView},
		{"role:system", ObjectVendor, ActionVendorCreate},
		{"role:system", ObjectVendor, ActionVendorUpdate},
		{"role:system", ObjectContract, ActionContractView},
		{"role:system", ObjectContract, ActionContractCreate},
		{"role:system", ObjectContract, ActionContractUpdate},
		{"role:system", ObjectDashboard, ActionDashboardView},
		{"role:system", ObjectOrganization, ActionOrganizationView},
		{"role:system", ObjectOrganization, ActionOrganizationUpdate},
	}

	for _, policy := range policies {
		if len(policy) < 3 {
			continue
		}
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
