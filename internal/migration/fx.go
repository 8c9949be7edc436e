package migration

import (
	"github.com/procurehub/procurehub/internal/config"
	contractdomain "github.com/procurehub/procurehub/internal/contract/domain"
	identitydomain "github.com/procurehub/procurehub/internal/identity/domain"
	orgdomain "github.com/procurehub/procurehub/internal/organization/domain"
	profiledomain "github.com/procurehub/procurehub/internal/profile/domain"
	vendordomain "github.com/procurehub/procurehub/internal/vendormgmt/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		// The versioned migrations target postgres. SQLite and MySQL
		// deployments (local development) fall back to AutoMigrate.
		if cfg.DBType != "postgres" {
			return conn.AutoMigrate(
				&identitydomain.User{},
				&identitydomain.Session{},
				&orgdomain.Organization{},
				&orgdomain.OrganizationMember{},
				&profiledomain.Profile{},
				&vendordomain.Vendor{},
				&contractdomain.Contract{},
			)
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}),
)
