package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/procurehub/procurehub/internal/authorization"
	"github.com/procurehub/procurehub/internal/bootstrap"
	"github.com/procurehub/procurehub/internal/clock"
	"github.com/procurehub/procurehub/internal/config"
	"github.com/procurehub/procurehub/internal/contract"
	"github.com/procurehub/procurehub/internal/dashboard"
	"github.com/procurehub/procurehub/internal/identity"
	"github.com/procurehub/procurehub/internal/migration"
	"github.com/procurehub/procurehub/internal/observability"
	"github.com/procurehub/procurehub/internal/organization"
	"github.com/procurehub/procurehub/internal/profile"
	"github.com/procurehub/procurehub/internal/provision"
	"github.com/procurehub/procurehub/internal/ratelimit"
	"github.com/procurehub/procurehub/internal/server"
	vendor "github.com/procurehub/procurehub/internal/vendormgmt"
	"github.com/procurehub/procurehub/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(newSnowflakeNode),
		db.Module,
		clock.Module,
		migration.Module,

		// Domains
		identity.Module,
		organization.Module,
		profile.Module,
		provision.Module,
		bootstrap.Module,
		authorization.Module,
		vendor.Module,
		contract.Module,
		dashboard.Module,
		ratelimit.Module,

		server.Module,
	)
	app.Run()
}

func newSnowflakeNode() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}
