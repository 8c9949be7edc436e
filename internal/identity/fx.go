package identity

import (
	"github.com/procurehub/procurehub/internal/identity/oauth"
	"github.com/procurehub/procurehub/internal/identity/repository"
	"github.com/procurehub/procurehub/internal/identity/service"
	"github.com/procurehub/procurehub/internal/identity/session"
	"go.uber.org/fx"
)

var Module = fx.Module("identity.service",
	fx.Provide(repository.New),
	fx.Provide(service.New),
	fx.Provide(session.NewManager),
	fx.Provide(oauth.ParseProvidersFromEnv),
	fx.Provide(oauth.NewService),
)
