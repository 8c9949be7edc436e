package organization

import (
	"github.com/procurehub/procurehub/internal/organization/repository"
	"github.com/procurehub/procurehub/internal/organization/service"
	"go.uber.org/fx"
)

var Module = fx.Module("organization.service",
	fx.Provide(
		repository.NewRepository,
		service.NewService,
	),
)
