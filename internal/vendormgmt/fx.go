package vendor

import (
	"github.com/procurehub/procurehub/internal/vendormgmt/repository"
	"github.com/procurehub/procurehub/internal/vendormgmt/service"
	"go.uber.org/fx"
)

var Module = fx.Module("vendor.service",
	fx.Provide(
		repository.NewRepository,
		service.NewService,
	),
)
