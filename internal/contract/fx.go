package contract

import (
	"github.com/procurehub/procurehub/internal/contract/repository"
	"github.com/procurehub/procurehub/internal/contract/service"
	"go.uber.org/fx"
)

var Module = fx.Module("contract.service",
	fx.Provide(
		repository.NewRepository,
		service.NewService,
	),
)
