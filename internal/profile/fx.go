package profile

import (
	"github.com/procurehub/procurehub/internal/profile/repository"
	"github.com/procurehub/procurehub/internal/profile/service"
	"go.uber.org/fx"
)

var Module = fx.Module("profile.service",
	fx.Provide(
		repository.NewRepository,
		service.NewService,
	),
)
