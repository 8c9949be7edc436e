package bootstrap

import (
	"context"

	"github.com/procurehub/procurehub/internal/config"
	"github.com/procurehub/procurehub/internal/provision"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("bootstrap",
	fx.Provide(
		NewIdentityAdapter,
		NewProfileStoreAdapter,
		func(a *IdentityAdapter) IdentityProvider { return a },
		func(a *ProfileStoreAdapter) ProfileStore { return a },
		func(p provision.Provisioner) Provisioner { return p },
		func(store ProfileStore, provider IdentityProvider, provisioner Provisioner, log *zap.Logger) *Resolver {
			return NewResolver(store, provider, provisioner, log)
		},
		newBootstrap,
	),
)

func newBootstrap(
	lc fx.Lifecycle,
	provider IdentityProvider,
	store ProfileStore,
	provisioner Provisioner,
	resolver *Resolver,
	cfg config.Config,
	log *zap.Logger,
) *Bootstrap {
	b := New(provider, store, provisioner, resolver, Options{
		ProbeTimeout:   cfg.SessionProbeTimeout,
		OverallTimeout: cfg.BootstrapOverallTimeout,
	}, log)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			b.Initialize(ctx)
			return nil
		},
		OnStop: func(context.Context) error {
			b.Close()
			return nil
		},
	})

	return b
}
