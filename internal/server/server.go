// Package server wires the HTTP surface: session-cookie auth on top of the
// bootstrap resolver, then the organization, vendor, contract and dashboard
// APIs behind role checks.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/procurehub/procurehub/internal/authorization"
	"github.com/procurehub/procurehub/internal/bootstrap"
	"github.com/procurehub/procurehub/internal/config"
	contractdomain "github.com/procurehub/procurehub/internal/contract/domain"
	"github.com/procurehub/procurehub/internal/dashboard"
	identitydomain "github.com/procurehub/procurehub/internal/identity/domain"
	"github.com/procurehub/procurehub/internal/identity/oauth"
	"github.com/procurehub/procurehub/internal/identity/session"
	"github.com/procurehub/procurehub/internal/observability"
	obsmiddleware "github.com/procurehub/procurehub/internal/observability/logger"
	obsmetrics "github.com/procurehub/procurehub/internal/observability/metrics"
	obstracing "github.com/procurehub/procurehub/internal/observability/tracing"
	orgdomain "github.com/procurehub/procurehub/internal/organization/domain"
	profiledomain "github.com/procurehub/procurehub/internal/profile/domain"
	"github.com/procurehub/procurehub/internal/ratelimit"
	vendordomain "github.com/procurehub/procurehub/internal/vendormgmt/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug: obsCfg.Debug(),
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	log             *zap.Logger
	identitySvc     identitydomain.Service
	oauthSvc        oauth.Service
	sessions        *session.Manager
	genID           *snowflake.Node
	bootstrapSvc    *bootstrap.Bootstrap
	resolver        *bootstrap.Resolver
	identityAdapter *bootstrap.IdentityAdapter
	authzSvc        authorization.Service
	profileSvc      profiledomain.Service
	organizationSvc orgdomain.Service
	vendorSvc       vendordomain.Service
	contractSvc     contractdomain.Service
	dashboardSvc    dashboard.Service
	loginLimiter    *ratelimit.LoginLimiter
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	Log             *zap.Logger
	IdentitySvc     identitydomain.Service
	OAuthSvc        oauth.Service
	Sessions        *session.Manager
	GenID           *snowflake.Node
	BootstrapSvc    *bootstrap.Bootstrap
	Resolver        *bootstrap.Resolver
	IdentityAdapter *bootstrap.IdentityAdapter
	AuthzSvc        authorization.Service
	ProfileSvc      profiledomain.Service
	OrganizationSvc orgdomain.Service
	VendorSvc       vendordomain.Service
	ContractSvc     contractdomain.Service
	DashboardSvc    dashboard.Service
	LoginLimiter    *ratelimit.LoginLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		log:             p.Log.Named("http.server"),
		identitySvc:     p.IdentitySvc,
		oauthSvc:        p.OAuthSvc,
		sessions:        p.Sessions,
		genID:           p.GenID,
		bootstrapSvc:    p.BootstrapSvc,
		resolver:        p.Resolver,
		identityAdapter: p.IdentityAdapter,
		authzSvc:        p.AuthzSvc,
		profileSvc:      p.ProfileSvc,
		organizationSvc: p.OrganizationSvc,
		vendorSvc:       p.VendorSvc,
		contractSvc:     p.ContractSvc,
		dashboardSvc:    p.DashboardSvc,
		loginLimiter:    p.LoginLimiter,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	v1 := s.engine.Group("/v1")

	auth := v1.Group("/auth")
	auth.POST("/signup", s.handleSignUp)
	auth.POST("/login", s.handleLogin)
	auth.POST("/logout", s.handleLogout)
	auth.GET("/session", s.handleSession)
	auth.GET("/oauth/:provider/redirect", s.handleOAuthRedirect)
	auth.GET("/oauth/:provider/callback", s.handleOAuthCallback)

	me := v1.Group("/me", s.RequireSession())
	me.GET("/profile", s.handleGetProfile)
	me.PATCH("/profile", s.handleUpdateProfile)
	me.POST("/profile/refresh", s.handleRefreshProfile)
	me.GET("/organizations", s.handleListOrganizations)

	org := v1.Group("/org", s.RequireSession(), s.RequireProfile())
	org.GET("/organization", s.authorize(authorization.ObjectOrganization, authorization.ActionOrganizationView), s.handleGetOrganization)

	org.GET("/vendors", s.authorize(authorization.ObjectVendor, authorization.ActionVendorView), s.handleListVendors)
	org.POST("/vendors", s.authorize(authorization.ObjectVendor, authorization.ActionVendorCreate), s.handleCreateVendor)
	org.GET("/vendors/:id", s.authorize(authorization.ObjectVendor, authorization.ActionVendorView), s.handleGetVendor)
	org.PATCH("/vendors/:id/scores", s.authorize(authorization.ObjectVendor, authorization.ActionVendorUpdate), s.handleUpdateVendorScores)
	org.PATCH("/vendors/:id/status", s.authorize(authorization.ObjectVendor, authorization.ActionVendorUpdate), s.handleSetVendorStatus)

	org.GET("/contracts", s.authorize(authorization.ObjectContract, authorization.ActionContractView), s.handleListContracts)
	org.POST("/contracts", s.authorize(authorization.ObjectContract, authorization.ActionContractCreate), s.handleCreateContract)
	org.GET("/contracts/expiring", s.authorize(authorization.ObjectContract, authorization.ActionContractView), s.handleExpiringContracts)
	org.GET("/contracts/:id", s.authorize(authorization.ObjectContract, authorization.ActionContractView), s.handleGetContract)
	org.PATCH("/contracts/:id/status", s.authorize(authorization.ObjectContract, authorization.ActionContractUpdate), s.handleSetContractStatus)

	org.GET("/dashboard/stats", s.authorize(authorization.ObjectDashboard, authorization.ActionDashboardView), s.handleDashboardStats)
}
