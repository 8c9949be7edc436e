package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/procurehub/procurehub/internal/cache"
	"github.com/procurehub/procurehub/internal/clock"
	profiledomain "github.com/procurehub/procurehub/internal/profile/domain"
	"github.com/procurehub/procurehub/internal/provision"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DefaultProfileTTL bounds how long a resolved profile is served without a
// fresh store read.
const DefaultProfileTTL = 60 * time.Second

// Resolver turns an auth ID into the application profile behind it. Lookups
// go cache -> in-flight dedup -> store fetch -> provisioning fallback; the
// cache and dedup group are private to the instance so tests can construct
// isolated resolvers.
type Resolver struct {
	store       ProfileStore
	provider    IdentityProvider
	provisioner Provisioner
	cache       cache.Cache[string, *profiledomain.Profile]
	group       singleflight.Group
	ttl         time.Duration
	log         *zap.Logger
}

type ResolverOption func(*Resolver)

// WithProfileTTL overrides the cache TTL.
func WithProfileTTL(ttl time.Duration) ResolverOption {
	return func(r *Resolver) { r.ttl = ttl }
}

// WithResolverClock injects the cache time source.
func WithResolverClock(clk clock.Clock) ResolverOption {
	return func(r *Resolver) {
		r.cache = cache.NewTTLCacheWithClock[string, *profiledomain.Profile](clk)
	}
}

func NewResolver(
	store ProfileStore,
	provider IdentityProvider,
	provisioner Provisioner,
	log *zap.Logger,
	opts ...ResolverOption,
) *Resolver {
	r := &Resolver{
		store:       store,
		provider:    provider,
		provisioner: provisioner,
		cache:       cache.NewTTLCache[string, *profiledomain.Profile](),
		ttl:         DefaultProfileTTL,
		log:         log.Named("bootstrap.resolver"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the profile for authID, consulting the cache first and
// collapsing concurrent lookups for the same key into one store fetch. A
// missing profile row triggers the provisioning fallback. An empty authID
// resolves to (nil, nil) without any store activity.
func (r *Resolver) Resolve(ctx context.Context, authID string) (*profiledomain.Profile, error) {
	trimmed := strings.TrimSpace(authID)
	if trimmed == "" {
		return nil, nil
	}

	if cached, ok := r.cache.Get(trimmed); ok {
		return cached, nil
	}

	result, err, _ := r.group.Do(trimmed, func() (any, error) {
		// Re-check under the group: a concurrent caller may have populated
		// the cache while this call waited for its slot.
		if cached, ok := r.cache.Get(trimmed); ok {
			return cached, nil
		}

		profile, err := r.fetchOrProvision(ctx, trimmed)
		if err != nil {
			return nil, err
		}
		r.cache.Set(trimmed, profile, r.ttl)
		return profile, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*profiledomain.Profile), nil
}

// ResolveFresh drops any cached entry before resolving, forcing a store read.
func (r *Resolver) ResolveFresh(ctx context.Context, authID string) (*profiledomain.Profile, error) {
	r.cache.Delete(strings.TrimSpace(authID))
	return r.Resolve(ctx, authID)
}

// Invalidate drops the cached profile for authID.
func (r *Resolver) Invalidate(authID string) {
	r.cache.Delete(strings.TrimSpace(authID))
}

// Prime seeds the cache with a profile the caller already holds, typically
// the one created eagerly during signup.
func (r *Resolver) Prime(authID string, profile *profiledomain.Profile) {
	trimmed := strings.TrimSpace(authID)
	if trimmed == "" || profile == nil {
		return
	}
	r.cache.Set(trimmed, profile, r.ttl)
}

func (r *Resolver) fetchOrProvision(ctx context.Context, authID string) (*profiledomain.Profile, error) {
	profile, err := r.store.FetchByAuthID(ctx, authID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, profiledomain.ErrProfileNotFound) {
		r.log.Warn("profile fetch failed",
			zap.String("auth_id", authID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", ErrProfileUnavailable, err)
	}

	// Confirmed missing row: provision lazily. The identity record supplies
	// the email and display name the profile is built from.
	identity, err := r.provider.IdentityByAuthID(ctx, authID)
	if err != nil || identity == nil {
		r.log.Warn("provisioning skipped, identity not found",
			zap.String("auth_id", authID),
			zap.Error(err),
		)
		return nil, ErrIdentityNotFound
	}

	created, err := r.provisioner.Provision(ctx, provision.Request{
		AuthID:      authID,
		Email:       identity.Email,
		DisplayName: identity.DisplayName,
		Origin:      provision.OriginAutoSignup,
	})
	if err != nil {
		r.log.Error("provisioning failed",
			zap.String("auth_id", authID),
			zap.Error(err),
		)
		return nil, err
	}

	r.log.Info("profile provisioned on first resolve",
		zap.String("auth_id", authID),
		zap.String("role", created.Role),
	)
	return created, nil
}
