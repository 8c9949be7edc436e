package bootstrap

import (
	"context"
	"sync"
	"time"

	profiledomain "github.com/procurehub/procurehub/internal/profile/domain"
	"github.com/procurehub/procurehub/internal/provision"
	"go.uber.org/zap"
)

// State is the lifecycle phase of the bootstrap.
type State int32

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	default:
		return "uninitialized"
	}
}

// Snapshot is the published view of the session/profile state. ProfileErr
// set with a live Session means the user is authenticated but their profile
// could not be resolved; the expected recovery is RefreshProfile.
type Snapshot struct {
	State           State
	Session         *Session
	Identity        *Identity
	Profile         *profiledomain.Profile
	ProfileErr      error
	IsLoading       bool
	IsAuthenticated bool
}

const (
	minProbeTimeout   = 500 * time.Millisecond
	maxProbeTimeout   = 2 * time.Second
	minOverallTimeout = 2 * time.Second
	maxOverallTimeout = 5 * time.Second
)

// Options bounds the two initialization deadlines. Values are clamped to
// sane ranges; zero picks the maximum.
type Options struct {
	// ProbeTimeout bounds the session fetch alone.
	ProbeTimeout time.Duration
	// OverallTimeout bounds the whole initialization sequence, guaranteeing
	// IsLoading clears even if resolution stalls.
	OverallTimeout time.Duration
}

// Bootstrap is the long-lived session/profile state machine. One instance is
// constructed per process and shared through dependency injection; all cache
// and dedup state lives in its Resolver, never in package globals.
type Bootstrap struct {
	provider    IdentityProvider
	store       ProfileStore
	provisioner Provisioner
	resolver    *Resolver
	probe       time.Duration
	overall     time.Duration
	log         *zap.Logger

	mu          sync.Mutex
	snapshot    Snapshot
	generation  uint64
	subscribers map[int]func(Snapshot)
	nextSub     int

	subscribeOnce sync.Once
	unsubscribe   func()
}

func New(
	provider IdentityProvider,
	store ProfileStore,
	provisioner Provisioner,
	resolver *Resolver,
	opts Options,
	log *zap.Logger,
) *Bootstrap {
	return &Bootstrap{
		provider:    provider,
		store:       store,
		provisioner: provisioner,
		resolver:    resolver,
		probe:       clampDuration(opts.ProbeTimeout, minProbeTimeout, maxProbeTimeout),
		overall:     clampDuration(opts.OverallTimeout, minOverallTimeout, maxOverallTimeout),
		log:         log.Named("bootstrap"),
		snapshot:    Snapshot{State: StateUninitialized},
		subscribers: make(map[int]func(Snapshot)),
	}
}

// Initialize probes the identity provider for the current session and, when
// one exists, resolves its profile. A session probe that misses its deadline
// is treated as signed out, never as a fatal error, and the overall deadline
// guarantees the loading flag clears even if resolution stalls. Initialize
// may be called again after an identity change; a newer generation always
// wins over a late publish from an older one.
func (b *Bootstrap) Initialize(ctx context.Context) Snapshot {
	gen := b.begin()

	b.subscribeOnce.Do(func() {
		b.unsubscribe = b.provider.OnSessionChange(b.handleSessionChange)
	})

	ctx, cancel := context.WithTimeout(ctx, b.overall)
	defer cancel()

	session := b.probeSession(ctx)

	var (
		identity   *Identity
		profile    *profiledomain.Profile
		profileErr error
	)
	if session != nil {
		identity = identityOf(session)
		profile, profileErr = b.resolver.Resolve(ctx, session.AuthID)
		profile = guardProfile(profile, session.AuthID)
	}

	b.publishIfCurrent(gen, Snapshot{
		State:           StateReady,
		Session:         session,
		Identity:        identity,
		Profile:         profile,
		ProfileErr:      profileErr,
		IsAuthenticated: session != nil,
	})
	return b.Snapshot()
}

// probeSession fetches the current session bounded by the probe deadline.
// Timeouts and provider failures both degrade to "signed out".
func (b *Bootstrap) probeSession(ctx context.Context) *Session {
	probeCtx, cancel := context.WithTimeout(ctx, b.probe)
	defer cancel()

	session, err := b.provider.CurrentSession(probeCtx)
	if err != nil {
		b.log.Debug("session probe failed, treating as signed out", zap.Error(err))
		return nil
	}
	return session
}

// handleSessionChange reacts to provider events: sign-in publishes the new
// session immediately and resolves the profile asynchronously; sign-out
// clears everything synchronously. The generation counter discards late
// resolutions that lost to a newer event.
func (b *Bootstrap) handleSessionChange(session *Session) {
	gen := b.nextGeneration()

	if session == nil {
		b.publishIfCurrent(gen, Snapshot{State: StateReady})
		return
	}

	identity := identityOf(session)
	b.publishIfCurrent(gen, Snapshot{
		State:           StateReady,
		Session:         session,
		Identity:        identity,
		IsLoading:       true,
		IsAuthenticated: true,
	})

	ctx, cancel := context.WithTimeout(context.Background(), b.overall)
	go func() {
		defer cancel()

		profile, err := b.resolver.Resolve(ctx, session.AuthID)
		profile = guardProfile(profile, session.AuthID)
		b.publishIfCurrent(gen, Snapshot{
			State:           StateReady,
			Session:         session,
			Identity:        identity,
			Profile:         profile,
			ProfileErr:      err,
			IsAuthenticated: true,
		})
	}()
}

// SignUp registers the identity and eagerly provisions its organization and
// profile. Provisioning failures are logged, not fatal: the lazy fallback in
// the resolver repairs them on the next resolve.
func (b *Bootstrap) SignUp(ctx context.Context, req SignUpRequest) (*Session, error) {
	session, err := b.provider.SignUp(ctx, req)
	if err != nil {
		return nil, err
	}

	profile, perr := b.provisioner.Provision(ctx, provision.Request{
		AuthID:      session.AuthID,
		Email:       session.Email,
		DisplayName: req.DisplayName,
		CompanyName: req.CompanyName,
		Origin:      provision.OriginWebSignup,
	})
	if perr != nil {
		b.log.Warn("eager provisioning failed, deferring to lazy path",
			zap.String("auth_id", session.AuthID),
			zap.Error(perr),
		)
	} else {
		b.resolver.Prime(session.AuthID, profile)
	}

	return session, nil
}

// SignIn exchanges credentials for a session. rememberMe only stretches the
// persisted session lifetime; resolution is unaffected.
func (b *Bootstrap) SignIn(ctx context.Context, email, password string, rememberMe bool) (*Session, error) {
	return b.provider.SignIn(ctx, email, password, rememberMe)
}

// FederatedSignInURL returns the redirect for an external OAuth flow. The
// resulting session arrives later through the session-change subscription.
func (b *Bootstrap) FederatedSignInURL(ctx context.Context, provider, returnURL string) (string, error) {
	return b.provider.FederatedSignInURL(ctx, provider, returnURL)
}

// SignOut invalidates the current session. Cache and dedup entries are left
// alone; they are keyed by auth ID and simply go stale.
func (b *Bootstrap) SignOut(ctx context.Context) error {
	snap := b.Snapshot()
	if snap.Session == nil {
		return ErrNotAuthenticated
	}
	return b.provider.SignOut(ctx, snap.Session.Token)
}

// UpdateProfile patches the current identity's profile and re-resolves it
// bypassing the cache so subscribers see the new values immediately.
func (b *Bootstrap) UpdateProfile(ctx context.Context, req profiledomain.UpdateProfileRequest) (*profiledomain.Profile, error) {
	snap := b.Snapshot()
	if snap.Session == nil {
		return nil, ErrNotAuthenticated
	}
	authID := snap.Session.AuthID

	if _, err := b.store.Update(ctx, authID, req); err != nil {
		return nil, err
	}
	return b.republishProfile(ctx, authID)
}

// RefreshProfile forces re-resolution for the current identity, bypassing
// the cache. Used to recover from a published ProfileErr.
func (b *Bootstrap) RefreshProfile(ctx context.Context) (*profiledomain.Profile, error) {
	snap := b.Snapshot()
	if snap.Session == nil {
		return nil, ErrNotAuthenticated
	}
	return b.republishProfile(ctx, snap.Session.AuthID)
}

func (b *Bootstrap) republishProfile(ctx context.Context, authID string) (*profiledomain.Profile, error) {
	gen := b.nextGeneration()

	profile, err := b.resolver.ResolveFresh(ctx, authID)
	profile = guardProfile(profile, authID)

	b.mu.Lock()
	var subs []func(Snapshot)
	var snap Snapshot
	if gen == b.generation && b.snapshot.Session != nil && b.snapshot.Session.AuthID == authID {
		b.snapshot.Profile = profile
		b.snapshot.ProfileErr = err
		snap = b.snapshot
		subs = b.subscriberList()
	}
	b.mu.Unlock()
	b.notify(subs, snap)

	return profile, err
}

// Snapshot returns the current published state.
func (b *Bootstrap) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshot
}

// Subscribe registers fn for every published snapshot and returns an
// unsubscribe handle. fn is invoked immediately with the current state.
func (b *Bootstrap) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	b.mu.Lock()
	id := b.nextSub
	b.nextSub++
	b.subscribers[id] = fn
	current := b.snapshot
	b.mu.Unlock()

	fn(current)

	return func() {
		b.mu.Lock()
		delete(b.subscribers, id)
		b.mu.Unlock()
	}
}

// Close detaches the session-change subscription.
func (b *Bootstrap) Close() {
	if b.unsubscribe != nil {
		b.unsubscribe()
	}
}

func (b *Bootstrap) begin() uint64 {
	b.mu.Lock()
	b.generation++
	gen := b.generation
	b.snapshot = Snapshot{State: StateInitializing, IsLoading: true}
	snap := b.snapshot
	subs := b.subscriberList()
	b.mu.Unlock()
	b.notify(subs, snap)
	return gen
}

func (b *Bootstrap) nextGeneration() uint64 {
	b.mu.Lock()
	b.generation++
	gen := b.generation
	b.mu.Unlock()
	return gen
}

// publishIfCurrent installs snap only if gen is still the latest generation,
// discarding late results from superseded probes or resolutions.
func (b *Bootstrap) publishIfCurrent(gen uint64, snap Snapshot) {
	b.mu.Lock()
	if gen != b.generation {
		b.mu.Unlock()
		b.log.Debug("discarding stale publish",
			zap.Uint64("generation", gen),
		)
		return
	}
	b.snapshot = snap
	subs := b.subscriberList()
	b.mu.Unlock()
	b.notify(subs, snap)
}

// subscriberList snapshots the subscriber set; callers hold b.mu.
func (b *Bootstrap) subscriberList() []func(Snapshot) {
	subs := make([]func(Snapshot), 0, len(b.subscribers))
	for _, fn := range b.subscribers {
		subs = append(subs, fn)
	}
	return subs
}

// notify delivers outside the lock so subscribers may call back into the
// bootstrap.
func (b *Bootstrap) notify(subs []func(Snapshot), snap Snapshot) {
	for _, fn := range subs {
		fn(snap)
	}
}

func identityOf(session *Session) *Identity {
	return &Identity{
		AuthID:      session.AuthID,
		Email:       session.Email,
		DisplayName: session.DisplayName,
	}
}

// guardProfile drops a resolved profile whose auth ID no longer matches the
// session it was resolved for.
func guardProfile(profile *profiledomain.Profile, authID string) *profiledomain.Profile {
	if profile != nil && profile.AuthID != authID {
		return nil
	}
	return profile
}

func clampDuration(d, lo, hi time.Duration) time.Duration {
	if d <= 0 {
		return hi
	}
	if d < lo {
		return lo
	}
	if d > hi {
		return hi
	}
	return d
}
