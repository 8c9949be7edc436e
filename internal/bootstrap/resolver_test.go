package bootstrap

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/procurehub/procurehub/internal/clock"
	profiledomain "github.com/procurehub/procurehub/internal/profile/domain"
	"github.com/procurehub/procurehub/internal/provision"
	"go.uber.org/zap"
)

type fakeProfileStore struct {
	mu         sync.Mutex
	profiles   map[string]*profiledomain.Profile
	fetchDelay time.Duration
	fetchErr   error
	fetchCount atomic.Int64
}

func newFakeProfileStore() *fakeProfileStore {
	return &fakeProfileStore{profiles: map[string]*profiledomain.Profile{}}
}

func (f *fakeProfileStore) put(p *profiledomain.Profile) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profiles[p.AuthID] = p
}

func (f *fakeProfileStore) FetchByAuthID(ctx context.Context, authID string) (*profiledomain.Profile, error) {
	f.fetchCount.Add(1)
	if f.fetchDelay > 0 {
		select {
		case <-time.After(f.fetchDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[authID]
	if !ok {
		return nil, profiledomain.ErrProfileNotFound
	}
	return p, nil
}

func (f *fakeProfileStore) Update(ctx context.Context, authID string, req profiledomain.UpdateProfileRequest) (*profiledomain.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[authID]
	if !ok {
		return nil, profiledomain.ErrProfileNotFound
	}
	if req.FirstName != nil {
		p.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		p.LastName = *req.LastName
	}
	if req.Department != nil {
		p.Department = *req.Department
	}
	if req.Title != nil {
		p.Title = *req.Title
	}
	return p, nil
}

type fakeIdentityProvider struct {
	mu           sync.Mutex
	session      *Session
	sessionDelay time.Duration
	identities   map[string]*Identity
	subs         []func(*Session)
	signOutCount atomic.Int64
}

func newFakeIdentityProvider() *fakeIdentityProvider {
	return &fakeIdentityProvider{identities: map[string]*Identity{}}
}

func (f *fakeIdentityProvider) CurrentSession(ctx context.Context) (*Session, error) {
	if f.sessionDelay > 0 {
		select {
		case <-time.After(f.sessionDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.session, nil
}

func (f *fakeIdentityProvider) SignUp(ctx context.Context, req SignUpRequest) (*Session, error) {
	session := &Session{Token: "tok-" + req.Email, AuthID: "auth-" + req.Email, Email: req.Email, DisplayName: req.DisplayName}
	f.mu.Lock()
	f.session = session
	f.identities[session.AuthID] = &Identity{AuthID: session.AuthID, Email: req.Email, DisplayName: req.DisplayName}
	f.mu.Unlock()
	return session, nil
}

func (f *fakeIdentityProvider) SignIn(ctx context.Context, email, password string, rememberMe bool) (*Session, error) {
	session := &Session{Token: "tok-" + email, AuthID: "auth-" + email, Email: email}
	f.emit(session)
	return session, nil
}

func (f *fakeIdentityProvider) SignOut(ctx context.Context, token string) error {
	f.signOutCount.Add(1)
	f.mu.Lock()
	f.session = nil
	f.mu.Unlock()
	f.emit(nil)
	return nil
}

func (f *fakeIdentityProvider) FederatedSignInURL(ctx context.Context, provider, returnURL string) (string, error) {
	return "https://auth.example.com/" + provider, nil
}

func (f *fakeIdentityProvider) IdentityByAuthID(ctx context.Context, authID string) (*Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.identities[authID]
	if !ok {
		return nil, errors.New("identity not found")
	}
	return id, nil
}

func (f *fakeIdentityProvider) OnSessionChange(fn func(*Session)) func() {
	f.mu.Lock()
	f.subs = append(f.subs, fn)
	f.mu.Unlock()
	return func() {}
}

func (f *fakeIdentityProvider) emit(session *Session) {
	f.mu.Lock()
	f.session = session
	subs := append([]func(*Session){}, f.subs...)
	f.mu.Unlock()
	for _, fn := range subs {
		fn(session)
	}
}

type fakeProvisioner struct {
	mu      sync.Mutex
	count   atomic.Int64
	created map[string]*profiledomain.Profile
	err     error
}

func newFakeProvisioner() *fakeProvisioner {
	return &fakeProvisioner{created: map[string]*profiledomain.Profile{}}
}

func (f *fakeProvisioner) Provision(ctx context.Context, req provision.Request) (*profiledomain.Profile, error) {
	f.count.Add(1)
	if f.err != nil {
		return nil, f.err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.created[req.AuthID]; ok {
		return existing, nil
	}
	p := &profiledomain.Profile{
		AuthID: req.AuthID,
		Email:  req.Email,
		Role:   "OWNER",
		Origin: req.Origin,
	}
	f.created[req.AuthID] = p
	return p, nil
}

func newTestResolver(store ProfileStore, provider IdentityProvider, prov Provisioner, opts ...ResolverOption) *Resolver {
	return NewResolver(store, provider, prov, zap.NewNop(), opts...)
}

func TestResolveCachesWithinTTL(t *testing.T) {
	store := newFakeProfileStore()
	store.put(&profiledomain.Profile{AuthID: "u1", Email: "u1@acme.io"})
	clk := clock.NewFakeClock(time.Now())
	r := newTestResolver(store, newFakeIdentityProvider(), newFakeProvisioner(), WithResolverClock(clk))

	first, err := r.Resolve(context.Background(), "u1")
	if err != nil {
		t.Fatalf("first resolve failed: %v", err)
	}
	second, err := r.Resolve(context.Background(), "u1")
	if err != nil {
		t.Fatalf("second resolve failed: %v", err)
	}
	if first != second {
		t.Fatalf("expected identical profile from cache")
	}
	if got := store.fetchCount.Load(); got != 1 {
		t.Fatalf("expected exactly one store fetch, got %d", got)
	}

	// Past the TTL the next resolve goes back to the store.
	clk.Advance(DefaultProfileTTL + time.Second)
	if _, err := r.Resolve(context.Background(), "u1"); err != nil {
		t.Fatalf("post-expiry resolve failed: %v", err)
	}
	if got := store.fetchCount.Load(); got != 2 {
		t.Fatalf("expected a second fetch after TTL expiry, got %d", got)
	}
}

func TestResolveDedupsConcurrentCallers(t *testing.T) {
	store := newFakeProfileStore()
	store.put(&profiledomain.Profile{AuthID: "u2", Email: "u2@acme.io"})
	store.fetchDelay = 100 * time.Millisecond
	r := newTestResolver(store, newFakeIdentityProvider(), newFakeProvisioner())

	const callers = 8
	results := make([]*profiledomain.Profile, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = r.Resolve(context.Background(), "u2")
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d failed: %v", i, errs[i])
		}
		if results[i] != results[0] {
			t.Fatalf("caller %d got a different profile", i)
		}
	}
	if got := store.fetchCount.Load(); got != 1 {
		t.Fatalf("expected one fetch for %d concurrent callers, got %d", callers, got)
	}
}

func TestResolveSecondCallerJoinsInFlightFetch(t *testing.T) {
	store := newFakeProfileStore()
	store.put(&profiledomain.Profile{AuthID: "u4", Email: "u4@acme.io"})
	store.fetchDelay = 200 * time.Millisecond
	r := newTestResolver(store, newFakeIdentityProvider(), newFakeProvisioner())

	type outcome struct {
		p   *profiledomain.Profile
		err error
	}
	firstCh := make(chan outcome, 1)
	go func() {
		p, err := r.Resolve(context.Background(), "u4")
		firstCh <- outcome{p, err}
	}()

	// Issue the second call while the first fetch is still outstanding.
	time.Sleep(50 * time.Millisecond)
	second, err := r.Resolve(context.Background(), "u4")
	if err != nil {
		t.Fatalf("second resolve failed: %v", err)
	}

	first := <-firstCh
	if first.err != nil {
		t.Fatalf("first resolve failed: %v", first.err)
	}
	if first.p != second {
		t.Fatalf("expected both callers to share one result")
	}
	if got := store.fetchCount.Load(); got != 1 {
		t.Fatalf("expected one fetch, got %d", got)
	}
}

func TestResolveEmptyAuthIDShortCircuits(t *testing.T) {
	store := newFakeProfileStore()
	r := newTestResolver(store, newFakeIdentityProvider(), newFakeProvisioner())

	profile, err := r.Resolve(context.Background(), "   ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if profile != nil {
		t.Fatalf("expected nil profile for empty auth id")
	}
	if got := store.fetchCount.Load(); got != 0 {
		t.Fatalf("expected zero store activity, got %d fetches", got)
	}
}

func TestResolveProvisionsMissingProfile(t *testing.T) {
	store := newFakeProfileStore()
	provider := newFakeIdentityProvider()
	provider.identities["u5"] = &Identity{AuthID: "u5", Email: "u5@acme.io", DisplayName: "Una User"}
	prov := newFakeProvisioner()
	r := newTestResolver(store, provider, prov)

	profile, err := r.Resolve(context.Background(), "u5")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if profile == nil || profile.AuthID != "u5" {
		t.Fatalf("expected provisioned profile for u5, got %+v", profile)
	}
	if profile.Origin != provision.OriginAutoSignup {
		t.Fatalf("expected auto_signup origin, got %s", profile.Origin)
	}
	if got := prov.count.Load(); got != 1 {
		t.Fatalf("expected one provisioning call, got %d", got)
	}

	// The provisioned profile is cached; no second provisioning attempt.
	if _, err := r.Resolve(context.Background(), "u5"); err != nil {
		t.Fatalf("second resolve failed: %v", err)
	}
	if got := prov.count.Load(); got != 1 {
		t.Fatalf("expected no further provisioning, got %d", got)
	}
}

func TestResolveMissingIdentityBlocksProvisioning(t *testing.T) {
	store := newFakeProfileStore()
	prov := newFakeProvisioner()
	r := newTestResolver(store, newFakeIdentityProvider(), prov)

	_, err := r.Resolve(context.Background(), "ghost")
	if !errors.Is(err, ErrIdentityNotFound) {
		t.Fatalf("expected ErrIdentityNotFound, got %v", err)
	}
	if got := prov.count.Load(); got != 0 {
		t.Fatalf("expected no provisioning without an identity, got %d", got)
	}
}

func TestResolveTransientErrorSurfaces(t *testing.T) {
	store := newFakeProfileStore()
	store.fetchErr = errors.New("connection reset")
	r := newTestResolver(store, newFakeIdentityProvider(), newFakeProvisioner())

	_, err := r.Resolve(context.Background(), "u6")
	if !errors.Is(err, ErrProfileUnavailable) {
		t.Fatalf("expected ErrProfileUnavailable, got %v", err)
	}

	// Failures are never cached; the next call retries the store.
	store.fetchErr = nil
	store.put(&profiledomain.Profile{AuthID: "u6"})
	profile, err := r.Resolve(context.Background(), "u6")
	if err != nil || profile == nil {
		t.Fatalf("expected recovery on retry, got %v %v", profile, err)
	}
}

func TestResolveFreshBypassesCache(t *testing.T) {
	store := newFakeProfileStore()
	store.put(&profiledomain.Profile{AuthID: "u7", FirstName: "Old"})
	r := newTestResolver(store, newFakeIdentityProvider(), newFakeProvisioner())

	if _, err := r.Resolve(context.Background(), "u7"); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	newName := "New"
	if _, err := store.Update(context.Background(), "u7", profiledomain.UpdateProfileRequest{FirstName: &newName}); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	profile, err := r.ResolveFresh(context.Background(), "u7")
	if err != nil {
		t.Fatalf("fresh resolve failed: %v", err)
	}
	if profile.FirstName != "New" {
		t.Fatalf("expected fresh read after invalidation, got %s", profile.FirstName)
	}
	if got := store.fetchCount.Load(); got != 2 {
		t.Fatalf("expected two fetches, got %d", got)
	}
}
