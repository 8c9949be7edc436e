package bootstrap

import (
	"context"
	"errors"
	"testing"
	"time"

	profiledomain "github.com/procurehub/procurehub/internal/profile/domain"
	"go.uber.org/zap"
)

func newTestBootstrap(provider *fakeIdentityProvider, store *fakeProfileStore, prov *fakeProvisioner, opts Options) *Bootstrap {
	r := newTestResolver(store, provider, prov)
	return New(provider, store, prov, r, opts, zap.NewNop())
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}

func TestInitializeSignedOut(t *testing.T) {
	b := newTestBootstrap(newFakeIdentityProvider(), newFakeProfileStore(), newFakeProvisioner(), Options{})
	defer b.Close()

	snap := b.Initialize(context.Background())
	if snap.State != StateReady {
		t.Fatalf("expected ready state, got %v", snap.State)
	}
	if snap.IsLoading {
		t.Fatalf("expected loading cleared")
	}
	if snap.IsAuthenticated || snap.Session != nil || snap.Profile != nil {
		t.Fatalf("expected signed-out snapshot, got %+v", snap)
	}
}

func TestInitializeResolvesProfile(t *testing.T) {
	provider := newFakeIdentityProvider()
	provider.session = &Session{Token: "tok", AuthID: "u1", Email: "u1@acme.io"}
	store := newFakeProfileStore()
	store.put(&profiledomain.Profile{AuthID: "u1", Email: "u1@acme.io", Role: "OWNER"})

	b := newTestBootstrap(provider, store, newFakeProvisioner(), Options{})
	defer b.Close()

	snap := b.Initialize(context.Background())
	if !snap.IsAuthenticated {
		t.Fatalf("expected authenticated snapshot")
	}
	if snap.Identity == nil || snap.Identity.AuthID != "u1" {
		t.Fatalf("expected identity u1, got %+v", snap.Identity)
	}
	if snap.Profile == nil || snap.Profile.Role != "OWNER" {
		t.Fatalf("expected resolved profile, got %+v", snap.Profile)
	}
	if snap.ProfileErr != nil {
		t.Fatalf("unexpected profile error: %v", snap.ProfileErr)
	}
}

func TestInitializeSessionProbeTimeout(t *testing.T) {
	provider := newFakeIdentityProvider()
	provider.session = &Session{Token: "tok", AuthID: "slow"}
	provider.sessionDelay = 10 * time.Second

	b := newTestBootstrap(provider, newFakeProfileStore(), newFakeProvisioner(), Options{
		ProbeTimeout:   500 * time.Millisecond,
		OverallTimeout: 2 * time.Second,
	})
	defer b.Close()

	start := time.Now()
	snap := b.Initialize(context.Background())
	elapsed := time.Since(start)

	if snap.IsLoading {
		t.Fatalf("expected loading cleared despite probe timeout")
	}
	if snap.Session != nil || snap.IsAuthenticated {
		t.Fatalf("expected timeout treated as signed out, got %+v", snap)
	}
	if elapsed > 2*time.Second {
		t.Fatalf("initialize exceeded overall deadline: %v", elapsed)
	}
}

func TestSignOutEventClearsState(t *testing.T) {
	provider := newFakeIdentityProvider()
	provider.session = &Session{Token: "tok", AuthID: "u1", Email: "u1@acme.io"}
	store := newFakeProfileStore()
	store.put(&profiledomain.Profile{AuthID: "u1"})

	b := newTestBootstrap(provider, store, newFakeProvisioner(), Options{})
	defer b.Close()
	b.Initialize(context.Background())

	provider.emit(nil)

	snap := b.Snapshot()
	if snap.Session != nil || snap.Identity != nil || snap.Profile != nil || snap.ProfileErr != nil {
		t.Fatalf("expected fully cleared state after sign-out, got %+v", snap)
	}
	if snap.IsAuthenticated || snap.IsLoading {
		t.Fatalf("expected unauthenticated, settled snapshot")
	}
}

func TestSignInEventResolvesProfile(t *testing.T) {
	provider := newFakeIdentityProvider()
	store := newFakeProfileStore()
	store.put(&profiledomain.Profile{AuthID: "u2", Email: "u2@acme.io", Role: "VIEWER"})

	b := newTestBootstrap(provider, store, newFakeProvisioner(), Options{})
	defer b.Close()
	b.Initialize(context.Background())

	provider.emit(&Session{Token: "tok2", AuthID: "u2", Email: "u2@acme.io"})

	// Session is visible immediately; the profile follows asynchronously.
	snap := b.Snapshot()
	if snap.Session == nil || snap.Session.AuthID != "u2" {
		t.Fatalf("expected session published immediately, got %+v", snap)
	}

	waitFor(t, func() bool {
		return b.Snapshot().Profile != nil
	})
	snap = b.Snapshot()
	if snap.Profile.Role != "VIEWER" {
		t.Fatalf("expected resolved profile, got %+v", snap.Profile)
	}
	if snap.IsLoading {
		t.Fatalf("expected loading cleared after resolution")
	}
}

func TestStaleResolutionDiscardedAfterSignOut(t *testing.T) {
	provider := newFakeIdentityProvider()
	store := newFakeProfileStore()
	store.put(&profiledomain.Profile{AuthID: "u3"})
	store.fetchDelay = 200 * time.Millisecond

	b := newTestBootstrap(provider, store, newFakeProvisioner(), Options{})
	defer b.Close()
	b.Initialize(context.Background())

	// Sign-in starts a slow resolution; sign-out lands before it finishes.
	provider.emit(&Session{Token: "tok3", AuthID: "u3"})
	provider.emit(nil)

	time.Sleep(400 * time.Millisecond)

	snap := b.Snapshot()
	if snap.Session != nil || snap.Profile != nil {
		t.Fatalf("expected stale resolution to be discarded, got %+v", snap)
	}
}

func TestSignOutWithoutSession(t *testing.T) {
	b := newTestBootstrap(newFakeIdentityProvider(), newFakeProfileStore(), newFakeProvisioner(), Options{})
	defer b.Close()
	b.Initialize(context.Background())

	if err := b.SignOut(context.Background()); err != ErrNotAuthenticated {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
}

func TestUpdateProfileRepublishes(t *testing.T) {
	provider := newFakeIdentityProvider()
	provider.session = &Session{Token: "tok", AuthID: "u1", Email: "u1@acme.io"}
	store := newFakeProfileStore()
	store.put(&profiledomain.Profile{AuthID: "u1", FirstName: "Old"})

	b := newTestBootstrap(provider, store, newFakeProvisioner(), Options{})
	defer b.Close()
	b.Initialize(context.Background())

	newName := "New"
	profile, err := b.UpdateProfile(context.Background(), profiledomain.UpdateProfileRequest{FirstName: &newName})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if profile.FirstName != "New" {
		t.Fatalf("expected updated profile returned, got %s", profile.FirstName)
	}

	snap := b.Snapshot()
	if snap.Profile == nil || snap.Profile.FirstName != "New" {
		t.Fatalf("expected published snapshot to carry the update, got %+v", snap.Profile)
	}
}

func TestRefreshProfileRecoversFromError(t *testing.T) {
	provider := newFakeIdentityProvider()
	provider.session = &Session{Token: "tok", AuthID: "u9"}
	store := newFakeProfileStore()
	store.fetchErr = errTransient

	b := newTestBootstrap(provider, store, newFakeProvisioner(), Options{})
	defer b.Close()

	snap := b.Initialize(context.Background())
	if snap.ProfileErr == nil {
		t.Fatalf("expected profile error surfaced")
	}
	if !snap.IsAuthenticated {
		t.Fatalf("profile error must not drop the session")
	}

	store.fetchErr = nil
	store.put(&profiledomain.Profile{AuthID: "u9", Role: "OWNER"})

	profile, err := b.RefreshProfile(context.Background())
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if profile == nil || profile.Role != "OWNER" {
		t.Fatalf("expected recovered profile, got %+v", profile)
	}

	snap = b.Snapshot()
	if snap.ProfileErr != nil {
		t.Fatalf("expected profile error cleared, got %v", snap.ProfileErr)
	}
}

func TestSubscribeReceivesPublishes(t *testing.T) {
	provider := newFakeIdentityProvider()
	b := newTestBootstrap(provider, newFakeProfileStore(), newFakeProvisioner(), Options{})
	defer b.Close()

	var states []State
	unsubscribe := b.Subscribe(func(snap Snapshot) {
		states = append(states, snap.State)
	})
	defer unsubscribe()

	b.Initialize(context.Background())

	if len(states) < 3 {
		t.Fatalf("expected initial, initializing and ready snapshots, got %v", states)
	}
	if states[len(states)-1] != StateReady {
		t.Fatalf("expected final state ready, got %v", states[len(states)-1])
	}
}

var errTransient = errors.New("transient store failure")
