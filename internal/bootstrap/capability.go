// Package bootstrap owns the session/profile lifecycle: it probes the
// identity provider for the current session, resolves the application
// profile behind it (with caching, in-flight dedup and a provisioning
// fallback), and publishes the combined state to subscribers.
package bootstrap

import (
	"context"
	"time"

	profiledomain "github.com/procurehub/procurehub/internal/profile/domain"
	"github.com/procurehub/procurehub/internal/provision"
)

// Session is the read-only view of a live authentication held by the
// bootstrap. The identity provider owns the token; the bootstrap never
// refreshes or mutates it.
type Session struct {
	Token       string
	AuthID      string
	Email       string
	DisplayName string
	ExpiresAt   time.Time
}

// Identity is the authenticated principal as the identity provider knows it.
type Identity struct {
	AuthID      string
	Email       string
	DisplayName string
}

// SignUpRequest carries the fields collected by the signup form.
type SignUpRequest struct {
	Email       string
	Password    string
	DisplayName string
	CompanyName string
}

// IdentityProvider is the external authentication capability. CurrentSession
// returns (nil, nil) when no one is signed in; session-change notifications
// fire on sign-in, sign-out and federated-login completion.
type IdentityProvider interface {
	CurrentSession(ctx context.Context) (*Session, error)
	SignUp(ctx context.Context, req SignUpRequest) (*Session, error)
	SignIn(ctx context.Context, email, password string, rememberMe bool) (*Session, error)
	SignOut(ctx context.Context, token string) error
	FederatedSignInURL(ctx context.Context, provider, returnURL string) (string, error)
	IdentityByAuthID(ctx context.Context, authID string) (*Identity, error)
	OnSessionChange(fn func(session *Session)) (unsubscribe func())
}

// ProfileStore is the application profile table behind an identity.
// FetchByAuthID returns profiledomain.ErrProfileNotFound for a missing row,
// which is the signal that provisioning is needed.
type ProfileStore interface {
	FetchByAuthID(ctx context.Context, authID string) (*profiledomain.Profile, error)
	Update(ctx context.Context, authID string, req profiledomain.UpdateProfileRequest) (*profiledomain.Profile, error)
}

// Provisioner creates the organization and profile for an identity that has
// authenticated but has no profile row yet.
type Provisioner interface {
	Provision(ctx context.Context, req provision.Request) (*profiledomain.Profile, error)
}
