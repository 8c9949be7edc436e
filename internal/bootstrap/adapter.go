package bootstrap

import (
	"context"
	"errors"
	"sync"

	identitydomain "github.com/procurehub/procurehub/internal/identity/domain"
	"github.com/procurehub/procurehub/internal/identity/oauth"
	profiledomain "github.com/procurehub/procurehub/internal/profile/domain"
	"go.uber.org/zap"
)

// IdentityAdapter exposes the identity service as the bootstrap's
// IdentityProvider capability. It tracks the process-level current session
// token and fans session changes out to subscribers.
type IdentityAdapter struct {
	users identitydomain.Service
	oauth oauth.Service
	log   *zap.Logger

	mu      sync.Mutex
	token   string
	subs    map[int]func(*Session)
	nextSub int
}

func NewIdentityAdapter(users identitydomain.Service, oauthSvc oauth.Service, log *zap.Logger) *IdentityAdapter {
	return &IdentityAdapter{
		users: users,
		oauth: oauthSvc,
		log:   log.Named("bootstrap.identity"),
		subs:  make(map[int]func(*Session)),
	}
}

var _ IdentityProvider = (*IdentityAdapter)(nil)

func (a *IdentityAdapter) CurrentSession(ctx context.Context) (*Session, error) {
	a.mu.Lock()
	token := a.token
	a.mu.Unlock()
	if token == "" {
		return nil, nil
	}
	return a.sessionForToken(ctx, token)
}

func (a *IdentityAdapter) sessionForToken(ctx context.Context, token string) (*Session, error) {
	sess, err := a.users.Authenticate(ctx, token)
	switch {
	case err == nil:
	case errors.Is(err, identitydomain.ErrSessionNotFound),
		errors.Is(err, identitydomain.ErrSessionExpired),
		errors.Is(err, identitydomain.ErrSessionRevoked),
		errors.Is(err, identitydomain.ErrInvalidSession):
		return nil, nil
	default:
		return nil, err
	}

	user, err := a.users.UserByID(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}

	return &Session{
		Token:       token,
		AuthID:      user.ExternalID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		ExpiresAt:   sess.ExpiresAt,
	}, nil
}

func (a *IdentityAdapter) SignUp(ctx context.Context, req SignUpRequest) (*Session, error) {
	if _, err := a.users.CreateUser(ctx, identitydomain.CreateUserRequest{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
	}); err != nil {
		return nil, err
	}
	return a.SignIn(ctx, req.Email, req.Password, false)
}

func (a *IdentityAdapter) SignIn(ctx context.Context, email, password string, rememberMe bool) (*Session, error) {
	result, err := a.users.Login(ctx, identitydomain.LoginRequest{
		Email:      email,
		Password:   password,
		RememberMe: rememberMe,
	})
	if err != nil {
		return nil, err
	}

	session := &Session{
		Token:       result.RawToken,
		AuthID:      result.User.ExternalID,
		Email:       result.User.Email,
		DisplayName: result.User.DisplayName,
		ExpiresAt:   result.ExpiresAt,
	}
	a.adopt(session)
	return session, nil
}

// AdoptSession installs an externally established session, typically after a
// federated login callback, and notifies subscribers.
func (a *IdentityAdapter) AdoptSession(ctx context.Context, rawToken string) (*Session, error) {
	session, err := a.sessionForToken(ctx, rawToken)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, identitydomain.ErrInvalidSession
	}
	a.adopt(session)
	return session, nil
}

func (a *IdentityAdapter) SignOut(ctx context.Context, token string) error {
	if err := a.users.Logout(ctx, token); err != nil {
		return err
	}

	a.mu.Lock()
	if a.token == token {
		a.token = ""
	}
	a.mu.Unlock()

	a.emit(nil)
	return nil
}

func (a *IdentityAdapter) FederatedSignInURL(ctx context.Context, provider, returnURL string) (string, error) {
	result, err := a.oauth.RedirectURL(ctx, provider, oauth.RedirectRequest{RedirectURI: returnURL})
	if err != nil {
		return "", err
	}
	return result.URL, nil
}

func (a *IdentityAdapter) IdentityByAuthID(ctx context.Context, authID string) (*Identity, error) {
	user, err := a.users.UserByExternalID(ctx, authID)
	if err != nil {
		return nil, err
	}
	return &Identity{
		AuthID:      user.ExternalID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
	}, nil
}

func (a *IdentityAdapter) OnSessionChange(fn func(session *Session)) (unsubscribe func()) {
	a.mu.Lock()
	id := a.nextSub
	a.nextSub++
	a.subs[id] = fn
	a.mu.Unlock()

	return func() {
		a.mu.Lock()
		delete(a.subs, id)
		a.mu.Unlock()
	}
}

func (a *IdentityAdapter) adopt(session *Session) {
	a.mu.Lock()
	a.token = session.Token
	a.mu.Unlock()
	a.emit(session)
}

func (a *IdentityAdapter) emit(session *Session) {
	a.mu.Lock()
	subs := make([]func(*Session), 0, len(a.subs))
	for _, fn := range a.subs {
		subs = append(subs, fn)
	}
	a.mu.Unlock()

	for _, fn := range subs {
		fn(session)
	}
}

// ProfileStoreAdapter exposes the profile service as the bootstrap's
// ProfileStore capability.
type ProfileStoreAdapter struct {
	profiles profiledomain.Service
}

func NewProfileStoreAdapter(profiles profiledomain.Service) *ProfileStoreAdapter {
	return &ProfileStoreAdapter{profiles: profiles}
}

var _ ProfileStore = (*ProfileStoreAdapter)(nil)

func (a *ProfileStoreAdapter) FetchByAuthID(ctx context.Context, authID string) (*profiledomain.Profile, error) {
	return a.profiles.GetByAuthID(ctx, authID)
}

func (a *ProfileStoreAdapter) Update(ctx context.Context, authID string, req profiledomain.UpdateProfileRequest) (*profiledomain.Profile, error) {
	return a.profiles.Update(ctx, authID, req)
}
