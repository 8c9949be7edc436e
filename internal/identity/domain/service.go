package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	CreateUser(ctx context.Context, req CreateUserRequest) (*User, error)
	Login(ctx context.Context, req LoginRequest) (*LoginResult, error)
	FederatedLogin(ctx context.Context, req FederatedLoginRequest) (*LoginResult, error)
	Logout(ctx context.Context, rawToken string) error
	Authenticate(ctx context.Context, rawToken string) (*Session, error)
	UserByExternalID(ctx context.Context, externalID string) (*User, error)
	UserByID(ctx context.Context, id snowflake.ID) (*User, error)
}

type CreateUserRequest struct {
	Email       string
	Password    string
	DisplayName string
	Provider    string
	Metadata    map[string]any
}

type LoginRequest struct {
	Email      string
	Password   string
	RememberMe bool
	UserAgent  string
	IPAddress  string
}

// FederatedLoginRequest carries the identity asserted by an external OAuth
// provider. Subject is the provider's stable user identifier.
type FederatedLoginRequest struct {
	Provider    string
	Subject     string
	Email       string
	DisplayName string
	AllowSignUp bool
	UserAgent   string
	IPAddress   string
}

type LoginResult struct {
	User      *User
	Session   *Session
	RawToken  string
	ExpiresAt time.Time
}
