package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/procurehub/procurehub/internal/config"
	"github.com/procurehub/procurehub/internal/identity/domain"
	"github.com/procurehub/procurehub/internal/identity/repository"
	"github.com/procurehub/procurehub/pkg/db"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) domain.Service {
	t.Helper()

	dbConn, err := db.NewTest()
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := dbConn.AutoMigrate(&domain.User{}, &domain.Session{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	repo, sessionRepo := repository.New(dbConn)
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("failed to create snowflake node: %v", err)
	}

	cfg := config.Config{
		SessionTTL:    7 * 24 * time.Hour,
		RememberMeTTL: 30 * 24 * time.Hour,
	}
	return New(zap.NewNop(), cfg, repo, sessionRepo, node)
}

func TestCreateUserAssignsExternalID(t *testing.T) {
	svc := newTestService(t)

	user, err := svc.CreateUser(context.Background(), domain.CreateUserRequest{
		Email:    "alice@example.com",
		Password: "strong-password",
	})
	if err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	if user.Provider != "local" {
		t.Fatalf("expected provider local, got %s", user.Provider)
	}
	if _, err := uuid.Parse(user.ExternalID); err != nil {
		t.Fatalf("expected external id UUID, got %v", err)
	}
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.CreateUser(context.Background(), domain.CreateUserRequest{
		Email:    "bob@example.com",
		Password: "strong-password",
	})
	if err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	_, err = svc.CreateUser(context.Background(), domain.CreateUserRequest{
		Email:    "bob@example.com",
		Password: "another-password",
	})
	if err != domain.ErrUserExists {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.CreateUser(context.Background(), domain.CreateUserRequest{
		Email:    "carol@example.com",
		Password: "correct-password",
	})
	if err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	_, err = svc.Login(context.Background(), domain.LoginRequest{
		Email:    "carol@example.com",
		Password: "wrong-password",
	})
	if err != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginRememberMeExtendsExpiry(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.CreateUser(context.Background(), domain.CreateUserRequest{
		Email:    "dave@example.com",
		Password: "strong-password",
	})
	if err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	short, err := svc.Login(context.Background(), domain.LoginRequest{
		Email:    "dave@example.com",
		Password: "strong-password",
	})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	long, err := svc.Login(context.Background(), domain.LoginRequest{
		Email:      "dave@example.com",
		Password:   "strong-password",
		RememberMe: true,
	})
	if err != nil {
		t.Fatalf("remember-me login failed: %v", err)
	}

	if !long.ExpiresAt.After(short.ExpiresAt.Add(20 * 24 * time.Hour)) {
		t.Fatalf("expected remember-me session to live substantially longer: short=%v long=%v",
			short.ExpiresAt, long.ExpiresAt)
	}
}

func TestAuthenticateRoundTrip(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.CreateUser(context.Background(), domain.CreateUserRequest{
		Email:    "erin@example.com",
		Password: "strong-password",
	})
	if err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	result, err := svc.Login(context.Background(), domain.LoginRequest{
		Email:    "erin@example.com",
		Password: "strong-password",
	})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	session, err := svc.Authenticate(context.Background(), result.RawToken)
	if err != nil {
		t.Fatalf("authenticate failed: %v", err)
	}
	if session.UserID != result.User.ID {
		t.Fatalf("expected session for user %v, got %v", result.User.ID, session.UserID)
	}

	if err := svc.Logout(context.Background(), result.RawToken); err != nil {
		t.Fatalf("logout failed: %v", err)
	}

	if _, err := svc.Authenticate(context.Background(), result.RawToken); err != domain.ErrSessionRevoked {
		t.Fatalf("expected ErrSessionRevoked after logout, got %v", err)
	}
}

func TestFederatedLoginCreatesUserOnce(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	req := domain.FederatedLoginRequest{
		Provider:    "github",
		Subject:     "gh-12345",
		Email:       "frank@example.com",
		DisplayName: "Frank",
		AllowSignUp: true,
	}

	first, err := svc.FederatedLogin(ctx, req)
	if err != nil {
		t.Fatalf("federated login failed: %v", err)
	}
	if first.User.Provider != "github" {
		t.Fatalf("expected provider github, got %s", first.User.Provider)
	}
	if first.User.PasswordHash != nil {
		t.Fatal("expected federated user without password hash")
	}

	second, err := svc.FederatedLogin(ctx, req)
	if err != nil {
		t.Fatalf("repeat federated login failed: %v", err)
	}
	if second.User.ID != first.User.ID {
		t.Fatalf("expected same user on repeat login, got %v and %v", first.User.ID, second.User.ID)
	}

	if _, err := svc.Authenticate(ctx, second.RawToken); err != nil {
		t.Fatalf("authenticate failed: %v", err)
	}
}

func TestFederatedLoginSignUpDisabled(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.FederatedLogin(context.Background(), domain.FederatedLoginRequest{
		Provider: "github",
		Subject:  "gh-67890",
		Email:    "grace@example.com",
	})
	if err != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials when signup disallowed, got %v", err)
	}
}
