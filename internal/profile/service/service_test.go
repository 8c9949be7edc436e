package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/procurehub/procurehub/internal/profile/domain"
	"github.com/procurehub/procurehub/internal/profile/repository"
	"github.com/procurehub/procurehub/pkg/db"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) domain.Service {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.Profile{}))

	repo := repository.NewRepository(conn)
	svc := NewService(repo, zap.NewNop())

	require.NoError(t, repo.Create(context.Background(), domain.Profile{
		ID:        snowflake.ID(1),
		AuthID:    "auth-1",
		Email:     "alice@acme.test",
		FirstName: "Alice",
		OrgID:     snowflake.ID(10),
		Role:      "OWNER",
		Origin:    "web_signup",
	}))
	return svc
}

func TestGetByAuthID(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	profile, err := svc.GetByAuthID(ctx, "auth-1")
	require.NoError(t, err)
	require.Equal(t, "alice@acme.test", profile.Email)

	_, err = svc.GetByAuthID(ctx, "auth-unknown")
	require.ErrorIs(t, err, domain.ErrProfileNotFound)
}

func TestUpdatePatchesOnlyProvidedFields(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	title := " Procurement Lead "
	updated, err := svc.Update(ctx, "auth-1", domain.UpdateProfileRequest{Title: &title})
	require.NoError(t, err)
	require.Equal(t, "Procurement Lead", updated.Title)
	require.Equal(t, "Alice", updated.FirstName, "untouched fields keep their values")
}

func TestUpdateEmptyPatchRejected(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Update(context.Background(), "auth-1", domain.UpdateProfileRequest{})
	require.ErrorIs(t, err, domain.ErrInvalidPatch)
}

func TestUpdateUnknownProfile(t *testing.T) {
	svc := newTestService(t)

	name := "Bob"
	_, err := svc.Update(context.Background(), "auth-missing", domain.UpdateProfileRequest{FirstName: &name})
	require.ErrorIs(t, err, domain.ErrProfileNotFound)
}
