package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/procurehub/procurehub/internal/contract/domain"
	"github.com/procurehub/procurehub/internal/contract/repository"
	"github.com/procurehub/procurehub/pkg/db"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) domain.Service {
	t.Helper()

	dbConn, err := db.NewTest()
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := dbConn.AutoMigrate(&domain.Contract{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	node, err := snowflake.NewNode(4)
	if err != nil {
		t.Fatalf("failed to create snowflake node: %v", err)
	}
	return NewService(repository.NewRepository(dbConn), node, zap.NewNop())
}

func TestCreateRejectsInvertedPeriod(t *testing.T) {
	svc := newTestService(t)
	now := time.Now()

	_, err := svc.Create(context.Background(), snowflake.ID(1), domain.CreateContractRequest{
		VendorID:  snowflake.ID(2),
		Title:     "Backwards",
		StartDate: now,
		EndDate:   now.Add(-24 * time.Hour),
	})
	if err != domain.ErrInvalidPeriod {
		t.Fatalf("expected ErrInvalidPeriod, got %v", err)
	}
}

func TestExpiringWithinWindow(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	orgID := snowflake.ID(1)
	now := time.Now().UTC()

	mk := func(title string, end time.Time) *domain.Contract {
		c, err := svc.Create(ctx, orgID, domain.CreateContractRequest{
			VendorID:  snowflake.ID(2),
			Title:     title,
			Value:     100_000,
			StartDate: now.Add(-30 * 24 * time.Hour),
			EndDate:   end,
		})
		if err != nil {
			t.Fatalf("create %s failed: %v", title, err)
		}
		c, err = svc.SetStatus(ctx, orgID, c.ID, domain.StatusActive)
		if err != nil {
			t.Fatalf("activate %s failed: %v", title, err)
		}
		return c
	}

	soon := mk("ends soon", now.Add(10*24*time.Hour))
	mk("ends later", now.Add(90*24*time.Hour))
	draft, err := svc.Create(ctx, orgID, domain.CreateContractRequest{
		VendorID:  snowflake.ID(2),
		Title:     "draft ends soon",
		StartDate: now,
		EndDate:   now.Add(5 * 24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("create draft failed: %v", err)
	}

	expiring, err := svc.ExpiringWithin(ctx, orgID, 30*24*time.Hour)
	if err != nil {
		t.Fatalf("expiring query failed: %v", err)
	}
	if len(expiring) != 1 {
		t.Fatalf("expected exactly one expiring contract, got %d", len(expiring))
	}
	if expiring[0].ID != soon.ID {
		t.Fatalf("expected %v, got %v", soon.ID, expiring[0].ID)
	}
	if expiring[0].ID == draft.ID {
		t.Fatalf("draft contracts must not count as expiring")
	}
}

func TestSetStatusRejectsUnknown(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.SetStatus(context.Background(), snowflake.ID(1), snowflake.ID(9), "paused")
	if err != domain.ErrInvalidStatus {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}
