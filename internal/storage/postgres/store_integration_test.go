package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ong-aas/claims-portal/internal/models"
	"github.com/ong-aas/claims-portal/internal/storage"
)

func openIntegrationStore(t *testing.T) *Store {
	t.Helper()
	if os.Getenv("RUN_STORE_INTEGRATION") != "true" {
		t.Skip("set RUN_STORE_INTEGRATION=true to run this integration test")
	}
	for _, path := range []string{".env", "../.env", "../../.env", "../../../.env"} {
		_ = godotenv.Overload(path)
	}
	dbURL := os.Getenv("DATABASE_URL")
	require.NotEmpty(t, dbURL, "DATABASE_URL is required")

	store, err := NewStore(context.Background(), dbURL)
	require.NoError(t, err)
	t.Cleanup(store.Close)
	return store
}

func uniquePhone() string {
	return fmt.Sprintf("7%07d", time.Now().UnixNano()%10_000_000)
}

func TestStoreClaimVersioning(t *testing.T) {
	store := openIntegrationStore(t)
	ctx := context.Background()

	member, err := store.CreateUser(ctx, models.User{FullName: "Member", PhoneNumber: uniquePhone(), PINHash: "x"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, member.Role)
	assert.Equal(t, 1, member.Version)

	_, err = store.CreateUser(ctx, models.User{FullName: "Dup", PhoneNumber: member.PhoneNumber, PINHash: "x"})
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)

	staff, err := store.CreateUser(ctx, models.User{FullName: "Staff", PhoneNumber: uniquePhone(), PINHash: "x", Role: models.RoleAdmin})
	require.NoError(t, err)

	claim, err := store.CreateClaim(ctx, models.Claim{
		UserID:         member.ID,
		Title:          "Integration",
		Description:    "claim",
		IncidentDate:   time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC),
		AccidentImages: []string{"a.jpg", "b.jpg"},
		Status:         models.StatusPending,
	})
	require.NoError(t, err)

	updated, err := store.UpdateClaimStatus(ctx, claim.ID, claim.Version, models.ClaimUpdate{
		UpdatedBy: staff.ID, NewStatus: models.StatusInProgress, NewProgress: 40,
	})
	require.NoError(t, err)
	assert.Equal(t, claim.Version+1, updated.Version)

	_, err = store.UpdateClaimStatus(ctx, claim.ID, claim.Version, models.ClaimUpdate{
		UpdatedBy: staff.ID, NewStatus: models.StatusResolved, NewProgress: 100,
	})
	assert.ErrorIs(t, err, storage.ErrConflict)

	_, err = store.UpdateClaimStatus(ctx, "00000000-0000-0000-0000-000000000000", 1, models.ClaimUpdate{
		UpdatedBy: staff.ID, NewStatus: models.StatusResolved,
	})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	history, err := store.ListClaimUpdates(ctx, claim.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, staff.ID, history[0].UpdatedBy)

	verified, err := store.VerifyUser(ctx, member.ID, member.Version)
	require.NoError(t, err)
	assert.True(t, verified.Verified)
	_, err = store.VerifyUser(ctx, member.ID, member.Version)
	assert.ErrorIs(t, err, storage.ErrConflict)

	require.NoError(t, store.Ping(ctx))
}
