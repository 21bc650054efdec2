package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/joshu-sajeev/dailygist/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTenantRepository_GetTenant(t *testing.T) {
	ctx := context.Background()
	repo := NewTenantRepository(SetupTestDB(t))

	_, err := repo.GetTenant(ctx, "nobody")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTenantNotFound)

	require.NoError(t, repo.Upsert(ctx, &models.Tenant{
		ID:                  "owner-1",
		Email:               "u@example.com",
		Timezone:            "UTC-5",
		DeliveryHour:        5,
		TargetLengthMinutes: 12,
	}))

	got, err := repo.GetTenant(ctx, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, "UTC-5", got.Timezone)
	assert.Equal(t, 5, got.DeliveryHour)
	assert.Equal(t, 12, got.TargetLengthMinutes)
}

func TestTenantRepository_UpsertReplacesSettings(t *testing.T) {
	ctx := context.Background()
	repo := NewTenantRepository(SetupTestDB(t))

	require.NoError(t, repo.Upsert(ctx, &models.Tenant{ID: "owner-1", Timezone: "UTC", DeliveryHour: 5}))
	require.NoError(t, repo.Upsert(ctx, &models.Tenant{ID: "owner-1", Timezone: "America/New_York", DeliveryHour: 7}))

	got, err := repo.GetTenant(ctx, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, "America/New_York", got.Timezone)
	assert.Equal(t, 7, got.DeliveryHour)
}

func TestInputRepository(t *testing.T) {
	ctx := context.Background()
	db := SetupTestDB(t)
	repo := NewInputRepository(db)

	seedInputs(t, db, "owner-b", "b-1")
	seedInputs(t, db, "owner-a", "a-2", "a-1")

	owners, err := repo.OwnersWithUnprocessed(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"owner-a", "owner-b"}, owners)

	inputs, err := repo.ListUnprocessed(ctx, "owner-a")
	require.NoError(t, err)
	require.Len(t, inputs, 2)
	assert.Equal(t, "a-2", inputs[0].ID, "oldest input first")
	assert.Equal(t, "a-1", inputs[1].ID)

	now := time.Now().UTC()
	require.NoError(t, db.Model(&models.RawInput{}).Where("owner_id = ?", "owner-b").Update("processed_at", now).Error)

	owners, err = repo.OwnersWithUnprocessed(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"owner-a"}, owners)
}

func TestInputRepository_AddRequiresReceivedAt(t *testing.T) {
	repo := NewInputRepository(SetupTestDB(t))

	err := repo.Add(context.Background(), &models.RawInput{OwnerID: "owner-1"})
	assert.Error(t, err)

	in := &models.RawInput{OwnerID: "owner-1", ReceivedAt: time.Now()}
	require.NoError(t, repo.Add(context.Background(), in))
	assert.NotEmpty(t, in.ID)
}
