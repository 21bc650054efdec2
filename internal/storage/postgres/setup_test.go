package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/joshu-sajeev/dailygist/internal/models"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func SetupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent), // Disable logs during tests
	})
	require.NoError(t, err)

	// One connection keeps every goroutine on the same in-memory database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, MigrateModels(db, &models.Tenant{}, &models.RawInput{}, &models.Job{}))
	return db
}

// testClock is a settable clock for repository tests.
type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func seedInputs(t *testing.T, db *gorm.DB, ownerID string, ids ...string) {
	t.Helper()
	repo := NewInputRepository(db)
	base := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)
	for i, id := range ids {
		require.NoError(t, repo.Add(context.Background(), &models.RawInput{
			ID:         id,
			OwnerID:    ownerID,
			Sender:     "news@example.com",
			Subject:    "issue " + id,
			Body:       "body " + id,
			ReceivedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
}
