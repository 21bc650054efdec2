//go:build integration

package integration

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/joshu-sajeev/dailygist/internal/config"
	"github.com/joshu-sajeev/dailygist/internal/dto"
	"github.com/joshu-sajeev/dailygist/internal/models"
	"github.com/joshu-sajeev/dailygist/internal/notify"
	"github.com/joshu-sajeev/dailygist/internal/scheduler"
	"github.com/joshu-sajeev/dailygist/internal/storage/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func payload(t testing.TB, owner string, inputIDs ...string) datatypes.JSON {
	t.Helper()
	raw, err := json.Marshal(dto.GenerationPayload{OwnerID: owner, SchedulingDay: "2026-03-01", InputIDs: inputIDs})
	require.NoError(t, err)
	return raw
}

func TestJobRepository_ConcurrentClaimsAreExclusive(t *testing.T) {
	db, ctx := setupTestDB(t)
	repo := postgres.NewJobRepository(db)

	const jobs = 20
	for i := range jobs {
		owner := fmt.Sprintf("owner-%02d", i)
		_, outcome, err := repo.Enqueue(ctx, owner, "2026-03-01", payload(t, owner))
		require.NoError(t, err)
		require.Equal(t, models.EnqueueCreated, outcome)
	}

	var (
		mu      sync.Mutex
		claimed = map[string]string{}
		wg      sync.WaitGroup
	)
	for w := range 8 {
		wg.Add(1)
		go func(workerID string) {
			defer wg.Done()
			for {
				job, err := repo.Claim(ctx, workerID)
				if !assert.NoError(t, err) || job == nil {
					return
				}
				mu.Lock()
				if prev, dup := claimed[job.ID]; dup {
					t.Errorf("job %s claimed by %s and %s", job.ID, prev, workerID)
				}
				claimed[job.ID] = workerID
				mu.Unlock()
			}
		}(fmt.Sprintf("w%d", w))
	}
	wg.Wait()

	assert.Len(t, claimed, jobs)

	var queued int64
	require.NoError(t, db.Model(&models.Job{}).Where("status = ?", config.JobStatusQueued).Count(&queued).Error)
	assert.Zero(t, queued)
}

func TestJobRepository_ConcurrentEnqueueKeepsOneRow(t *testing.T) {
	db, ctx := setupTestDB(t)
	repo := postgres.NewJobRepository(db)

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, err := repo.Enqueue(ctx, "owner-a", "2026-03-01", payload(t, "owner-a", fmt.Sprintf("in-%d", i)))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	var n int64
	require.NoError(t, db.Model(&models.Job{}).Where("owner_id = ?", "owner-a").Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestJobRepository_SchemaRejectsInconsistentClaims(t *testing.T) {
	db, ctx := setupTestDB(t)
	repo := postgres.NewJobRepository(db)

	job, _, err := repo.Enqueue(ctx, "owner-a", "2026-03-01", payload(t, "owner-a"))
	require.NoError(t, err)

	err = db.Exec("UPDATE generation_jobs SET status = 'processing' WHERE id = ?", job.ID).Error
	assert.Error(t, err, "processing without claim markers must violate the check constraint")

	err = db.Exec("UPDATE generation_jobs SET error_detail = 'x' WHERE id = ?", job.ID).Error
	assert.Error(t, err, "error detail on a queued job must violate the check constraint")
}

func TestJobRepository_StaleResetAndLateCompletion(t *testing.T) {
	db, ctx := setupTestDB(t)
	now := time.Now().UTC()
	repo := postgres.NewJobRepository(db).WithClock(func() time.Time { return now })

	_, _, err := repo.Enqueue(ctx, "owner-a", "2026-03-01", payload(t, "owner-a"))
	require.NoError(t, err)

	job, err := repo.Claim(ctx, "crashed")
	require.NoError(t, err)
	require.NotNil(t, job)

	now = now.Add(20 * time.Minute)
	reset, err := repo.ResetStale(ctx, 15*time.Minute)
	require.NoError(t, err)
	require.Len(t, reset, 1)

	applied, err := repo.MarkReady(ctx, job.ID, "crashed", "ref")
	require.NoError(t, err)
	assert.False(t, applied)

	again, err := repo.Claim(ctx, "healthy")
	require.NoError(t, err)
	require.NotNil(t, again)
	assert.Equal(t, job.ID, again.ID)
}

func TestScheduler_EndToEnd(t *testing.T) {
	db, ctx := setupTestDB(t)

	now := time.Date(2026, 3, 1, 10, 3, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	tenants := postgres.NewTenantRepository(db)
	inputs := postgres.NewInputRepository(db)
	jobs := postgres.NewJobRepository(db).WithClock(clock)

	require.NoError(t, tenants.Upsert(ctx, &models.Tenant{
		ID:                  "owner-a",
		Email:               "a@example.com",
		Timezone:            "America/New_York",
		DeliveryHour:        5,
		TargetLengthMinutes: 10,
	}))
	for i := range 3 {
		require.NoError(t, inputs.Add(ctx, &models.RawInput{
			OwnerID:    "owner-a",
			Sender:     "news@example.com",
			Subject:    fmt.Sprintf("issue %d", i),
			Body:       "body",
			ReceivedAt: now.Add(-time.Duration(i+1) * time.Hour),
		}))
	}

	s := scheduler.New(jobs, tenants, inputs, notify.Noop{}, scheduler.WithClock(clock))
	resp, err := s.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Triggered)
	assert.Empty(t, resp.Errors)

	claimed, err := jobs.Claim(ctx, "w1")
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, "2026-03-01", claimed.SchedulingDay)

	applied, err := jobs.MarkReady(ctx, claimed.ID, "w1", "artifacts/owner-a/2026-03-01.mp3")
	require.NoError(t, err)
	assert.True(t, applied)

	pending, err := inputs.ListUnprocessed(ctx, "owner-a")
	require.NoError(t, err)
	assert.Empty(t, pending)

	resp, err = s.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, resp.Triggered)
}
