package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/joshu-sajeev/dailygist/internal/config"
	"github.com/joshu-sajeev/dailygist/internal/dto"
	"github.com/joshu-sajeev/dailygist/internal/job"
	"github.com/joshu-sajeev/dailygist/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type JobRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

var _ job.JobRepoInterface = (*JobRepository)(nil)

// WithClock returns a copy of the repository that stamps rows with now.
func (r *JobRepository) WithClock(now func() time.Time) *JobRepository {
	return &JobRepository{db: r.db, now: func() time.Time { return now().UTC() }}
}

// skipLocked makes a SELECT skip rows another transaction already holds.
// sqlite ignores row locks; its single writer gives the same exclusion.
var skipLocked = clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}

// Enqueue creates or refreshes the job for (ownerID, day). An existing row is
// only rewritten while it is still queued, so a job a worker is processing,
// or one that already finished, is never reverted.
func (r *JobRepository) Enqueue(ctx context.Context, ownerID, day string, payload datatypes.JSON) (*models.Job, models.EnqueueOutcome, error) {
	db := r.db.WithContext(ctx)
	now := r.now()

	res := db.Model(&models.Job{}).
		Where("owner_id = ? AND scheduling_day = ? AND status = ?", ownerID, day, config.JobStatusQueued).
		Updates(map[string]any{
			"payload":    payload,
			"updated_at": now,
		})
	if res.Error != nil {
		return nil, "", fmt.Errorf("enqueue job: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		existing, err := r.findByOwnerDay(ctx, ownerID, day)
		if err != nil {
			return nil, "", err
		}
		return existing, models.EnqueueUpdated, nil
	}

	fresh := &models.Job{
		ID:            uuid.NewString(),
		OwnerID:       ownerID,
		SchedulingDay: day,
		Status:        config.JobStatusQueued,
		Payload:       payload,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	res = db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "owner_id"}, {Name: "scheduling_day"}},
		DoNothing: true,
	}).Create(fresh)
	if res.Error != nil {
		return nil, "", fmt.Errorf("enqueue job: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		return fresh, models.EnqueueCreated, nil
	}

	existing, err := r.findByOwnerDay(ctx, ownerID, day)
	if err != nil {
		return nil, "", err
	}
	return existing, models.EnqueueSkipped, nil
}

// Claim hands the oldest queued job to workerID. It returns nil, nil when
// nothing is claimable. Rows locked by a concurrent claim are skipped rather
// than waited on.
func (r *JobRepository) Claim(ctx context.Context, workerID string) (*models.Job, error) {
	var claimed *models.Job

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var candidate models.Job
		if err := tx.Clauses(skipLocked).
			Where("status = ?", config.JobStatusQueued).
			Order("created_at ASC, id ASC").
			Limit(1).
			Find(&candidate).Error; err != nil {
			return err
		}
		if candidate.ID == "" {
			return nil
		}

		now := r.now()
		res := tx.Model(&models.Job{}).
			Where("id = ? AND status = ?", candidate.ID, config.JobStatusQueued).
			Updates(map[string]any{
				"status":         config.JobStatusProcessing,
				"claimed_at":     now,
				"claimed_by":     workerID,
				"progress_stage": nil,
				"progress_at":    nil,
				"updated_at":     now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}

		candidate.Status = config.JobStatusProcessing
		candidate.ClaimedAt = &now
		candidate.ClaimedBy = &workerID
		candidate.ProgressStage = nil
		candidate.ProgressAt = nil
		candidate.UpdatedAt = now
		claimed = &candidate
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("claim job: %w", err)
	}
	return claimed, nil
}

// MarkReady finishes a job held by workerID and marks the inputs captured in
// its payload as processed, in one transaction. It reports false when the job
// is no longer processing under that worker.
func (r *JobRepository) MarkReady(ctx context.Context, id, workerID, resultRef string) (bool, error) {
	applied := false

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var held models.Job
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND status = ? AND claimed_by = ?", id, config.JobStatusProcessing, workerID).
			Limit(1).
			Find(&held).Error; err != nil {
			return err
		}
		if held.ID == "" {
			return nil
		}

		now := r.now()
		res := tx.Model(&models.Job{}).
			Where("id = ? AND status = ? AND claimed_by = ?", id, config.JobStatusProcessing, workerID).
			Updates(map[string]any{
				"status":         config.JobStatusReady,
				"result_ref":     resultRef,
				"error_detail":   nil,
				"claimed_at":     nil,
				"claimed_by":     nil,
				"progress_stage": nil,
				"progress_at":    nil,
				"updated_at":     now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}

		inputIDs, err := payloadInputIDs(held.Payload)
		if err != nil {
			return err
		}
		if len(inputIDs) > 0 {
			if err := tx.Model(&models.RawInput{}).
				Where("id IN ? AND owner_id = ? AND processed_at IS NULL", inputIDs, held.OwnerID).
				Update("processed_at", now).Error; err != nil {
				return fmt.Errorf("mark inputs processed: %w", err)
			}
		}

		applied = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("mark ready: %w", err)
	}
	return applied, nil
}

// MarkFailed records a clean failure reported by workerID. It reports false
// when the job is no longer processing under that worker.
func (r *JobRepository) MarkFailed(ctx context.Context, id, workerID, detail string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Job{}).
		Where("id = ? AND status = ? AND claimed_by = ?", id, config.JobStatusProcessing, workerID).
		Updates(map[string]any{
			"status":         config.JobStatusFailed,
			"error_detail":   detail,
			"claimed_at":     nil,
			"claimed_by":     nil,
			"progress_stage": nil,
			"progress_at":    nil,
			"updated_at":     r.now(),
		})
	if res.Error != nil {
		return false, fmt.Errorf("mark failed: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// ReportProgress stores a partial progress marker while workerID holds the job.
func (r *JobRepository) ReportProgress(ctx context.Context, id, workerID, stage string) (bool, error) {
	now := r.now()
	res := r.db.WithContext(ctx).Model(&models.Job{}).
		Where("id = ? AND status = ? AND claimed_by = ?", id, config.JobStatusProcessing, workerID).
		Updates(map[string]any{
			"progress_stage": stage,
			"progress_at":    now,
			"updated_at":     now,
		})
	if res.Error != nil {
		return false, fmt.Errorf("report progress: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// ResetStale returns every job claimed at or before now-timeout to the queue
// and clears its claim and progress markers. retry_count is left alone.
func (r *JobRepository) ResetStale(ctx context.Context, timeout time.Duration) ([]models.Job, error) {
	var reset []models.Job

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := r.now()
		cutoff := now.Add(-timeout)

		var stale []models.Job
		if err := tx.Clauses(skipLocked).
			Where("status = ? AND claimed_at <= ?", config.JobStatusProcessing, cutoff).
			Order("claimed_at ASC").
			Find(&stale).Error; err != nil {
			return err
		}
		if len(stale) == 0 {
			return nil
		}

		ids := make([]string, len(stale))
		for i, j := range stale {
			ids[i] = j.ID
		}

		if err := tx.Model(&models.Job{}).
			Where("id IN ? AND status = ? AND claimed_at <= ?", ids, config.JobStatusProcessing, cutoff).
			Updates(map[string]any{
				"status":         config.JobStatusQueued,
				"claimed_at":     nil,
				"claimed_by":     nil,
				"progress_stage": nil,
				"progress_at":    nil,
				"updated_at":     now,
			}).Error; err != nil {
			return err
		}

		for _, j := range stale {
			j.Status = config.JobStatusQueued
			j.ClaimedAt = nil
			j.ClaimedBy = nil
			j.ProgressStage = nil
			j.ProgressAt = nil
			j.UpdatedAt = now
			reset = append(reset, j)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reset stale jobs: %w", err)
	}
	return reset, nil
}

// ListRetryCandidates lists failed jobs with budget left whose scheduling day
// falls within [fromDay, toDay].
func (r *JobRepository) ListRetryCandidates(ctx context.Context, maxRetries int, fromDay, toDay string) ([]models.Job, error) {
	var jobs []models.Job
	if err := r.db.WithContext(ctx).
		Where("status = ? AND retry_count < ? AND scheduling_day >= ? AND scheduling_day <= ?",
			config.JobStatusFailed, maxRetries, fromDay, toDay).
		Order("created_at ASC").
		Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("list retry candidates: %w", err)
	}
	return jobs, nil
}

// Requeue moves a failed job back to queued with a fresh payload and one more
// retry counted. It is a no-op unless the row is still failed with exactly
// expectedRetries and under maxRetries.
func (r *JobRepository) Requeue(ctx context.Context, id string, expectedRetries, maxRetries int, payload datatypes.JSON) (bool, error) {
	if expectedRetries >= maxRetries {
		return false, nil
	}

	res := r.db.WithContext(ctx).Model(&models.Job{}).
		Where("id = ? AND status = ? AND retry_count = ?", id, config.JobStatusFailed, expectedRetries).
		Updates(map[string]any{
			"status":       config.JobStatusQueued,
			"retry_count":  expectedRetries + 1,
			"payload":      payload,
			"error_detail": nil,
			"result_ref":   nil,
			"updated_at":   r.now(),
		})
	if res.Error != nil {
		return false, fmt.Errorf("requeue job: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// Get retrieves a single job by id.
func (r *JobRepository) Get(ctx context.Context, id string) (*models.Job, error) {
	var j models.Job
	if err := r.db.WithContext(ctx).First(&j, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("job not found: %w", err)
		}
		return nil, fmt.Errorf("get job: %w", err)
	}
	return &j, nil
}

// ListByOwner returns the owner's most recent jobs, newest day first.
func (r *JobRepository) ListByOwner(ctx context.Context, ownerID string, limit int) ([]models.Job, error) {
	var jobs []models.Job
	if err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("scheduling_day DESC").
		Limit(limit).
		Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return jobs, nil
}

func (r *JobRepository) findByOwnerDay(ctx context.Context, ownerID, day string) (*models.Job, error) {
	var j models.Job
	if err := r.db.WithContext(ctx).
		First(&j, "owner_id = ? AND scheduling_day = ?", ownerID, day).Error; err != nil {
		return nil, fmt.Errorf("get job for %s/%s: %w", ownerID, day, err)
	}
	return &j, nil
}

func payloadInputIDs(raw datatypes.JSON) ([]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var p dto.GenerationPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return p.InputIDs, nil
}
