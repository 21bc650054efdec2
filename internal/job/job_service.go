package job

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/joshu-sajeev/dailygist/common"
	"github.com/joshu-sajeev/dailygist/internal/config"
	"github.com/joshu-sajeev/dailygist/internal/dto"
	"github.com/joshu-sajeev/dailygist/internal/metrics"
	"github.com/joshu-sajeev/dailygist/internal/models"
	"github.com/joshu-sajeev/dailygist/internal/notify"
	"gorm.io/gorm"
)

// ownerJobsLimit caps the history returned to a tenant.
const ownerJobsLimit = 30

type JobService struct {
	repo     JobRepoInterface
	notifier notify.Notifier
}

func NewJobService(repo JobRepoInterface, notifier notify.Notifier) *JobService {
	if notifier == nil {
		notifier = notify.Noop{}
	}
	return &JobService{repo: repo, notifier: notifier}
}

var _ JobServiceInterface = (*JobService)(nil)

// Claim takes the oldest queued job for workerID. A nil descriptor with a nil
// error means nothing is available.
func (s *JobService) Claim(ctx context.Context, workerID string) (*dto.ClaimedJobDTO, error) {
	if err := ctx.Err(); err != nil {
		return nil, common.Errf(http.StatusRequestTimeout, "request canceled or timed out")
	}

	if strings.TrimSpace(workerID) == "" {
		return nil, common.Errf(http.StatusBadRequest, "worker_id is required")
	}

	j, err := s.repo.Claim(ctx, workerID)
	if err != nil {
		return nil, mapRepoError(err, "failed to claim job")
	}

	if j == nil {
		metrics.ClaimsEmpty.Inc()
		return nil, nil
	}

	metrics.JobsClaimed.Inc()
	slog.Info("job claimed", "job_id", j.ID, "owner_id", j.OwnerID, "worker_id", workerID)

	return &dto.ClaimedJobDTO{
		ID:            j.ID,
		OwnerID:       j.OwnerID,
		SchedulingDay: j.SchedulingDay,
		Payload:       json.RawMessage(j.Payload),
	}, nil
}

// MarkReady records a successful generation. It is a no-op returning false
// when the job is no longer processing under workerID.
func (s *JobService) MarkReady(ctx context.Context, id, workerID, resultRef string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, common.Errf(http.StatusRequestTimeout, "request timed out")
	}

	applied, err := s.repo.MarkReady(ctx, id, workerID, resultRef)
	if err != nil {
		return false, mapRepoError(err, "failed to mark job ready")
	}

	metrics.ObserveCompletion(string(config.JobStatusReady), applied)
	if !applied {
		slog.Warn("ignored ready report for job not held by worker", "job_id", id, "worker_id", workerID)
	} else {
		slog.Info("job ready", "job_id", id, "worker_id", workerID, "result_ref", resultRef)
	}
	return applied, nil
}

// MarkFailed records a clean failure. It is a no-op returning false when the
// job is no longer processing under workerID.
func (s *JobService) MarkFailed(ctx context.Context, id, workerID, detail string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, common.Errf(http.StatusRequestTimeout, "request timed out")
	}

	if strings.TrimSpace(detail) == "" {
		detail = "generation failed"
	}

	applied, err := s.repo.MarkFailed(ctx, id, workerID, detail)
	if err != nil {
		return false, mapRepoError(err, "failed to mark job failed")
	}

	metrics.ObserveCompletion(string(config.JobStatusFailed), applied)
	if !applied {
		slog.Warn("ignored failure report for job not held by worker", "job_id", id, "worker_id", workerID)
	} else {
		slog.Info("job failed", "job_id", id, "worker_id", workerID, "error", detail)
	}
	return applied, nil
}

// ReportProgress stores a partial progress marker for a held job.
func (s *JobService) ReportProgress(ctx context.Context, id, workerID, stage string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, common.Errf(http.StatusRequestTimeout, "request timed out")
	}

	if !slices.Contains(config.AllowedProgressStages, stage) {
		return false, common.NewAPIError(
			http.StatusBadRequest,
			"invalid progress stage",
			map[string]any{
				"provided": stage,
				"allowed":  config.AllowedProgressStages,
			},
		)
	}

	applied, err := s.repo.ReportProgress(ctx, id, workerID, stage)
	if err != nil {
		return false, mapRepoError(err, "failed to record progress")
	}
	return applied, nil
}

// Reconcile resets jobs stuck in processing for longer than timeout and
// wakes workers for each one.
func (s *JobService) Reconcile(ctx context.Context, timeout time.Duration) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, common.Errf(http.StatusRequestTimeout, "request timed out")
	}

	if timeout <= 0 {
		return 0, common.Errf(http.StatusBadRequest, "timeout must be positive")
	}

	reset, err := s.repo.ResetStale(ctx, timeout)
	if err != nil {
		return 0, mapRepoError(err, "failed to reconcile stale jobs")
	}

	for _, j := range reset {
		metrics.JobsStaleReset.Inc()
		slog.Warn("recovered stale job", "job_id", j.ID, "owner_id", j.OwnerID, "timeout", timeout)
		notify.Publish(ctx, s.notifier, j.ID, j.OwnerID, notify.ReasonStaleReset)
	}
	return len(reset), nil
}

// GetJobByID retrieves a job by its ID from the repository.
func (s *JobService) GetJobByID(ctx context.Context, id string) (*dto.JobResponseDTO, error) {
	if err := ctx.Err(); err != nil {
		return nil, common.Errf(http.StatusRequestTimeout, "request timed out")
	}

	j, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) ||
			strings.Contains(err.Error(), "job not found") {
			return nil, common.Errf(http.StatusNotFound, "job not found")
		}
		return nil, mapRepoError(err, "failed to get job")
	}

	resp := toResponse(*j)
	return &resp, nil
}

// ListOwnerJobs returns the owner's recent jobs, newest day first.
func (s *JobService) ListOwnerJobs(ctx context.Context, ownerID string) ([]dto.JobResponseDTO, error) {
	if err := ctx.Err(); err != nil {
		return nil, common.Errf(http.StatusRequestTimeout, "request timed out")
	}

	jobs, err := s.repo.ListByOwner(ctx, ownerID, ownerJobsLimit)
	if err != nil {
		return nil, mapRepoError(err, "failed to list jobs")
	}

	dtos := make([]dto.JobResponseDTO, len(jobs))
	for i, j := range jobs {
		dtos[i] = toResponse(j)
	}
	return dtos, nil
}

func mapRepoError(err error, message string) error {
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) {
		return common.Wrap(http.StatusRequestTimeout, err, "request timed out")
	}
	slog.Error(message, "error", err)
	return common.Wrap(http.StatusInternalServerError, err, message)
}

func toResponse(j models.Job) dto.JobResponseDTO {
	return dto.JobResponseDTO{
		ID:            j.ID,
		OwnerID:       j.OwnerID,
		SchedulingDay: j.SchedulingDay,
		Status:        string(j.Status),
		Payload:       json.RawMessage(j.Payload),
		ClaimedAt:     j.ClaimedAt,
		ClaimedBy:     deref(j.ClaimedBy),
		ProgressStage: deref(j.ProgressStage),
		RetryCount:    j.RetryCount,
		ErrorDetail:   deref(j.ErrorDetail),
		ResultRef:     deref(j.ResultRef),
		CreatedAt:     j.CreatedAt,
		UpdatedAt:     j.UpdatedAt,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
