package job

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joshu-sajeev/dailygist/internal/dto"
	"github.com/joshu-sajeev/dailygist/internal/models"
	"gorm.io/datatypes"
)

// JobRepoInterface defines the contract for job store operations. Every
// mutating method is a single atomic transaction.
type JobRepoInterface interface {
	Enqueue(ctx context.Context, ownerID, day string, payload datatypes.JSON) (*models.Job, models.EnqueueOutcome, error)
	Claim(ctx context.Context, workerID string) (*models.Job, error)
	MarkReady(ctx context.Context, id, workerID, resultRef string) (bool, error)
	MarkFailed(ctx context.Context, id, workerID, detail string) (bool, error)
	ReportProgress(ctx context.Context, id, workerID, stage string) (bool, error)
	ResetStale(ctx context.Context, timeout time.Duration) ([]models.Job, error)
	ListRetryCandidates(ctx context.Context, maxRetries int, fromDay, toDay string) ([]models.Job, error)
	Requeue(ctx context.Context, id string, expectedRetries, maxRetries int, payload datatypes.JSON) (bool, error)
	Get(ctx context.Context, id string) (*models.Job, error)
	ListByOwner(ctx context.Context, ownerID string, limit int) ([]models.Job, error)
}

// JobServiceInterface defines the contract for job business logic operations.
type JobServiceInterface interface {
	Claim(ctx context.Context, workerID string) (*dto.ClaimedJobDTO, error)
	MarkReady(ctx context.Context, id, workerID, resultRef string) (bool, error)
	MarkFailed(ctx context.Context, id, workerID, detail string) (bool, error)
	ReportProgress(ctx context.Context, id, workerID, stage string) (bool, error)
	Reconcile(ctx context.Context, timeout time.Duration) (int, error)
	GetJobByID(ctx context.Context, id string) (*dto.JobResponseDTO, error)
	ListOwnerJobs(ctx context.Context, ownerID string) ([]dto.JobResponseDTO, error)
}

// JobHandlerInterface defines the contract for HTTP request handlers.
type JobHandlerInterface interface {
	Claim(c *gin.Context)
	MarkReady(c *gin.Context)
	MarkFailed(c *gin.Context)
	Progress(c *gin.Context)
	Reconcile(c *gin.Context)
	Get(c *gin.Context)
	ListByOwner(c *gin.Context)
}
