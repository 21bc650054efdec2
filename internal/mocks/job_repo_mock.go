package mocks

import (
	"context"
	"time"

	"github.com/joshu-sajeev/dailygist/internal/models"
	"github.com/stretchr/testify/mock"
	"gorm.io/datatypes"
)

type JobRepoMock struct {
	mock.Mock
}

func (m *JobRepoMock) Enqueue(ctx context.Context, ownerID, day string, payload datatypes.JSON) (*models.Job, models.EnqueueOutcome, error) {
	args := m.Called(ctx, ownerID, day, payload)

	job, _ := args.Get(0).(*models.Job)
	return job, args.Get(1).(models.EnqueueOutcome), args.Error(2)
}

func (m *JobRepoMock) Claim(ctx context.Context, workerID string) (*models.Job, error) {
	args := m.Called(ctx, workerID)

	job, _ := args.Get(0).(*models.Job)
	return job, args.Error(1)
}

func (m *JobRepoMock) MarkReady(ctx context.Context, id, workerID, resultRef string) (bool, error) {
	args := m.Called(ctx, id, workerID, resultRef)
	return args.Bool(0), args.Error(1)
}

func (m *JobRepoMock) MarkFailed(ctx context.Context, id, workerID, detail string) (bool, error) {
	args := m.Called(ctx, id, workerID, detail)
	return args.Bool(0), args.Error(1)
}

func (m *JobRepoMock) ReportProgress(ctx context.Context, id, workerID, stage string) (bool, error) {
	args := m.Called(ctx, id, workerID, stage)
	return args.Bool(0), args.Error(1)
}

func (m *JobRepoMock) ResetStale(ctx context.Context, timeout time.Duration) ([]models.Job, error) {
	args := m.Called(ctx, timeout)

	jobs, _ := args.Get(0).([]models.Job)
	return jobs, args.Error(1)
}

func (m *JobRepoMock) ListRetryCandidates(ctx context.Context, maxRetries int, fromDay, toDay string) ([]models.Job, error) {
	args := m.Called(ctx, maxRetries, fromDay, toDay)

	jobs, _ := args.Get(0).([]models.Job)
	return jobs, args.Error(1)
}

func (m *JobRepoMock) Requeue(ctx context.Context, id string, expectedRetries, maxRetries int, payload datatypes.JSON) (bool, error) {
	args := m.Called(ctx, id, expectedRetries, maxRetries, payload)
	return args.Bool(0), args.Error(1)
}

func (m *JobRepoMock) Get(ctx context.Context, id string) (*models.Job, error) {
	args := m.Called(ctx, id)

	job, _ := args.Get(0).(*models.Job)
	return job, args.Error(1)
}

func (m *JobRepoMock) ListByOwner(ctx context.Context, ownerID string, limit int) ([]models.Job, error) {
	args := m.Called(ctx, ownerID, limit)

	jobs, _ := args.Get(0).([]models.Job)
	return jobs, args.Error(1)
}
