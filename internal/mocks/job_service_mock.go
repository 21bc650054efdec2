package mocks

import (
	"context"
	"time"

	"github.com/joshu-sajeev/dailygist/internal/dto"
	"github.com/stretchr/testify/mock"
)

// JobServiceMock stands in for the job service in handler tests and for the
// worker's queue in worker tests.
type JobServiceMock struct {
	mock.Mock
}

func (m *JobServiceMock) Claim(ctx context.Context, workerID string) (*dto.ClaimedJobDTO, error) {
	args := m.Called(workerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ClaimedJobDTO), args.Error(1)
}

func (m *JobServiceMock) MarkReady(ctx context.Context, id, workerID, resultRef string) (bool, error) {
	args := m.Called(id, workerID, resultRef)
	return args.Bool(0), args.Error(1)
}

func (m *JobServiceMock) MarkFailed(ctx context.Context, id, workerID, detail string) (bool, error) {
	args := m.Called(id, workerID, detail)
	return args.Bool(0), args.Error(1)
}

func (m *JobServiceMock) ReportProgress(ctx context.Context, id, workerID, stage string) (bool, error) {
	args := m.Called(id, workerID, stage)
	return args.Bool(0), args.Error(1)
}

func (m *JobServiceMock) Reconcile(ctx context.Context, timeout time.Duration) (int, error) {
	args := m.Called(timeout)
	return args.Int(0), args.Error(1)
}

func (m *JobServiceMock) GetJobByID(ctx context.Context, id string) (*dto.JobResponseDTO, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.JobResponseDTO), args.Error(1)
}

func (m *JobServiceMock) ListOwnerJobs(ctx context.Context, ownerID string) ([]dto.JobResponseDTO, error) {
	args := m.Called(ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]dto.JobResponseDTO), args.Error(1)
}
