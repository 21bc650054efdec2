package mocks

import (
	"context"

	"github.com/joshu-sajeev/dailygist/internal/dto"
	"github.com/stretchr/testify/mock"
)

type RunnerMock struct {
	mock.Mock
}

func (m *RunnerMock) Run(ctx context.Context) (*dto.TriggerResponseDTO, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.TriggerResponseDTO), args.Error(1)
}
