package mocks

import (
	"context"

	"github.com/joshu-sajeev/dailygist/internal/dto"
	"github.com/stretchr/testify/mock"
)

type GeneratorMock struct {
	mock.Mock
}

// Generate expects three return values: the result ref, the error, and an
// optional func run first with the job context and progress callback.
func (m *GeneratorMock) Generate(ctx context.Context, job *dto.ClaimedJobDTO, progress func(stage string)) (string, error) {
	args := m.Called(ctx, job.ID)
	if fn, ok := args.Get(2).(func(ctx context.Context, progress func(string)) error); ok && fn != nil {
		if err := fn(ctx, progress); err != nil {
			return "", err
		}
	}
	return args.String(0), args.Error(1)
}
