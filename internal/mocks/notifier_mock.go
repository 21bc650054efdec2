package mocks

import (
	"context"

	"github.com/joshu-sajeev/dailygist/internal/notify"
	"github.com/stretchr/testify/mock"
)

type NotifierMock struct {
	mock.Mock
}

func (m *NotifierMock) NotifyQueued(ctx context.Context, event notify.WakeEvent) error {
	args := m.Called(event.JobID, event.Reason)
	return args.Error(0)
}
