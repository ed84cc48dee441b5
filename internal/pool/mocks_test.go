package pool

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/jhartig/kapsel/internal/docker"
)

// MockRuntime mocks the Runtime interface.
type MockRuntime struct {
	mock.Mock
}

func (m *MockRuntime) CreateSandbox(ctx context.Context, opts docker.CreateOpts) (string, error) {
	args := m.Called(ctx, opts)
	return args.String(0), args.Error(1)
}

func (m *MockRuntime) StartSandbox(ctx context.Context, containerID string) error {
	args := m.Called(ctx, containerID)
	return args.Error(0)
}

func (m *MockRuntime) StopRemove(ctx context.Context, containerID string) error {
	args := m.Called(ctx, containerID)
	return args.Error(0)
}
