package dispatch

import (
	"context"
	"io"

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

func (m *MockRuntime) InjectArchive(ctx context.Context, containerID, path string, archive io.Reader) error {
	args := m.Called(ctx, containerID, path, archive)
	return args.Error(0)
}

func (m *MockRuntime) Exec(ctx context.Context, containerID string, opts docker.ExecOpts) (*docker.ExecResult, error) {
	args := m.Called(ctx, containerID, opts)
	if res := args.Get(0); res != nil {
		return res.(*docker.ExecResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRuntime) IsRunning(ctx context.Context, containerID string) (bool, error) {
	args := m.Called(ctx, containerID)
	return args.Bool(0), args.Error(1)
}

func (m *MockRuntime) Logs(ctx context.Context, containerID string) (string, error) {
	args := m.Called(ctx, containerID)
	return args.String(0), args.Error(1)
}

func (m *MockRuntime) StopRemove(ctx context.Context, containerID string) error {
	args := m.Called(ctx, containerID)
	return args.Error(0)
}

// MockPool mocks the SandboxPool interface.
type MockPool struct {
	mock.Mock
}

func (m *MockPool) Acquire() (string, bool) {
	args := m.Called()
	return args.String(0), args.Bool(1)
}

// emptyPool always reports an empty warm pool.
type emptyPool struct{}

func (emptyPool) Acquire() (string, bool) { return "", false }
