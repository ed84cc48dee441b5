package sweeper

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/jhartig/kapsel/internal/registry"
)

// MockRuntime mocks the Runtime interface.
type MockRuntime struct {
	mock.Mock
}

func (m *MockRuntime) StopRemove(ctx context.Context, containerID string) error {
	args := m.Called(ctx, containerID)
	return args.Error(0)
}

// MockReplenisher mocks the Replenisher interface.
type MockReplenisher struct {
	mock.Mock
}

func (m *MockReplenisher) Replenish(ctx context.Context) {
	m.Called(ctx)
}

// MockSessionSource mocks the SessionSource interface.
type MockSessionSource struct {
	mock.Mock
}

func (m *MockSessionSource) Snapshot() []registry.Session {
	args := m.Called()
	if sessions := args.Get(0); sessions != nil {
		return sessions.([]registry.Session)
	}
	return nil
}

func (m *MockSessionSource) Delete(id string) (registry.Session, error) {
	args := m.Called(id)
	return args.Get(0).(registry.Session), args.Error(1)
}
