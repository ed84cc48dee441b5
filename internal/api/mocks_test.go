package api

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/jhartig/kapsel/internal/dispatch"
	"github.com/jhartig/kapsel/internal/stage"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) RunScript(ctx context.Context, file stage.File) (string, error) {
	args := m.Called(ctx, file)
	return args.String(0), args.Error(1)
}

func (m *MockService) RunTests(ctx context.Context, files []stage.File) (*dispatch.TestResult, error) {
	args := m.Called(ctx, files)
	if res := args.Get(0); res != nil {
		return res.(*dispatch.TestResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockService) Result(ctx context.Context, sessionID string) (*dispatch.PollResult, error) {
	args := m.Called(ctx, sessionID)
	if res := args.Get(0); res != nil {
		return res.(*dispatch.PollResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockService) Cleanup(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

type MockPrewarmer struct {
	mock.Mock
}

func (m *MockPrewarmer) TopUp(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *MockPrewarmer) Size() int {
	args := m.Called()
	return args.Int(0)
}
