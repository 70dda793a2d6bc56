package runnermock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/rustedworkshop/smokerig/internal/model"
)

// MockRunner is a testify mock of the runner.Runner interface.
type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) Check(ctx context.Context, specs []model.ServiceSpec) []model.CheckResult {
	args := m.Called(ctx, specs)

	var results []model.CheckResult
	if v := args.Get(0); v != nil {
		results = v.([]model.CheckResult)
	}
	return results
}

func (m *MockRunner) Start(ctx context.Context, spec model.ServiceSpec) (*model.ServiceProcess, error) {
	args := m.Called(ctx, spec)

	var process *model.ServiceProcess
	if v := args.Get(0); v != nil {
		process = v.(*model.ServiceProcess)
	}
	return process, args.Error(1)
}

func (m *MockRunner) IsRunning(process *model.ServiceProcess) bool {
	args := m.Called(process)
	return args.Bool(0)
}

func (m *MockRunner) Terminate(process *model.ServiceProcess) error {
	args := m.Called(process)
	return args.Error(0)
}
