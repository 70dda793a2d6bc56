package pipelinemock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/rustedworkshop/smokerig/internal/model"
	"github.com/rustedworkshop/smokerig/internal/pipeline"
)

// MockAPI is a testify mock of the pipeline.API interface.
type MockAPI struct {
	mock.Mock
}

func (m *MockAPI) Health(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockAPI) SubmitTask(ctx context.Context, req pipeline.SubmitRequest) (*model.TaskAck, error) {
	args := m.Called(ctx, req)

	var ack *model.TaskAck
	if v := args.Get(0); v != nil {
		ack = v.(*model.TaskAck)
	}
	return ack, args.Error(1)
}

func (m *MockAPI) TaskStatus(ctx context.Context, taskID string) (*model.TaskStatus, error) {
	args := m.Called(ctx, taskID)

	var status *model.TaskStatus
	if v := args.Get(0); v != nil {
		status = v.(*model.TaskStatus)
	}
	return status, args.Error(1)
}

func (m *MockAPI) TaskResult(ctx context.Context, taskID string) (*model.ResultLocation, error) {
	args := m.Called(ctx, taskID)

	var loc *model.ResultLocation
	if v := args.Get(0); v != nil {
		loc = v.(*model.ResultLocation)
	}
	return loc, args.Error(1)
}
