package reportermock

import (
	"github.com/stretchr/testify/mock"

	"github.com/rustedworkshop/smokerig/internal/model"
)

// MockReporter is a mock implementation of reporter.Reporter.
type MockReporter struct {
	mock.Mock
}

// TaskSubmitted mocks reporter.Reporter.TaskSubmitted.
func (m *MockReporter) TaskSubmitted(ack model.TaskAck) error {
	args := m.Called(ack)
	return args.Error(0)
}

// PollObservation mocks reporter.Reporter.PollObservation.
func (m *MockReporter) PollObservation(iteration int, status model.TaskStatus) error {
	args := m.Called(iteration, status)
	return args.Error(0)
}

// FinalOutcome mocks reporter.Reporter.FinalOutcome.
func (m *MockReporter) FinalOutcome(status model.TaskStatus) error {
	args := m.Called(status)
	return args.Error(0)
}

// ResultResolved mocks reporter.Reporter.ResultResolved.
func (m *MockReporter) ResultResolved(loc model.ResultLocation) error {
	args := m.Called(loc)
	return args.Error(0)
}
