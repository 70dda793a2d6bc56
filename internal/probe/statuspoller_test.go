package probe_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rustedworkshop/smokerig/internal/model"
	"github.com/rustedworkshop/smokerig/internal/pipeline/pipelinemock"
	"github.com/rustedworkshop/smokerig/internal/probe"
	"github.com/rustedworkshop/smokerig/internal/reporter/reportermock"
)

func TestNewStatusPoller(t *testing.T) {
	tests := map[string]struct {
		config probe.StatusPollerConfig
		expErr bool
	}{
		"A config with an API and a reporter should be valid.": {
			config: probe.StatusPollerConfig{
				API:      &pipelinemock.MockAPI{},
				Reporter: &reportermock.MockReporter{},
			},
		},

		"A config without an API should fail.": {
			config: probe.StatusPollerConfig{Reporter: &reportermock.MockReporter{}},
			expErr: true,
		},

		"A config without a reporter should fail.": {
			config: probe.StatusPollerConfig{API: &pipelinemock.MockAPI{}},
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			_, err := probe.NewStatusPoller(test.config)

			if test.expErr {
				assert.Error(err)
			} else {
				assert.NoError(err)
			}
		})
	}
}

func TestStatusPollerPollUntilTerminal(t *testing.T) {
	queued := model.TaskStatus{TaskID: "abc123", Status: model.TaskStateQueued}
	processing := model.TaskStatus{TaskID: "abc123", Status: model.TaskStateProcessing, Progress: 0.4, ProcessedFiles: 2, TotalFiles: 5}
	completed := model.TaskStatus{TaskID: "abc123", Status: model.TaskStateCompleted, Progress: 1.0, ProcessedFiles: 5, TotalFiles: 5}
	failed := model.TaskStatus{TaskID: "abc123", Status: model.TaskStateFailed, Progress: 0.4, ProcessedFiles: 2, TotalFiles: 5, ErrorMessage: "corrupt archive"}

	tests := map[string]struct {
		mockAPI       func(m *pipelinemock.MockAPI)
		mockReporter  func(m *reportermock.MockReporter)
		maxIterations int
		expStatus     *model.TaskStatus
		expErr        error
		expErrMsg     string
	}{
		"A scripted queued, processing, completed sequence should stop on the third observation.": {
			mockAPI: func(m *pipelinemock.MockAPI) {
				m.On("TaskStatus", mock.Anything, "abc123").Once().Return(&queued, nil)
				m.On("TaskStatus", mock.Anything, "abc123").Once().Return(&processing, nil)
				m.On("TaskStatus", mock.Anything, "abc123").Once().Return(&completed, nil)
			},
			mockReporter: func(m *reportermock.MockReporter) {
				m.On("PollObservation", 1, queued).Once().Return(nil)
				m.On("PollObservation", 2, processing).Once().Return(nil)
				m.On("PollObservation", 3, completed).Once().Return(nil)
			},
			maxIterations: 10,
			expStatus:     &completed,
		},

		"A failed task should terminate polling and surface the backend error message.": {
			mockAPI: func(m *pipelinemock.MockAPI) {
				m.On("TaskStatus", mock.Anything, "abc123").Once().Return(&queued, nil)
				m.On("TaskStatus", mock.Anything, "abc123").Once().Return(&failed, nil)
			},
			mockReporter: func(m *reportermock.MockReporter) {
				m.On("PollObservation", 1, queued).Once().Return(nil)
				m.On("PollObservation", 2, failed).Once().Return(nil)
			},
			maxIterations: 10,
			expStatus:     &failed,
		},

		"Transient fetch errors should consume iterations until the budget runs out.": {
			mockAPI: func(m *pipelinemock.MockAPI) {
				m.On("TaskStatus", mock.Anything, "abc123").Times(3).Return(nil, errors.New("connection refused"))
			},
			mockReporter:  func(m *reportermock.MockReporter) {},
			maxIterations: 3,
			expErr:        model.ErrPollTimeout,
			expErrMsg:     "unknown",
		},

		"A task that never reaches a terminal status should time out with the last seen status.": {
			mockAPI: func(m *pipelinemock.MockAPI) {
				m.On("TaskStatus", mock.Anything, "abc123").Times(2).Return(&queued, nil)
			},
			mockReporter: func(m *reportermock.MockReporter) {
				m.On("PollObservation", mock.Anything, queued).Times(2).Return(nil)
			},
			maxIterations: 2,
			expErr:        model.ErrPollTimeout,
			expErrMsg:     "queued",
		},

		"An unrecognized status value should be treated as non-terminal.": {
			mockAPI: func(m *pipelinemock.MockAPI) {
				weird := model.TaskStatus{TaskID: "abc123", Status: model.TaskState("translating")}
				m.On("TaskStatus", mock.Anything, "abc123").Times(2).Return(&weird, nil)
			},
			mockReporter: func(m *reportermock.MockReporter) {
				m.On("PollObservation", mock.Anything, mock.Anything).Times(2).Return(nil)
			},
			maxIterations: 2,
			expErr:        model.ErrPollTimeout,
			expErrMsg:     "translating",
		},

		"A reporter failure should not stop the poll loop.": {
			mockAPI: func(m *pipelinemock.MockAPI) {
				m.On("TaskStatus", mock.Anything, "abc123").Once().Return(&completed, nil)
			},
			mockReporter: func(m *reportermock.MockReporter) {
				m.On("PollObservation", 1, completed).Once().Return(errors.New("broken pipe"))
			},
			maxIterations: 10,
			expStatus:     &completed,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			mapi := &pipelinemock.MockAPI{}
			test.mockAPI(mapi)
			mrep := &reportermock.MockReporter{}
			test.mockReporter(mrep)

			poller, err := probe.NewStatusPoller(probe.StatusPollerConfig{
				API:            mapi,
				Reporter:       mrep,
				MaxIterations:  test.maxIterations,
				Interval:       time.Millisecond,
				RequestTimeout: 50 * time.Millisecond,
			})
			require.NoError(err)

			status, err := poller.PollUntilTerminal(context.Background(), "abc123")

			if test.expErr != nil {
				assert.True(errors.Is(err, test.expErr))
				assert.Contains(err.Error(), test.expErrMsg)
			} else if assert.NoError(err) {
				assert.Equal(test.expStatus, status)
			}
			mapi.AssertExpectations(t)
			mrep.AssertExpectations(t)
		})
	}
}

func TestStatusPollerCanceledContext(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	mapi := &pipelinemock.MockAPI{}
	mrep := &reportermock.MockReporter{}

	poller, err := probe.NewStatusPoller(probe.StatusPollerConfig{
		API:      mapi,
		Reporter: mrep,
		Interval: time.Second,
	})
	require.NoError(err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = poller.PollUntilTerminal(ctx, "abc123")

	assert.True(errors.Is(err, context.Canceled))
	mapi.AssertNotCalled(t, "TaskStatus", mock.Anything, mock.Anything)
}
