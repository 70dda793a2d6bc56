package docker_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rustedworkshop/smokerig/internal/log"
	"github.com/rustedworkshop/smokerig/internal/model"
	"github.com/rustedworkshop/smokerig/internal/runner/docker"
)

type mockDockerClient struct {
	mock.Mock
}

func (m *mockDockerClient) Ping(ctx context.Context) (types.Ping, error) {
	args := m.Called(ctx)
	return args.Get(0).(types.Ping), args.Error(1)
}

func (m *mockDockerClient) ImagePull(ctx context.Context, refStr string, options image.PullOptions) (io.ReadCloser, error) {
	args := m.Called(ctx, refStr, options)

	var rc io.ReadCloser
	if v := args.Get(0); v != nil {
		rc = v.(io.ReadCloser)
	}
	return rc, args.Error(1)
}

func (m *mockDockerClient) ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig, networkingConfig *network.NetworkingConfig, platform *ocispec.Platform, containerName string) (container.CreateResponse, error) {
	args := m.Called(ctx, config, hostConfig, networkingConfig, platform, containerName)
	return args.Get(0).(container.CreateResponse), args.Error(1)
}

func (m *mockDockerClient) ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error {
	args := m.Called(ctx, containerID, options)
	return args.Error(0)
}

func (m *mockDockerClient) ContainerStop(ctx context.Context, containerID string, options container.StopOptions) error {
	args := m.Called(ctx, containerID, options)
	return args.Error(0)
}

func (m *mockDockerClient) ContainerRemove(ctx context.Context, containerID string, options container.RemoveOptions) error {
	args := m.Called(ctx, containerID, options)
	return args.Error(0)
}

func (m *mockDockerClient) ContainerInspect(ctx context.Context, containerID string) (container.InspectResponse, error) {
	args := m.Called(ctx, containerID)
	return args.Get(0).(container.InspectResponse), args.Error(1)
}

func (m *mockDockerClient) ContainerLogs(ctx context.Context, containerID string, options container.LogsOptions) (io.ReadCloser, error) {
	args := m.Called(ctx, containerID, options)

	var rc io.ReadCloser
	if v := args.Get(0); v != nil {
		rc = v.(io.ReadCloser)
	}
	return rc, args.Error(1)
}

func newRunner(t *testing.T, cli docker.DockerClient) *docker.Runner {
	t.Helper()

	r, err := docker.NewRunner(docker.RunnerConfig{
		Client: cli,
		LogDir: t.TempDir(),
		Logger: log.Noop,
	})
	require.NoError(t, err)

	return r
}

func emptyStream() io.ReadCloser {
	return io.NopCloser(strings.NewReader(""))
}

func TestRunnerStart(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	cli := &mockDockerClient{}
	cli.On("ImagePull", mock.Anything, "registry.example.com/pipeline/api:latest", mock.Anything).Once().Return(emptyStream(), nil)
	cli.On("ContainerCreate", mock.Anything, mock.MatchedBy(func(c *container.Config) bool {
		return c.Image == "registry.example.com/pipeline/api:latest" && len(c.Env) == 1 && c.Env[0] == "PORT=8001"
	}), mock.MatchedBy(func(hc *container.HostConfig) bool {
		return hc.NetworkMode == container.NetworkMode("host")
	}), mock.Anything, mock.Anything, mock.MatchedBy(func(name string) bool {
		return strings.HasPrefix(name, "smokerig-api-")
	})).Once().Return(container.CreateResponse{ID: "cid-1"}, nil)
	cli.On("ContainerStart", mock.Anything, "cid-1", mock.Anything).Once().Return(nil)
	cli.On("ContainerLogs", mock.Anything, "cid-1", mock.Anything).Once().Return(emptyStream(), nil)

	r := newRunner(t, cli)

	p, err := r.Start(context.Background(), model.ServiceSpec{
		Name:  "api",
		Image: "registry.example.com/pipeline/api:latest",
		Env:   map[string]string{"PORT": "8001"},
	})
	require.NoError(err)

	assert.Equal("api", p.Name)
	assert.Equal("cid-1", p.ContainerID)
	cli.AssertExpectations(t)
}

func TestRunnerStartNoImage(t *testing.T) {
	assert := assert.New(t)

	r := newRunner(t, &mockDockerClient{})

	_, err := r.Start(context.Background(), model.ServiceSpec{
		Name:    "api",
		Command: []string{"python", "start_api.py"},
	})
	assert.Error(err)
	assert.True(errors.Is(err, model.ErrNotValid))
}

func TestRunnerStartPullFails(t *testing.T) {
	assert := assert.New(t)

	cli := &mockDockerClient{}
	cli.On("ImagePull", mock.Anything, mock.Anything, mock.Anything).Once().Return(nil, errors.New("registry unreachable"))

	r := newRunner(t, cli)

	_, err := r.Start(context.Background(), model.ServiceSpec{Name: "api", Image: "img"})
	assert.Error(err)
	assert.True(errors.Is(err, model.ErrLaunch))
	cli.AssertExpectations(t)
}

func TestRunnerStartContainerStartFailsCleansUp(t *testing.T) {
	assert := assert.New(t)

	cli := &mockDockerClient{}
	cli.On("ImagePull", mock.Anything, mock.Anything, mock.Anything).Once().Return(emptyStream(), nil)
	cli.On("ContainerCreate", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Once().Return(container.CreateResponse{ID: "cid-1"}, nil)
	cli.On("ContainerStart", mock.Anything, "cid-1", mock.Anything).Once().Return(errors.New("boom"))
	cli.On("ContainerRemove", mock.Anything, "cid-1", mock.MatchedBy(func(o container.RemoveOptions) bool {
		return o.Force
	})).Once().Return(nil)

	r := newRunner(t, cli)

	_, err := r.Start(context.Background(), model.ServiceSpec{Name: "api", Image: "img"})
	assert.Error(err)
	assert.True(errors.Is(err, model.ErrLaunch))
	cli.AssertExpectations(t)
}

func TestRunnerIsRunning(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	cli := &mockDockerClient{}
	cli.On("ImagePull", mock.Anything, mock.Anything, mock.Anything).Once().Return(emptyStream(), nil)
	cli.On("ContainerCreate", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Once().Return(container.CreateResponse{ID: "cid-1"}, nil)
	cli.On("ContainerStart", mock.Anything, "cid-1", mock.Anything).Once().Return(nil)
	cli.On("ContainerLogs", mock.Anything, "cid-1", mock.Anything).Once().Return(emptyStream(), nil)
	cli.On("ContainerInspect", mock.Anything, "cid-1").Once().Return(container.InspectResponse{
		ContainerJSONBase: &container.ContainerJSONBase{State: &container.State{Running: true}},
	}, nil)
	cli.On("ContainerInspect", mock.Anything, "cid-1").Once().Return(container.InspectResponse{
		ContainerJSONBase: &container.ContainerJSONBase{State: &container.State{Running: false}},
	}, nil)

	r := newRunner(t, cli)

	p, err := r.Start(context.Background(), model.ServiceSpec{Name: "api", Image: "img"})
	require.NoError(err)

	assert.True(r.IsRunning(p))
	assert.False(r.IsRunning(p))
	assert.False(r.IsRunning(&model.ServiceProcess{Name: "never-started"}))
	cli.AssertExpectations(t)
}

func TestRunnerTerminate(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	cli := &mockDockerClient{}
	cli.On("ImagePull", mock.Anything, mock.Anything, mock.Anything).Once().Return(emptyStream(), nil)
	cli.On("ContainerCreate", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Once().Return(container.CreateResponse{ID: "cid-1"}, nil)
	cli.On("ContainerStart", mock.Anything, "cid-1", mock.Anything).Once().Return(nil)
	cli.On("ContainerLogs", mock.Anything, "cid-1", mock.Anything).Once().Return(emptyStream(), nil)
	cli.On("ContainerStop", mock.Anything, "cid-1", mock.Anything).Once().Return(nil)
	cli.On("ContainerRemove", mock.Anything, "cid-1", mock.Anything).Once().Return(nil)

	r := newRunner(t, cli)

	p, err := r.Start(context.Background(), model.ServiceSpec{Name: "api", Image: "img"})
	require.NoError(err)

	require.NoError(r.Terminate(p))

	// Terminating again is a no-op with no further daemon calls.
	require.NoError(r.Terminate(p))
	assert.NoError(r.Terminate(nil))
	cli.AssertExpectations(t)
}

func TestRunnerTerminateGoneContainer(t *testing.T) {
	require := require.New(t)

	cli := &mockDockerClient{}
	cli.On("ImagePull", mock.Anything, mock.Anything, mock.Anything).Once().Return(emptyStream(), nil)
	cli.On("ContainerCreate", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Once().Return(container.CreateResponse{ID: "cid-1"}, nil)
	cli.On("ContainerStart", mock.Anything, "cid-1", mock.Anything).Once().Return(nil)
	cli.On("ContainerLogs", mock.Anything, "cid-1", mock.Anything).Once().Return(emptyStream(), nil)
	cli.On("ContainerStop", mock.Anything, "cid-1", mock.Anything).Once().Return(errors.New("Error response from daemon: No such container: cid-1"))
	cli.On("ContainerRemove", mock.Anything, "cid-1", mock.Anything).Once().Return(errors.New("Error response from daemon: No such container: cid-1"))

	r := newRunner(t, cli)

	p, err := r.Start(context.Background(), model.ServiceSpec{Name: "api", Image: "img"})
	require.NoError(err)

	require.NoError(r.Terminate(p))
	cli.AssertExpectations(t)
}

func TestRunnerCheck(t *testing.T) {
	tests := map[string]struct {
		mock      func(m *mockDockerClient)
		expStatus model.CheckStatus
	}{
		"A reachable daemon should pass": {
			mock: func(m *mockDockerClient) {
				m.On("Ping", mock.Anything).Once().Return(types.Ping{APIVersion: "1.47"}, nil)
			},
			expStatus: model.CheckStatusOK,
		},

		"An unreachable daemon should fail": {
			mock: func(m *mockDockerClient) {
				m.On("Ping", mock.Anything).Once().Return(types.Ping{}, errors.New("cannot connect"))
			},
			expStatus: model.CheckStatusError,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			cli := &mockDockerClient{}
			test.mock(cli)

			r := newRunner(t, cli)
			results := r.Check(context.Background(), nil)

			assert.Len(results, 1)
			assert.Equal("docker_daemon", results[0].ID)
			assert.Equal(test.expStatus, results[0].Status)
			cli.AssertExpectations(t)
		})
	}
}
