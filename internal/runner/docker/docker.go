package docker

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/oklog/ulid/v2"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/rustedworkshop/smokerig/internal/conventions"
	"github.com/rustedworkshop/smokerig/internal/log"
	"github.com/rustedworkshop/smokerig/internal/model"
	"github.com/rustedworkshop/smokerig/internal/utils/env"
)

// DockerClient is the interface for the Docker operations that we use.
// This allows us to mock the Docker client for testing.
type DockerClient interface {
	Ping(ctx context.Context) (types.Ping, error)
	ImagePull(ctx context.Context, refStr string, options image.PullOptions) (io.ReadCloser, error)
	ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig, networkingConfig *network.NetworkingConfig, platform *ocispec.Platform, containerName string) (container.CreateResponse, error)
	ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error
	ContainerStop(ctx context.Context, containerID string, options container.StopOptions) error
	ContainerRemove(ctx context.Context, containerID string, options container.RemoveOptions) error
	ContainerInspect(ctx context.Context, containerID string) (container.InspectResponse, error)
	ContainerLogs(ctx context.Context, containerID string, options container.LogsOptions) (io.ReadCloser, error)
}

const (
	// defaultStopTimeout is the graceful container stop window.
	defaultStopTimeout = 8 * time.Second
	// logDrainTimeout is how long Terminate waits for the log stream to flush
	// after the container stopped.
	logDrainTimeout = 2 * time.Second
)

// RunnerConfig is the configuration for the Docker container runner.
type RunnerConfig struct {
	// Client is the Docker API client. Defaults to one built from the
	// environment (DOCKER_HOST and friends).
	Client DockerClient
	// LogDir is the directory for service log files (default: ./logs).
	LogDir string
	// StopTimeout is the graceful shutdown window before the daemon kills
	// the container.
	StopTimeout time.Duration
	// Logger for logging.
	Logger log.Logger
}

func (c *RunnerConfig) defaults() error {
	if c.Client == nil {
		cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
		if err != nil {
			return fmt.Errorf("could not create Docker client: %w", err)
		}
		c.Client = cli
	}
	if c.LogDir == "" {
		c.LogDir = conventions.DefaultLogDir
	}
	if c.StopTimeout == 0 {
		c.StopTimeout = defaultStopTimeout
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "runner.Docker"})
	return nil
}

// Runner launches services as Docker containers.
//
// Containers run on the host network so the services can reach each other and
// the harness can reach the API on localhost, exactly as with host processes.
// Container logs are streamed into the same per-instance log files the host
// runner writes.
type Runner struct {
	client      DockerClient
	logDir      string
	stopTimeout time.Duration
	logger      log.Logger

	mu         sync.Mutex
	containers map[string]*containerProc
}

// containerProc holds the private runtime state of one launched container.
type containerProc struct {
	containerID string
	logFile     *os.File
	logStream   io.ReadCloser
	logDone     chan struct{} // Closed when the log copier finishes.
}

// NewRunner creates a new Docker container runner.
func NewRunner(cfg RunnerConfig) (*Runner, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Runner{
		client:      cfg.Client,
		logDir:      cfg.LogDir,
		stopTimeout: cfg.StopTimeout,
		logger:      cfg.Logger,
		containers:  map[string]*containerProc{},
	}, nil
}

// Start launches the service as a Docker container.
func (r *Runner) Start(ctx context.Context, spec model.ServiceSpec) (*model.ServiceProcess, error) {
	if spec.Image == "" {
		return nil, fmt.Errorf("service %q has no image: %w", spec.Name, model.ErrNotValid)
	}

	r.mu.Lock()
	if _, ok := r.containers[spec.Name]; ok {
		r.mu.Unlock()
		return nil, fmt.Errorf("service instance %q: %w", spec.Name, model.ErrAlreadyExists)
	}
	r.mu.Unlock()

	// Pull the image.
	r.logger.Debugf("Pulling image: %s", spec.Image)
	pullResp, err := r.client.ImagePull(ctx, spec.Image, image.PullOptions{})
	if err != nil {
		return nil, fmt.Errorf("could not pull image %s: %s: %w", spec.Image, err, model.ErrLaunch)
	}
	// Consume the pull response to ensure it completes.
	_, _ = io.Copy(io.Discard, pullResp)
	pullResp.Close()

	// Create log file.
	logPath := spec.LogPath
	if logPath == "" {
		logPath = conventions.ServiceLogPath(r.logDir, spec.Name)
	}
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return nil, fmt.Errorf("could not create log dir: %w", err)
	}
	logFile, err := os.Create(logPath)
	if err != nil {
		return nil, fmt.Errorf("could not create log file: %w", err)
	}

	// Create and start the container.
	containerName := conventions.ContainerName(spec.Name, ulid.Make().String())

	containerConfig := &container.Config{
		Image: spec.Image,
		Env:   env.Slice(spec.Env),
	}
	hostConfig := &container.HostConfig{
		NetworkMode: container.NetworkMode("host"),
	}

	resp, err := r.client.ContainerCreate(ctx, containerConfig, hostConfig, nil, nil, containerName)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("could not create container for service %q: %s: %w", spec.Name, err, model.ErrLaunch)
	}
	containerID := resp.ID

	if err := r.client.ContainerStart(ctx, containerID, container.StartOptions{}); err != nil {
		_ = r.client.ContainerRemove(ctx, containerID, container.RemoveOptions{Force: true})
		logFile.Close()
		return nil, fmt.Errorf("could not start container for service %q: %s: %w", spec.Name, err, model.ErrLaunch)
	}

	p := &containerProc{
		containerID: containerID,
		logFile:     logFile,
		logDone:     make(chan struct{}),
	}

	// Stream container output into the log file. The stream must outlive the
	// start call's context, it closes when the container stops.
	logStream, err := r.client.ContainerLogs(context.Background(), containerID, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     true,
	})
	if err != nil {
		r.logger.Warningf("Could not stream logs of service %q: %v", spec.Name, err)
		close(p.logDone)
	} else {
		p.logStream = logStream
		go func() {
			_, _ = stdcopy.StdCopy(logFile, logFile, logStream)
			close(p.logDone)
		}()
	}

	r.mu.Lock()
	r.containers[spec.Name] = p
	r.mu.Unlock()

	r.logger.Debugf("Started service container: name=%s container=%s log=%s", spec.Name, containerID, logPath)

	return &model.ServiceProcess{
		Name:        spec.Name,
		Spec:        spec,
		ContainerID: containerID,
		LogPath:     logPath,
		StartedAt:   time.Now().UTC(),
	}, nil
}

// IsRunning reports whether the instance container is still running.
func (r *Runner) IsRunning(process *model.ServiceProcess) bool {
	if process == nil {
		return false
	}

	r.mu.Lock()
	p, ok := r.containers[process.Name]
	r.mu.Unlock()
	if !ok {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	info, err := r.client.ContainerInspect(ctx, p.containerID)
	if err != nil {
		return false
	}
	return info.State != nil && info.State.Running
}

// Terminate stops and removes the instance container, then releases its log
// handles. Terminating an unknown instance is a no-op.
func (r *Runner) Terminate(process *model.ServiceProcess) error {
	if process == nil {
		return nil
	}

	r.mu.Lock()
	p, ok := r.containers[process.Name]
	delete(r.containers, process.Name)
	r.mu.Unlock()
	if !ok {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.stopTimeout+30*time.Second)
	defer cancel()

	r.logger.Debugf("Stopping service container: name=%s container=%s", process.Name, p.containerID)

	var termErr error
	timeout := int(r.stopTimeout.Seconds())
	if err := r.client.ContainerStop(ctx, p.containerID, container.StopOptions{Timeout: &timeout}); err != nil {
		if !isContainerGone(err) && !strings.Contains(err.Error(), "is not running") {
			termErr = fmt.Errorf("could not stop container of service %q: %w", process.Name, err)
		}
	}

	// Let the log stream flush before closing the file.
	select {
	case <-p.logDone:
	case <-time.After(logDrainTimeout):
		if p.logStream != nil {
			p.logStream.Close()
		}
	}
	p.logFile.Close()

	if err := r.client.ContainerRemove(ctx, p.containerID, container.RemoveOptions{Force: true}); err != nil {
		if !isContainerGone(err) && termErr == nil {
			termErr = fmt.Errorf("could not remove container of service %q: %w", process.Name, err)
		}
	}

	return termErr
}

// Check performs preflight checks for the Docker runtime.
func (r *Runner) Check(ctx context.Context, specs []model.ServiceSpec) []model.CheckResult {
	var results []model.CheckResult

	ping, err := r.client.Ping(ctx)
	if err != nil {
		results = append(results, model.CheckResult{
			ID:      "docker_daemon",
			Message: fmt.Sprintf("Docker daemon not reachable: %v", err),
			Status:  model.CheckStatusError,
		})
		return results
	}

	results = append(results, model.CheckResult{
		ID:      "docker_daemon",
		Message: fmt.Sprintf("Docker daemon reachable (API %s)", ping.APIVersion),
		Status:  model.CheckStatusOK,
	})

	return results
}

// isContainerGone returns true for daemon errors that mean the container no
// longer exists.
func isContainerGone(err error) bool {
	return strings.Contains(err.Error(), "No such container")
}
