package lib

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/rustedworkshop/smokerig/internal/conventions"
	"github.com/rustedworkshop/smokerig/internal/log"
	"github.com/rustedworkshop/smokerig/internal/model"
	"github.com/rustedworkshop/smokerig/internal/pipeline/httpapi"
	"github.com/rustedworkshop/smokerig/internal/runner/docker"
	"github.com/rustedworkshop/smokerig/internal/runner/host"
	"github.com/rustedworkshop/smokerig/internal/storage"
	"github.com/rustedworkshop/smokerig/internal/storage/sqlite"
	"github.com/rustedworkshop/smokerig/internal/supervisor"
)

// Config configures the SDK client.
//
// All fields are optional and have sensible defaults. At minimum, an empty
// Config{} will use ~/.smokerig/smokerig.db for the run journal and the
// default pipeline API address.
type Config struct {
	// DBPath is the SQLite run journal database path.
	// Default: ~/.smokerig/smokerig.db.
	DBPath string

	// DataDir is the base directory for smokerig data.
	// Default: ~/.smokerig.
	DataDir string

	// LogDir is the directory for service log files.
	// Default: ./logs (relative to the working directory).
	LogDir string

	// APIURL is the translation pipeline API base URL. A manifest or per-run
	// value takes precedence over it.
	// Default: http://127.0.0.1:8001.
	APIURL string

	// Logger receives structured log output from the SDK.
	// Default: noop (silent). See the log sub-package for the interface.
	Logger log.Logger
}

func (c *Config) defaults() error {
	if c.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("could not get user home dir: %w", err)
		}
		c.DataDir = filepath.Join(home, conventions.DefaultDataDir)
	}

	if c.DBPath == "" {
		c.DBPath = conventions.DBPath(c.DataDir)
	}

	if c.LogDir == "" {
		c.LogDir = conventions.DefaultLogDir
	}

	if c.APIURL == "" {
		c.APIURL = httpapi.DefaultBaseURL
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}

	return nil
}

// Client is the main SDK entry point for driving pipeline verification runs
// programmatically.
//
// Create a Client with [New] and release its resources with [Client.Close].
// A Client is safe for concurrent use.
type Client struct {
	journal storage.RunRepository
	logger  log.Logger
	logDir  string
	apiURL  string
	closeFn func() error
}

// New creates a new SDK client backed by a SQLite run journal.
//
// The caller must call [Client.Close] when done to release the database
// connection. Typically used with defer:
//
//	client, err := lib.New(ctx, lib.Config{})
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
func New(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	journal, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
		DBPath: cfg.DBPath,
		Logger: cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create run journal: %w", err)
	}

	return &Client{
		journal: journal,
		logger:  cfg.Logger,
		logDir:  cfg.LogDir,
		apiURL:  cfg.APIURL,
		closeFn: journal.Close,
	}, nil
}

// Close releases resources held by the client, including the database connection.
// After Close returns, the client must not be used.
func (c *Client) Close() error {
	if c.closeFn != nil {
		return c.closeFn()
	}
	return nil
}

// newSupervisor creates the supervisor for a service set. The docker runtime
// is only initialized when the set declares container services, so host-only
// callers never need a reachable docker daemon.
func (c *Client) newSupervisor(services []model.ServiceSpec, logDir string) (*supervisor.Supervisor, error) {
	hostRunner, err := host.NewRunner(host.RunnerConfig{
		LogDir: logDir,
		Logger: c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create host runner: %w", err)
	}

	cfg := supervisor.Config{
		HostRunner: hostRunner,
		Logger:     c.logger,
	}

	for _, s := range services {
		if s.Image == "" {
			continue
		}
		dockerRunner, err := docker.NewRunner(docker.RunnerConfig{
			LogDir: logDir,
			Logger: c.logger,
		})
		if err != nil {
			return nil, fmt.Errorf("could not create docker runner: %w", err)
		}
		cfg.DockerRunner = dockerRunner
		break
	}

	return supervisor.New(cfg)
}

// Doctor runs preflight checks for a service set: host executables, log
// directory writability, the docker daemon when container services are
// declared, and the pipeline API URL.
//
// Returns a slice of [CheckResult] describing each check's outcome.
func (c *Client) Doctor(ctx context.Context, opts DoctorOpts) ([]CheckResult, error) {
	services := toInternalServiceSpecs(opts.Services)

	logDir := opts.LogDir
	if logDir == "" {
		logDir = c.logDir
	}

	sup, err := c.newSupervisor(services, logDir)
	if err != nil {
		return nil, mapError(fmt.Errorf("could not create supervisor: %w", err))
	}

	results := sup.Check(ctx, services)

	apiURL := opts.APIURL
	if apiURL == "" {
		apiURL = c.apiURL
	}
	results = append(results, checkAPIURL(apiURL))

	return fromInternalCheckResults(results), nil
}

// checkAPIURL checks the pipeline API base URL is well formed.
func checkAPIURL(apiURL string) model.CheckResult {
	u, err := url.Parse(apiURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return model.CheckResult{
			ID:      "api_url",
			Message: fmt.Sprintf("API URL %q needs a scheme and a host", apiURL),
			Status:  model.CheckStatusError,
		}
	}

	return model.CheckResult{
		ID:      "api_url",
		Message: fmt.Sprintf("API URL %s is well formed", apiURL),
		Status:  model.CheckStatusOK,
	}
}
