package supervisor

import (
	"context"
	"fmt"
	"sync"

	"github.com/rustedworkshop/smokerig/internal/conventions"
	"github.com/rustedworkshop/smokerig/internal/log"
	"github.com/rustedworkshop/smokerig/internal/model"
	"github.com/rustedworkshop/smokerig/internal/runner"
)

// Config is the configuration for the Supervisor.
type Config struct {
	// HostRunner launches services declared with a command (required).
	HostRunner runner.Runner
	// DockerRunner launches services declared with an image. Only required
	// when the manifest declares container services.
	DockerRunner runner.Runner
	// Logger for logging.
	Logger log.Logger
}

func (c *Config) defaults() error {
	if c.HostRunner == nil {
		return fmt.Errorf("host runner is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "supervisor.Supervisor"})
	return nil
}

// Supervisor owns the lifecycle of the launched service set of one run.
//
// Services start in declaration order and stop in reverse order. Teardown is
// unconditional: every started instance is terminated exactly once, whatever
// else happened, and termination failures are logged and swallowed so they
// can never mask the error that aborted the run.
type Supervisor struct {
	hostRunner   runner.Runner
	dockerRunner runner.Runner
	logger       log.Logger

	mu         sync.Mutex
	started    []*model.ServiceProcess
	terminated map[string]bool
}

// New creates a new Supervisor.
func New(cfg Config) (*Supervisor, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Supervisor{
		hostRunner:   cfg.HostRunner,
		dockerRunner: cfg.DockerRunner,
		logger:       cfg.Logger,
		terminated:   map[string]bool{},
	}, nil
}

// StartAll launches every instance of every spec, in declaration order.
//
// Specs are validated up front so nothing launches when the set is invalid.
// On a launch failure StartAll returns immediately with the instances started
// so far still running; the caller is expected to TerminateAll on every exit
// path, so a partial start is torn down the same way a full one is.
func (s *Supervisor) StartAll(ctx context.Context, specs []model.ServiceSpec) error {
	for _, spec := range specs {
		if err := spec.Validate(); err != nil {
			return err
		}
		if spec.Image != "" && s.dockerRunner == nil {
			return fmt.Errorf("service %q needs the docker runtime which is not configured: %w", spec.Name, model.ErrNotValid)
		}
	}

	for _, spec := range specs {
		instances := spec.Instances()
		for i := 1; i <= instances; i++ {
			instSpec := spec
			instSpec.Name = conventions.InstanceName(spec.Name, i, instances)
			instSpec.Replicas = 1

			s.logger.Infof("Starting service %s", instSpec.Name)

			p, err := s.runnerFor(instSpec).Start(ctx, instSpec)
			if err != nil {
				return fmt.Errorf("could not start service %q: %w", instSpec.Name, err)
			}

			s.mu.Lock()
			s.started = append(s.started, p)
			s.mu.Unlock()
		}
	}

	return nil
}

// Processes returns the started instances in start order.
func (s *Supervisor) Processes() []model.ServiceProcess {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.ServiceProcess, 0, len(s.started))
	for _, p := range s.started {
		out = append(out, *p)
	}
	return out
}

// Healthy reports whether every started instance is still running.
func (s *Supervisor) Healthy() bool {
	s.mu.Lock()
	procs := make([]*model.ServiceProcess, len(s.started))
	copy(procs, s.started)
	s.mu.Unlock()

	for _, p := range procs {
		if !s.runnerFor(p.Spec).IsRunning(p) {
			return false
		}
	}
	return true
}

// EnsureTerminated terminates one started instance. It is idempotent, and it
// swallows termination errors (logging them) so teardown can never replace
// the run's real error.
func (s *Supervisor) EnsureTerminated(p *model.ServiceProcess) {
	if p == nil {
		return
	}

	s.mu.Lock()
	if s.terminated[p.Name] {
		s.mu.Unlock()
		return
	}
	s.terminated[p.Name] = true
	s.mu.Unlock()

	s.logger.Infof("Stopping service %s", p.Name)
	if err := s.runnerFor(p.Spec).Terminate(p); err != nil {
		s.logger.Warningf("Could not terminate service %q: %v", p.Name, err)
	}
}

// TerminateAll terminates every started instance in reverse start order.
// Safe to call multiple times and from a deferred path.
func (s *Supervisor) TerminateAll() {
	s.mu.Lock()
	procs := make([]*model.ServiceProcess, len(s.started))
	copy(procs, s.started)
	s.mu.Unlock()

	for i := len(procs) - 1; i >= 0; i-- {
		s.EnsureTerminated(procs[i])
	}
}

// Check runs the preflight checks of every runtime the specs need.
func (s *Supervisor) Check(ctx context.Context, specs []model.ServiceSpec) []model.CheckResult {
	var host, docker []model.ServiceSpec
	for _, spec := range specs {
		if spec.Image != "" {
			docker = append(docker, spec)
			continue
		}
		host = append(host, spec)
	}

	var results []model.CheckResult
	results = append(results, s.hostRunner.Check(ctx, host)...)

	if len(docker) > 0 {
		if s.dockerRunner == nil {
			results = append(results, model.CheckResult{
				ID:      "docker_runtime",
				Message: "Manifest declares container services but the docker runtime is not configured",
				Status:  model.CheckStatusError,
			})
		} else {
			results = append(results, s.dockerRunner.Check(ctx, docker)...)
		}
	}

	return results
}

// runnerFor picks the runtime of a spec. Specs are validated before launch,
// so an image spec always has a docker runner here.
func (s *Supervisor) runnerFor(spec model.ServiceSpec) runner.Runner {
	if spec.Image != "" {
		return s.dockerRunner
	}
	return s.hostRunner
}
