package host

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rustedworkshop/smokerig/internal/conventions"
	"github.com/rustedworkshop/smokerig/internal/log"
	"github.com/rustedworkshop/smokerig/internal/model"
	"github.com/rustedworkshop/smokerig/internal/utils/env"
)

const (
	// defaultTermTimeout is how long a process gets to exit after SIGTERM.
	defaultTermTimeout = 8 * time.Second
	// defaultKillTimeout is how long a process gets to exit after SIGKILL.
	defaultKillTimeout = 5 * time.Second
)

// RunnerConfig is the configuration for the host process runner.
type RunnerConfig struct {
	// LogDir is the directory for service log files (default: ./logs).
	LogDir string
	// TermTimeout is the graceful shutdown window after SIGTERM.
	TermTimeout time.Duration
	// KillTimeout is the wait after SIGKILL before giving up on a process.
	KillTimeout time.Duration
	// Logger for logging.
	Logger log.Logger
}

func (c *RunnerConfig) defaults() error {
	if c.LogDir == "" {
		c.LogDir = conventions.DefaultLogDir
	}
	if c.TermTimeout == 0 {
		c.TermTimeout = defaultTermTimeout
	}
	if c.KillTimeout == 0 {
		c.KillTimeout = defaultKillTimeout
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "runner.Host"})
	return nil
}

// Runner launches services as plain OS processes on the local host.
//
// Each started process gets its stdout and stderr redirected to a per-instance
// log file, and a reaper goroutine that waits on it so terminated processes
// never linger as zombies.
type Runner struct {
	logDir      string
	termTimeout time.Duration
	killTimeout time.Duration
	logger      log.Logger

	mu    sync.Mutex
	procs map[string]*proc
}

// proc holds the private runtime state of one launched process.
type proc struct {
	cmd     *exec.Cmd
	logFile *os.File
	done    chan struct{} // Closed by the reaper once Wait returns.
	waitErr error         // Only read after done is closed.
}

// NewRunner creates a new host process runner.
func NewRunner(cfg RunnerConfig) (*Runner, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Runner{
		logDir:      cfg.LogDir,
		termTimeout: cfg.TermTimeout,
		killTimeout: cfg.KillTimeout,
		logger:      cfg.Logger,
		procs:       map[string]*proc{},
	}, nil
}

// Start launches the service as a host process.
func (r *Runner) Start(ctx context.Context, spec model.ServiceSpec) (*model.ServiceProcess, error) {
	if len(spec.Command) == 0 {
		return nil, fmt.Errorf("service %q has no command: %w", spec.Name, model.ErrNotValid)
	}

	r.mu.Lock()
	if _, ok := r.procs[spec.Name]; ok {
		r.mu.Unlock()
		return nil, fmt.Errorf("service instance %q: %w", spec.Name, model.ErrAlreadyExists)
	}
	r.mu.Unlock()

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

	// Spawn the service process.
	cmd := exec.Command(spec.Command[0], spec.Command[1:]...)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.Env = append(os.Environ(), env.Slice(spec.Env)...)

	if err := cmd.Start(); err != nil {
		logFile.Close()
		return nil, fmt.Errorf("could not start service %q: %s: %w", spec.Name, err, model.ErrLaunch)
	}

	p := &proc{
		cmd:     cmd,
		logFile: logFile,
		done:    make(chan struct{}),
	}

	// Reap the process as soon as it exits.
	go func() {
		p.waitErr = cmd.Wait()
		close(p.done)
	}()

	r.mu.Lock()
	r.procs[spec.Name] = p
	r.mu.Unlock()

	r.logger.Debugf("Spawned service process: name=%s PID=%d log=%s", spec.Name, cmd.Process.Pid, logPath)

	return &model.ServiceProcess{
		Name:      spec.Name,
		Spec:      spec,
		PID:       cmd.Process.Pid,
		LogPath:   logPath,
		StartedAt: time.Now().UTC(),
	}, nil
}

// IsRunning reports whether the instance process is still alive.
func (r *Runner) IsRunning(process *model.ServiceProcess) bool {
	if process == nil {
		return false
	}

	r.mu.Lock()
	p, ok := r.procs[process.Name]
	r.mu.Unlock()
	if !ok {
		return false
	}

	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

// Terminate stops the instance process: SIGTERM, a grace period, then SIGKILL.
// Terminating an unknown or already exited instance is a no-op.
func (r *Runner) Terminate(process *model.ServiceProcess) error {
	if process == nil {
		return nil
	}

	r.mu.Lock()
	p, ok := r.procs[process.Name]
	delete(r.procs, process.Name)
	r.mu.Unlock()
	if !ok {
		return nil
	}

	defer p.logFile.Close()

	// Already exited on its own.
	select {
	case <-p.done:
		return nil
	default:
	}

	r.logger.Debugf("Terminating service process: name=%s PID=%d", process.Name, p.cmd.Process.Pid)

	// First try SIGTERM for graceful shutdown.
	if err := p.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		// The process may have just died, which is fine.
		if !isProcessGone(err) {
			r.logger.Warningf("Could not SIGTERM service %q: %v", process.Name, err)
		}
	}

	select {
	case <-p.done:
		return nil
	case <-time.After(r.termTimeout):
	}

	// Still there, force it.
	r.logger.Warningf("Service %q did not stop after SIGTERM, sending SIGKILL", process.Name)
	if err := p.cmd.Process.Kill(); err != nil && !isProcessGone(err) {
		return fmt.Errorf("could not kill service %q: %w", process.Name, err)
	}

	select {
	case <-p.done:
		return nil
	case <-time.After(r.killTimeout):
		return fmt.Errorf("service %q did not exit after SIGKILL", process.Name)
	}
}

// Check performs preflight checks for the host runtime: log directory
// writability and executable resolution for every host spec.
func (r *Runner) Check(ctx context.Context, specs []model.ServiceSpec) []model.CheckResult {
	var results []model.CheckResult

	results = append(results, r.checkLogDir())

	for _, spec := range specs {
		if len(spec.Command) == 0 {
			continue
		}
		results = append(results, r.checkExecutable(spec))
	}

	return results
}

// checkLogDir checks the log directory exists (or can be created) and is writable.
func (r *Runner) checkLogDir() model.CheckResult {
	if err := os.MkdirAll(r.logDir, 0755); err != nil {
		return model.CheckResult{
			ID:      "log_dir",
			Message: fmt.Sprintf("Cannot create log directory %s: %v", r.logDir, err),
			Status:  model.CheckStatusError,
		}
	}

	probe, err := os.CreateTemp(r.logDir, ".probe-*")
	if err != nil {
		return model.CheckResult{
			ID:      "log_dir",
			Message: fmt.Sprintf("No write permission on log directory %s: %v", r.logDir, err),
			Status:  model.CheckStatusError,
		}
	}
	probe.Close()
	_ = os.Remove(probe.Name())

	return model.CheckResult{
		ID:      "log_dir",
		Message: fmt.Sprintf("Log directory %s is writable", r.logDir),
		Status:  model.CheckStatusOK,
	}
}

// checkExecutable checks the spec's executable can be resolved.
func (r *Runner) checkExecutable(spec model.ServiceSpec) model.CheckResult {
	id := fmt.Sprintf("executable_%s", spec.Name)
	bin := spec.Command[0]

	if strings.ContainsRune(bin, os.PathSeparator) {
		info, err := os.Stat(bin)
		if err != nil {
			return model.CheckResult{
				ID:      id,
				Message: fmt.Sprintf("Executable %s not found: %v", bin, err),
				Status:  model.CheckStatusError,
			}
		}
		if info.Mode()&0111 == 0 {
			return model.CheckResult{
				ID:      id,
				Message: fmt.Sprintf("%s is not executable", bin),
				Status:  model.CheckStatusError,
			}
		}
		return model.CheckResult{
			ID:      id,
			Message: fmt.Sprintf("Executable found at %s", bin),
			Status:  model.CheckStatusOK,
		}
	}

	path, err := exec.LookPath(bin)
	if err != nil {
		return model.CheckResult{
			ID:      id,
			Message: fmt.Sprintf("Executable %q not found in PATH", bin),
			Status:  model.CheckStatusError,
		}
	}

	return model.CheckResult{
		ID:      id,
		Message: fmt.Sprintf("Executable found at %s", path),
		Status:  model.CheckStatusOK,
	}
}

// isProcessGone returns true for signal errors that mean the process already exited.
func isProcessGone(err error) bool {
	return errors.Is(err, os.ErrProcessDone)
}
