package probe

import (
	"context"
	"fmt"
	"time"

	"github.com/rustedworkshop/smokerig/internal/log"
	"github.com/rustedworkshop/smokerig/internal/model"
	"github.com/rustedworkshop/smokerig/internal/pipeline"
	"github.com/rustedworkshop/smokerig/internal/reporter"
)

const (
	// DefaultMaxIterations is the default poll budget (30 minutes at the
	// default interval).
	DefaultMaxIterations = 360
	// DefaultPollInterval is the default sleep before each poll.
	DefaultPollInterval = 5 * time.Second
	// DefaultRequestTimeout is the default timeout of a single status fetch.
	DefaultRequestTimeout = 10 * time.Second
)

// StatusPollerConfig is the configuration for the status poller.
type StatusPollerConfig struct {
	// API is the pipeline API the task status is fetched from.
	API pipeline.API
	// Reporter receives every observed status snapshot.
	Reporter reporter.Reporter
	// MaxIterations is how many polls are issued before giving up (default: 360).
	MaxIterations int
	// Interval is the sleep before each poll (default: 5s).
	Interval time.Duration
	// RequestTimeout bounds each individual status fetch (default: 10s).
	RequestTimeout time.Duration
	// Logger for logging.
	Logger log.Logger
}

func (c *StatusPollerConfig) defaults() error {
	if c.API == nil {
		return fmt.Errorf("pipeline API is required")
	}
	if c.Reporter == nil {
		return fmt.Errorf("reporter is required")
	}
	if c.MaxIterations == 0 {
		c.MaxIterations = DefaultMaxIterations
	}
	if c.Interval == 0 {
		c.Interval = DefaultPollInterval
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "probe.StatusPoller"})
	return nil
}

// StatusPoller repeatedly fetches a task's status until it reaches a terminal
// state or the iteration budget runs out. Transient fetch errors consume an
// iteration and are never fatal on their own.
type StatusPoller struct {
	api            pipeline.API
	reporter       reporter.Reporter
	maxIterations  int
	interval       time.Duration
	requestTimeout time.Duration
	logger         log.Logger
}

// NewStatusPoller creates a new status poller.
func NewStatusPoller(cfg StatusPollerConfig) (*StatusPoller, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &StatusPoller{
		api:            cfg.API,
		reporter:       cfg.Reporter,
		maxIterations:  cfg.MaxIterations,
		interval:       cfg.Interval,
		requestTimeout: cfg.RequestTimeout,
		logger:         cfg.Logger,
	}, nil
}

// PollUntilTerminal polls the task until its status is terminal and returns
// that snapshot. Each iteration sleeps the configured interval, fetches the
// status once with a bounded timeout, and reports the observation. Exhausting
// the budget without a terminal status fails with ErrPollTimeout.
func (p *StatusPoller) PollUntilTerminal(ctx context.Context, taskID string) (*model.TaskStatus, error) {
	var last *model.TaskStatus

	for iteration := 1; iteration <= p.maxIterations; iteration++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(p.interval):
		}

		reqCtx, cancel := context.WithTimeout(ctx, p.requestTimeout)
		status, err := p.api.TaskStatus(reqCtx, taskID)
		cancel()
		if err != nil {
			p.logger.Warningf("Poll %d/%d failed: %s", iteration, p.maxIterations, err)
			continue
		}

		last = status
		if err := p.reporter.PollObservation(iteration, *status); err != nil {
			p.logger.Warningf("Could not report poll observation: %s", err)
		}

		if status.Status.Terminal() {
			return status, nil
		}
	}

	lastStatus := "unknown"
	if last != nil {
		lastStatus = string(last.Status)
	}
	return nil, fmt.Errorf("task %s not terminal after %d polls, last status %s: %w", taskID, p.maxIterations, lastStatus, model.ErrPollTimeout)
}
