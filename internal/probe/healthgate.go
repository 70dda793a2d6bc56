package probe

import (
	"context"
	"fmt"
	"time"

	"github.com/rustedworkshop/smokerig/internal/log"
	"github.com/rustedworkshop/smokerig/internal/model"
	"github.com/rustedworkshop/smokerig/internal/pipeline"
)

const (
	// DefaultMaxAttempts is the default health probe budget.
	DefaultMaxAttempts = 30
	// DefaultProbeInterval is the default sleep between health probes.
	DefaultProbeInterval = 1 * time.Second
	// DefaultAttemptTimeout is the default timeout of a single health probe.
	DefaultAttemptTimeout = 5 * time.Second
)

// HealthGateConfig is the configuration for the health gate.
type HealthGateConfig struct {
	// API is the pipeline API being probed.
	API pipeline.API
	// MaxAttempts is how many probes are issued before giving up (default: 30).
	MaxAttempts int
	// Interval is the sleep between probes (default: 1s).
	Interval time.Duration
	// AttemptTimeout bounds each individual probe (default: 5s).
	AttemptTimeout time.Duration
	// Logger for logging.
	Logger log.Logger
}

func (c *HealthGateConfig) defaults() error {
	if c.API == nil {
		return fmt.Errorf("pipeline API is required")
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.Interval == 0 {
		c.Interval = DefaultProbeInterval
	}
	if c.AttemptTimeout == 0 {
		c.AttemptTimeout = DefaultAttemptTimeout
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "probe.HealthGate"})
	return nil
}

// HealthGate blocks until the pipeline API reports ready or a probe budget is
// exhausted. Any probe failure (network error, bad status, wrong body) is
// treated as not-yet-ready, never as fatal on its own.
type HealthGate struct {
	api            pipeline.API
	maxAttempts    int
	interval       time.Duration
	attemptTimeout time.Duration
	logger         log.Logger
}

// NewHealthGate creates a new health gate.
func NewHealthGate(cfg HealthGateConfig) (*HealthGate, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &HealthGate{
		api:            cfg.API,
		maxAttempts:    cfg.MaxAttempts,
		interval:       cfg.Interval,
		attemptTimeout: cfg.AttemptTimeout,
		logger:         cfg.Logger,
	}, nil
}

// Wait probes the API until it reports ready. The first probe fires
// immediately, later ones after sleeping the configured interval. At most
// MaxAttempts probes are issued; exhaustion fails with ErrHealthTimeout.
func (g *HealthGate) Wait(ctx context.Context) error {
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(g.interval):
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, g.attemptTimeout)
		err := g.api.Health(attemptCtx)
		cancel()
		if err == nil {
			g.logger.Infof("Service healthy on attempt %d", attempt)
			return nil
		}

		g.logger.Debugf("Health attempt %d/%d failed: %s", attempt, g.maxAttempts, err)
	}

	return fmt.Errorf("service not ready after %d attempts: %w", g.maxAttempts, model.ErrHealthTimeout)
}
