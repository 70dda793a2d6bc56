package lib

import (
	"context"
	"fmt"
	"io"

	"github.com/rustedworkshop/smokerig/internal/app/history"
	apprun "github.com/rustedworkshop/smokerig/internal/app/run"
	"github.com/rustedworkshop/smokerig/internal/pipeline/httpapi"
	"github.com/rustedworkshop/smokerig/internal/probe"
	"github.com/rustedworkshop/smokerig/internal/reporter"
)

// Run executes one end-to-end verification of the translation pipeline: it
// launches the declared services, waits for the API to report healthy, submits
// the file, polls the task to a terminal status, resolves the download URL on
// success, and always tears the services down before returning.
//
// A task that terminates as failed is not an error: Run returns a [RunResult]
// whose Final.Status is [TaskStateFailed] and a nil error. Errors mean the run
// itself could not finish (launch failure, health timeout, poll exhaustion...).
func (c *Client) Run(ctx context.Context, opts RunOpts) (*RunResult, error) {
	if err := opts.defaults(); err != nil {
		return nil, mapError(err)
	}

	services := toInternalServiceSpecs(opts.Services)

	logDir := opts.LogDir
	if logDir == "" {
		logDir = c.logDir
	}
	sup, err := c.newSupervisor(services, logDir)
	if err != nil {
		return nil, mapError(fmt.Errorf("could not create supervisor: %w", err))
	}

	apiURL := opts.APIURL
	if apiURL == "" {
		apiURL = c.apiURL
	}
	apiClient, err := httpapi.NewClient(httpapi.ClientConfig{
		BaseURL: apiURL,
		Logger:  c.logger,
	})
	if err != nil {
		return nil, mapError(fmt.Errorf("could not create pipeline API client: %w", err))
	}

	rep := reporter.NewLineReporter(opts.StatusWriter)

	gate, err := probe.NewHealthGate(probe.HealthGateConfig{
		API:         apiClient,
		MaxAttempts: opts.HealthAttempts,
		Interval:    opts.HealthInterval,
		Logger:      c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create health gate: %w", err)
	}

	poller, err := probe.NewStatusPoller(probe.StatusPollerConfig{
		API:            apiClient,
		Reporter:       rep,
		MaxIterations:  opts.pollIterations(),
		Interval:       opts.PollInterval,
		RequestTimeout: opts.RequestTimeout,
		Logger:         c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create status poller: %w", err)
	}

	svc, err := apprun.NewService(apprun.ServiceConfig{
		Supervisor: sup,
		API:        apiClient,
		HealthGate: gate,
		Poller:     poller,
		Reporter:   rep,
		Journal:    c.journal,
		Logger:     c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}

	result, err := svc.Run(ctx, apprun.Request{
		Services:       services,
		File:           opts.File,
		TargetLanguage: opts.TargetLanguage,
		TranslateStyle: opts.TranslateStyle,
	})
	if err != nil {
		return nil, mapError(err)
	}

	out := fromInternalRunResult(*result)
	return &out, nil
}

// ListRuns lists past verification runs, most recent first. Pass nil opts for
// the default listing (all statuses, 20 runs).
func (c *Client) ListRuns(ctx context.Context, opts *ListRunsOpts) ([]Run, error) {
	svc, err := history.NewService(history.ServiceConfig{
		Repository: c.journal,
		Logger:     c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}

	req := history.Request{Limit: DefaultListRunsLimit}
	if opts != nil {
		req.StatusFilter = toInternalRunStatusFilter(opts.Status)
		if opts.Limit != 0 {
			req.Limit = opts.Limit
		}
	}

	runs, err := svc.Run(ctx, req)
	if err != nil {
		return nil, mapError(err)
	}

	return fromInternalRunList(runs), nil
}

func (o *RunOpts) defaults() error {
	if o.File == "" {
		return fmt.Errorf("file is required: %w", ErrNotValid)
	}
	if len(o.Services) == 0 {
		return fmt.Errorf("at least one service is required: %w", ErrNotValid)
	}

	if o.TargetLanguage == "" {
		o.TargetLanguage = DefaultTargetLanguage
	}
	if o.TranslateStyle == "" {
		o.TranslateStyle = DefaultTranslateStyle
	}
	if o.StatusWriter == nil {
		o.StatusWriter = io.Discard
	}

	return nil
}

// pollIterations translates the poll timeout into the poller's iteration
// budget. A zero timeout keeps the poller's default budget.
func (o RunOpts) pollIterations() int {
	if o.PollTimeout == 0 {
		return 0
	}

	interval := o.PollInterval
	if interval == 0 {
		interval = probe.DefaultPollInterval
	}

	iterations := int(o.PollTimeout / interval)
	if iterations < 1 {
		iterations = 1
	}
	return iterations
}
