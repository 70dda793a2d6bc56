package run

import (
	"context"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/rustedworkshop/smokerig/internal/log"
	"github.com/rustedworkshop/smokerig/internal/model"
	"github.com/rustedworkshop/smokerig/internal/pipeline"
	"github.com/rustedworkshop/smokerig/internal/probe"
	"github.com/rustedworkshop/smokerig/internal/reporter"
	"github.com/rustedworkshop/smokerig/internal/storage"
	"github.com/rustedworkshop/smokerig/internal/supervisor"
)

const (
	// DefaultSubmitTimeout bounds the task submission request (it carries the
	// file upload, so it gets more room than a status fetch).
	DefaultSubmitTimeout = 60 * time.Second
	// DefaultResolveTimeout bounds the result URL request.
	DefaultResolveTimeout = 10 * time.Second
)

// ServiceConfig is the configuration for the run service.
type ServiceConfig struct {
	Supervisor     *supervisor.Supervisor
	API            pipeline.API
	HealthGate     *probe.HealthGate
	Poller         *probe.StatusPoller
	Reporter       reporter.Reporter
	Journal        storage.RunRepository
	SubmitTimeout  time.Duration
	ResolveTimeout time.Duration
	Logger         log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Supervisor == nil {
		return fmt.Errorf("supervisor is required")
	}
	if c.API == nil {
		return fmt.Errorf("pipeline API is required")
	}
	if c.HealthGate == nil {
		return fmt.Errorf("health gate is required")
	}
	if c.Poller == nil {
		return fmt.Errorf("status poller is required")
	}
	if c.Reporter == nil {
		return fmt.Errorf("reporter is required")
	}
	if c.Journal == nil {
		return fmt.Errorf("run journal is required")
	}
	if c.SubmitTimeout == 0 {
		c.SubmitTimeout = DefaultSubmitTimeout
	}
	if c.ResolveTimeout == 0 {
		c.ResolveTimeout = DefaultResolveTimeout
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Run"})
	return nil
}

// Service drives one verification run end to end: start the declared
// services, gate on health, submit the job, poll it to a terminal status,
// resolve the download URL on success, and always tear the services down.
type Service struct {
	supervisor     *supervisor.Supervisor
	api            pipeline.API
	gate           *probe.HealthGate
	poller         *probe.StatusPoller
	reporter       reporter.Reporter
	journal        storage.RunRepository
	submitTimeout  time.Duration
	resolveTimeout time.Duration
	logger         log.Logger
}

// NewService creates a new run service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		supervisor:     cfg.Supervisor,
		api:            cfg.API,
		gate:           cfg.HealthGate,
		poller:         cfg.Poller,
		reporter:       cfg.Reporter,
		journal:        cfg.Journal,
		submitTimeout:  cfg.SubmitTimeout,
		resolveTimeout: cfg.ResolveTimeout,
		logger:         cfg.Logger,
	}, nil
}

// Request represents the run request parameters.
type Request struct {
	// Services is the declared set of services to launch.
	Services []model.ServiceSpec
	// File is the path of the file submitted for translation.
	File string
	// TargetLanguage is the translation target language.
	TargetLanguage string
	// TranslateStyle is the translation style.
	TranslateStyle string
}

func (r Request) validate() error {
	if r.File == "" {
		return fmt.Errorf("file is required: %w", model.ErrNotValid)
	}
	if len(r.Services) == 0 {
		return fmt.Errorf("at least one service is required: %w", model.ErrNotValid)
	}
	return nil
}

// Run executes one verification run. The phases are strictly sequential and
// fail-fast; teardown runs on every exit path and its errors never displace
// the primary one. A task that terminates as failed is not a service error:
// the result carries the failed status and the caller decides the exit code.
func (s *Service) Run(ctx context.Context, req Request) (result *model.RunResult, err error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	journalRun := model.Run{
		ID:             ulid.Make().String(),
		File:           req.File,
		TargetLanguage: req.TargetLanguage,
		TranslateStyle: req.TranslateStyle,
		Status:         model.RunStatusRunning,
		Phase:          model.RunPhaseStartServices,
		StartedAt:      time.Now().UTC(),
	}
	if jerr := s.journal.CreateRun(ctx, journalRun); jerr != nil {
		s.logger.Warningf("Could not record run in journal: %s", jerr)
	}
	s.logger.Infof("Run %s: file=%s target_language=%s translate_style=%s", journalRun.ID, req.File, req.TargetLanguage, req.TranslateStyle)

	// Services are released on every exit path, success or failure, and the
	// journal records how the run ended.
	defer func() {
		s.supervisor.TerminateAll()
		s.finishRun(journalRun, result, err)
	}()

	// Phase 1: start all declared services.
	if err := s.supervisor.StartAll(ctx, req.Services); err != nil {
		return nil, fmt.Errorf("could not start services: %w", err)
	}

	// Phase 2: block until the API reports healthy.
	s.recordPhase(ctx, &journalRun, model.RunPhaseHealthGate)
	if err := s.gate.Wait(ctx); err != nil {
		return nil, fmt.Errorf("service never became healthy: %w", err)
	}

	// Phase 3: submit the translation job.
	s.recordPhase(ctx, &journalRun, model.RunPhaseSubmit)
	submitCtx, cancel := context.WithTimeout(ctx, s.submitTimeout)
	ack, err := s.api.SubmitTask(submitCtx, pipeline.SubmitRequest{
		FilePath:       req.File,
		TargetLanguage: req.TargetLanguage,
		TranslateStyle: req.TranslateStyle,
	})
	cancel()
	if err != nil {
		return nil, fmt.Errorf("could not submit task: %w", err)
	}
	journalRun.TaskID = ack.TaskID
	if rerr := s.reporter.TaskSubmitted(*ack); rerr != nil {
		s.logger.Warningf("Could not report task submission: %s", rerr)
	}

	// Phase 4: poll until the task reaches a terminal status.
	s.recordPhase(ctx, &journalRun, model.RunPhasePoll)
	final, err := s.poller.PollUntilTerminal(ctx, ack.TaskID)
	if err != nil {
		return nil, fmt.Errorf("could not poll task to a terminal status: %w", err)
	}
	if rerr := s.reporter.FinalOutcome(*final); rerr != nil {
		s.logger.Warningf("Could not report final outcome: %s", rerr)
	}

	result = &model.RunResult{
		RunID:  journalRun.ID,
		TaskID: ack.TaskID,
		Final:  *final,
	}

	// Phase 5: resolve the download location, only for a completed task.
	if final.Status == model.TaskStateCompleted {
		s.recordPhase(ctx, &journalRun, model.RunPhaseResolve)
		resolveCtx, cancel := context.WithTimeout(ctx, s.resolveTimeout)
		loc, err := s.api.TaskResult(resolveCtx, ack.TaskID)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("could not resolve result URL: %w", err)
		}
		result.Result = loc
		if rerr := s.reporter.ResultResolved(*loc); rerr != nil {
			s.logger.Warningf("Could not report resolved result: %s", rerr)
		}
	}

	s.recordPhase(ctx, &journalRun, model.RunPhaseDone)
	return result, nil
}

// recordPhase advances the journal phase. Journal failures never affect the
// run.
func (s *Service) recordPhase(ctx context.Context, run *model.Run, phase model.RunPhase) {
	run.Phase = phase
	if err := s.journal.UpdateRun(ctx, *run); err != nil {
		s.logger.Warningf("Could not update run phase in journal: %s", err)
	}
}

// finishRun writes the final journal record. It runs after teardown, with its
// own context, so a canceled run still gets its outcome recorded.
func (s *Service) finishRun(run model.Run, result *model.RunResult, runErr error) {
	switch {
	case runErr != nil:
		run.Status = model.RunStatusError
		run.Error = runErr.Error()
	case result != nil && result.Final.Status == model.TaskStateFailed:
		run.Status = model.RunStatusFailed
		run.Error = result.Final.ErrorMessage
		run.Phase = model.RunPhaseDone
	default:
		run.Status = model.RunStatusCompleted
		run.Phase = model.RunPhaseDone
	}
	now := time.Now().UTC()
	run.FinishedAt = &now

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.journal.UpdateRun(ctx, run); err != nil {
		s.logger.Warningf("Could not record run outcome in journal: %s", err)
	}

	s.logger.Infof("Run %s finished: status=%s", run.ID, run.Status)
}
