package lib

import (
	"errors"
	"io"
	"time"

	"github.com/rustedworkshop/smokerig/internal/model"
)

const (
	// DefaultTargetLanguage is the translation target language used when
	// [RunOpts].TargetLanguage is empty.
	DefaultTargetLanguage = "zh-CN"
	// DefaultTranslateStyle is the translation style used when
	// [RunOpts].TranslateStyle is empty.
	DefaultTranslateStyle = "auto"
	// DefaultListRunsLimit is how many runs [Client.ListRuns] returns when no
	// limit is given.
	DefaultListRunsLimit = 20
)

var (
	// ErrNotFound is returned when a resource does not exist (e.g. an unknown
	// task or journal run).
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when a resource with the same identity
	// already exists.
	ErrAlreadyExists = errors.New("already exists")
	// ErrNotValid is returned on invalid input (e.g. a service spec with both
	// a command and an image).
	ErrNotValid = errors.New("not valid")
	// ErrLaunch is returned when a declared service could not be launched.
	ErrLaunch = errors.New("could not launch")
	// ErrHealthTimeout is returned when the pipeline API did not report ready
	// within the health probe budget.
	ErrHealthTimeout = errors.New("health timeout")
	// ErrEmptyResponse is returned when the pipeline API replied with success
	// and an empty body.
	ErrEmptyResponse = errors.New("empty response")
	// ErrMissingField is returned when a pipeline API payload lacks a required
	// field.
	ErrMissingField = errors.New("missing field")
	// ErrPollTimeout is returned when the task did not reach a terminal status
	// within the polling budget.
	ErrPollTimeout = errors.New("poll timeout")
)

// ServiceSpec declares one pipeline service the harness launches for a run
// and tears down afterwards.
//
// Exactly one of Command (host process) or Image (container) must be set.
type ServiceSpec struct {
	// Name identifies the service in logs and log file names (required).
	Name string
	// Command is the argv of a host process (Command[0] is the executable).
	Command []string
	// Image is a container image reference. The container runs on the host
	// network so the service is reachable on localhost.
	Image string
	// Env is extra environment set on the service.
	Env map[string]string
	// Replicas is how many instances to launch. 0 means 1.
	Replicas int
	// LogPath overrides the default log file path for the service output.
	LogPath string
}

// TaskState is the pipeline-reported state of a translation task.
//
// The state set is open: the pipeline may report intermediate states the SDK
// does not know about. Only the terminal states are fixed.
type TaskState string

const (
	// TaskStateQueued is the usual state right after submission.
	TaskStateQueued TaskState = "queued"
	// TaskStateProcessing covers the in-flight states of the pipeline.
	TaskStateProcessing TaskState = "processing"
	// TaskStateCompleted means the task finished and its result is downloadable.
	TaskStateCompleted TaskState = "completed"
	// TaskStateFailed means the task finished without a usable result.
	TaskStateFailed TaskState = "failed"
)

// Terminal returns true when the state is one the pipeline never leaves.
func (s TaskState) Terminal() bool {
	return model.TaskState(s).Terminal()
}

// TaskStatus is a point-in-time observation of a task's progress.
type TaskStatus struct {
	// TaskID is the pipeline-assigned task identifier.
	TaskID string
	// Status is the reported task state.
	Status TaskState
	// Progress is the completion ratio in [0, 1].
	Progress float64
	// ProcessedFiles is how many files the pipeline finished so far.
	ProcessedFiles int
	// TotalFiles is how many files the submitted archive contains.
	TotalFiles int
	// ErrorMessage is the pipeline's failure description. Empty on success.
	ErrorMessage string
}

// ResultLocation is the time-limited download location of a completed task's
// translated archive.
type ResultLocation struct {
	// DownloadURL is where the translated archive can be fetched.
	DownloadURL string
	// ExpiresIn is how many seconds DownloadURL keeps working.
	ExpiresIn int
}

// RunResult is what a verification run yields once the task reached a
// terminal status.
type RunResult struct {
	// RunID is the journal identifier of the run.
	RunID string
	// TaskID is the pipeline-assigned task identifier.
	TaskID string
	// Final is the terminal status observation.
	Final TaskStatus
	// Result is the resolved download location. Nil unless Final.Status is
	// [TaskStateCompleted].
	Result *ResultLocation
}

// RunStatus is the lifecycle state of one verification run.
type RunStatus string

const (
	// RunStatusRunning means the run is still in flight.
	RunStatusRunning RunStatus = "running"
	// RunStatusCompleted means the pipeline completed the task.
	RunStatusCompleted RunStatus = "completed"
	// RunStatusFailed means the pipeline reported the task as failed.
	RunStatusFailed RunStatus = "failed"
	// RunStatusError means the harness aborted before a task verdict.
	RunStatusError RunStatus = "error"
)

// RunPhase is the step a run was last executing. It tells where an aborted
// run gave up.
type RunPhase string

const (
	RunPhaseStartServices RunPhase = "start_services"
	RunPhaseHealthGate    RunPhase = "health_gate"
	RunPhaseSubmit        RunPhase = "submit"
	RunPhasePoll          RunPhase = "poll"
	RunPhaseResolve       RunPhase = "resolve"
	RunPhaseDone          RunPhase = "done"
)

// Run is the journal record of one verification run.
//
// This is a read-only snapshot of the run at the time of the API call.
type Run struct {
	// ID is the unique identifier (ULID) assigned when the run started.
	ID string
	// File is the path of the file that was submitted.
	File string
	// TargetLanguage is the translation target language of the run.
	TargetLanguage string
	// TranslateStyle is the translation style of the run.
	TranslateStyle string
	// TaskID is the pipeline task of the run. Empty if submission never happened.
	TaskID string
	// Status is the run outcome.
	Status RunStatus
	// Phase is the last phase the run was executing.
	Phase RunPhase
	// Error describes why the run failed or aborted. Empty on success.
	Error string
	// StartedAt is when the run started.
	StartedAt time.Time
	// FinishedAt is when the run finished. Nil while still in flight.
	FinishedAt *time.Time
}

// RunOpts configures one verification run.
//
// Services and File are required; everything else has defaults matching the
// CLI: target language zh-CN, style auto, 30 health probes 1s apart, a 5s
// poll interval with a 30 minute budget.
type RunOpts struct {
	// Services is the declared set of services to launch (required).
	Services []ServiceSpec
	// File is the path of the file to submit for translation (required).
	File string
	// TargetLanguage is the translation target language.
	// Default: [DefaultTargetLanguage].
	TargetLanguage string
	// TranslateStyle is the translation style.
	// Default: [DefaultTranslateStyle].
	TranslateStyle string
	// APIURL overrides the client's pipeline API base URL for this run.
	APIURL string
	// LogDir overrides the client's service log directory for this run.
	LogDir string
	// StatusWriter receives the run's progress lines (submission ack, one
	// line per poll, final outcome, resolved result). Nil means silent.
	StatusWriter io.Writer
	// HealthAttempts is how many health probes before giving up. 0 means 30.
	HealthAttempts int
	// HealthInterval is the sleep between health probes. 0 means 1s.
	HealthInterval time.Duration
	// PollInterval is the sleep between task status polls. 0 means 5s.
	PollInterval time.Duration
	// PollTimeout is the total polling budget. 0 means 30 minutes.
	PollTimeout time.Duration
	// RequestTimeout bounds a single status or result request. 0 means 10s.
	RequestTimeout time.Duration
}

// ListRunsOpts configures run listing.
//
// Pass nil to [Client.ListRuns] for the default listing.
type ListRunsOpts struct {
	// Status filters runs by status. Nil means all statuses.
	Status *RunStatus
	// Limit is the maximum number of runs to return, newest first.
	// 0 means [DefaultListRunsLimit], negative means all.
	Limit int
}

// DoctorOpts configures the preflight checks.
type DoctorOpts struct {
	// Services is the service set the checks are run for. An empty set still
	// checks the log directory and the API URL.
	Services []ServiceSpec
	// APIURL overrides the client's pipeline API base URL.
	APIURL string
	// LogDir overrides the client's service log directory.
	LogDir string
}

// CheckStatus represents the status of a preflight check.
type CheckStatus string

const (
	// CheckStatusOK indicates the check passed.
	CheckStatusOK CheckStatus = "ok"
	// CheckStatusWarning indicates the check passed with a warning.
	CheckStatusWarning CheckStatus = "warning"
	// CheckStatusError indicates the check failed.
	CheckStatusError CheckStatus = "error"
)

// CheckResult represents the result of a single preflight check.
type CheckResult struct {
	// ID is a unique identifier for the check (e.g. "docker_daemon").
	ID string
	// Message is a human-readable description of the result.
	Message string
	// Status is the check status.
	Status CheckStatus
}

// --- Internal conversion helpers ---

func toInternalServiceSpecs(specs []ServiceSpec) []model.ServiceSpec {
	result := make([]model.ServiceSpec, len(specs))
	for i, s := range specs {
		result[i] = model.ServiceSpec{
			Name:     s.Name,
			Command:  s.Command,
			Image:    s.Image,
			Env:      s.Env,
			Replicas: s.Replicas,
			LogPath:  s.LogPath,
		}
	}
	return result
}

func toInternalRunStatusFilter(status *RunStatus) *model.RunStatus {
	if status == nil {
		return nil
	}
	s := model.RunStatus(*status)
	return &s
}

func fromInternalTaskStatus(s model.TaskStatus) TaskStatus {
	return TaskStatus{
		TaskID:         s.TaskID,
		Status:         TaskState(s.Status),
		Progress:       s.Progress,
		ProcessedFiles: s.ProcessedFiles,
		TotalFiles:     s.TotalFiles,
		ErrorMessage:   s.ErrorMessage,
	}
}

func fromInternalRunResult(r model.RunResult) RunResult {
	result := RunResult{
		RunID:  r.RunID,
		TaskID: r.TaskID,
		Final:  fromInternalTaskStatus(r.Final),
	}

	if r.Result != nil {
		result.Result = &ResultLocation{
			DownloadURL: r.Result.DownloadURL,
			ExpiresIn:   r.Result.ExpiresIn,
		}
	}

	return result
}

func fromInternalRun(r model.Run) Run {
	return Run{
		ID:             r.ID,
		File:           r.File,
		TargetLanguage: r.TargetLanguage,
		TranslateStyle: r.TranslateStyle,
		TaskID:         r.TaskID,
		Status:         RunStatus(r.Status),
		Phase:          RunPhase(r.Phase),
		Error:          r.Error,
		StartedAt:      r.StartedAt,
		FinishedAt:     r.FinishedAt,
	}
}

func fromInternalRunList(rs []model.Run) []Run {
	result := make([]Run, len(rs))
	for i, r := range rs {
		result[i] = fromInternalRun(r)
	}
	return result
}

func fromInternalCheckResults(results []model.CheckResult) []CheckResult {
	out := make([]CheckResult, len(results))
	for i, r := range results {
		out[i] = CheckResult{
			ID:      r.ID,
			Message: r.Message,
			Status:  CheckStatus(r.Status),
		}
	}
	return out
}

func mapError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case isInternalError(err, model.ErrNotFound):
		return joinErrors(err, ErrNotFound)
	case isInternalError(err, model.ErrAlreadyExists):
		return joinErrors(err, ErrAlreadyExists)
	case isInternalError(err, model.ErrNotValid):
		return joinErrors(err, ErrNotValid)
	case isInternalError(err, model.ErrLaunch):
		return joinErrors(err, ErrLaunch)
	case isInternalError(err, model.ErrHealthTimeout):
		return joinErrors(err, ErrHealthTimeout)
	case isInternalError(err, model.ErrEmptyResponse):
		return joinErrors(err, ErrEmptyResponse)
	case isInternalError(err, model.ErrMissingField):
		return joinErrors(err, ErrMissingField)
	case isInternalError(err, model.ErrPollTimeout):
		return joinErrors(err, ErrPollTimeout)
	default:
		return err
	}
}

func isInternalError(err, target error) bool {
	for {
		if err == target {
			return true
		}
		unwrapped := unwrapSingle(err)
		if unwrapped == nil {
			return false
		}
		err = unwrapped
	}
}

func unwrapSingle(err error) error {
	u, ok := err.(interface{ Unwrap() error })
	if !ok {
		return nil
	}
	return u.Unwrap()
}

func joinErrors(original, sentinel error) error {
	return &mappedError{original: original, sentinel: sentinel}
}

type mappedError struct {
	original error
	sentinel error
}

func (e *mappedError) Error() string { return e.original.Error() }

func (e *mappedError) Is(target error) bool {
	return target == e.sentinel
}

func (e *mappedError) Unwrap() error { return e.original }
