package model

import "time"

// RunStatus is the lifecycle state of one verification run of the harness.
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
type Run struct {
	ID             string
	File           string
	TargetLanguage string
	TranslateStyle string
	TaskID         string
	Status         RunStatus
	Phase          RunPhase
	Error          string
	StartedAt      time.Time
	FinishedAt     *time.Time
}

// RunResult is what a verification run yields once the task reached a
// terminal status.
type RunResult struct {
	RunID  string
	TaskID string
	Final  TaskStatus
	// Result is only set when Final.Status is completed.
	Result *ResultLocation
}
