package model

// TaskState is the pipeline-reported state of a translation task.
//
// The state set is open: the pipeline may report intermediate states this
// harness does not know about (downloading, extracting, translating...). Only
// the terminal states are fixed.
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
	return s == TaskStateCompleted || s == TaskStateFailed
}

// TaskAck is the pipeline's acknowledgement of a submitted task.
type TaskAck struct {
	TaskID string
	// Status is recorded as reported by the API, without validation.
	Status TaskState
}

// TaskStatus is a point-in-time observation of a task's progress.
type TaskStatus struct {
	TaskID         string
	Status         TaskState
	Progress       float64
	ProcessedFiles int
	TotalFiles     int
	ErrorMessage   string
}

// ResultLocation is the time-limited download location of a completed task's
// translated archive.
type ResultLocation struct {
	DownloadURL string
	ExpiresIn   int // Seconds until DownloadURL stops working.
}
