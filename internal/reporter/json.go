package reporter

import (
	"encoding/json"
	"io"

	"github.com/rustedworkshop/smokerig/internal/model"
)

// JSONReporter writes one JSON object per event, one event per line.
type JSONReporter struct {
	writer io.Writer
}

// NewJSONReporter creates a new JSON reporter.
func NewJSONReporter(w io.Writer) *JSONReporter {
	return &JSONReporter{writer: w}
}

// submittedEvent represents the task acknowledgment event.
type submittedEvent struct {
	Event  string `json:"event"`
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

// pollEvent represents one poll observation event.
type pollEvent struct {
	Event          string  `json:"event"`
	Iteration      int     `json:"iteration"`
	Status         string  `json:"status"`
	Progress       float64 `json:"progress"`
	ProcessedFiles int     `json:"processed_files"`
	TotalFiles     int     `json:"total_files"`
	ErrorMessage   string  `json:"error_message,omitempty"`
}

// finalEvent represents the terminal outcome event.
type finalEvent struct {
	Event        string  `json:"event"`
	Status       string  `json:"status"`
	Progress     float64 `json:"progress"`
	ErrorMessage string  `json:"error_message"`
}

// resultEvent represents the resolved download location event.
type resultEvent struct {
	Event       string `json:"event"`
	DownloadURL string `json:"download_url"`
	ExpiresIn   int    `json:"expires_in"`
}

// TaskSubmitted writes the task acknowledgment event.
func (j *JSONReporter) TaskSubmitted(ack model.TaskAck) error {
	return json.NewEncoder(j.writer).Encode(submittedEvent{
		Event:  "task_submitted",
		TaskID: ack.TaskID,
		Status: string(ack.Status),
	})
}

// PollObservation writes one poll observation event.
func (j *JSONReporter) PollObservation(iteration int, status model.TaskStatus) error {
	return json.NewEncoder(j.writer).Encode(pollEvent{
		Event:          "poll",
		Iteration:      iteration,
		Status:         string(status.Status),
		Progress:       status.Progress,
		ProcessedFiles: status.ProcessedFiles,
		TotalFiles:     status.TotalFiles,
		ErrorMessage:   status.ErrorMessage,
	})
}

// FinalOutcome writes the terminal outcome event.
func (j *JSONReporter) FinalOutcome(status model.TaskStatus) error {
	return json.NewEncoder(j.writer).Encode(finalEvent{
		Event:        "final",
		Status:       string(status.Status),
		Progress:     status.Progress,
		ErrorMessage: status.ErrorMessage,
	})
}

// ResultResolved writes the resolved download location event.
func (j *JSONReporter) ResultResolved(loc model.ResultLocation) error {
	return json.NewEncoder(j.writer).Encode(resultEvent{
		Event:       "result",
		DownloadURL: loc.DownloadURL,
		ExpiresIn:   loc.ExpiresIn,
	})
}
