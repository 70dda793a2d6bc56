package reporter

import (
	"fmt"
	"io"

	"github.com/rustedworkshop/smokerig/internal/model"
)

// LineReporter writes the field-prefixed lines downstream log scraping keys
// on. The format is a contract: changing a prefix breaks every consumer that
// greps run output.
type LineReporter struct {
	writer io.Writer
}

// NewLineReporter creates a new line reporter.
func NewLineReporter(w io.Writer) *LineReporter {
	return &LineReporter{writer: w}
}

// TaskSubmitted writes the task acknowledgment lines.
func (l *LineReporter) TaskSubmitted(ack model.TaskAck) error {
	if _, err := fmt.Fprintf(l.writer, "TASK_ID=%s\n", ack.TaskID); err != nil {
		return err
	}
	_, err := fmt.Fprintf(l.writer, "INITIAL_STATUS=%s\n", ack.Status)
	return err
}

// PollObservation writes one poll observation line.
func (l *LineReporter) PollObservation(iteration int, status model.TaskStatus) error {
	_, err := fmt.Fprintf(l.writer, "POLL %d: status=%s, progress=%.2f, processed=%d/%d\n",
		iteration, status.Status, status.Progress, status.ProcessedFiles, status.TotalFiles)
	return err
}

// FinalOutcome writes the terminal status lines. FINAL_ERROR is always
// written, empty when the task succeeded.
func (l *LineReporter) FinalOutcome(status model.TaskStatus) error {
	if _, err := fmt.Fprintf(l.writer, "FINAL_STATUS=%s\n", status.Status); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(l.writer, "FINAL_PROGRESS=%.2f\n", status.Progress); err != nil {
		return err
	}
	_, err := fmt.Fprintf(l.writer, "FINAL_ERROR=%s\n", status.ErrorMessage)
	return err
}

// ResultResolved writes the download location lines.
func (l *LineReporter) ResultResolved(loc model.ResultLocation) error {
	if _, err := fmt.Fprintf(l.writer, "RESULT_URL=%s\n", loc.DownloadURL); err != nil {
		return err
	}
	_, err := fmt.Fprintf(l.writer, "RESULT_EXPIRES_IN=%d\n", loc.ExpiresIn)
	return err
}
