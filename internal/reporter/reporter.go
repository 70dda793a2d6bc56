package reporter

import (
	"github.com/rustedworkshop/smokerig/internal/model"
)

// Reporter receives the run milestones as they happen.
//
// Reporting is observational: implementations may fail (e.g. a closed pipe)
// and callers log those failures without letting them steer the run.
type Reporter interface {
	// TaskSubmitted reports the acknowledged task right after submission.
	TaskSubmitted(ack model.TaskAck) error
	// PollObservation reports one poll iteration (1-based) and the status
	// observed on it.
	PollObservation(iteration int, status model.TaskStatus) error
	// FinalOutcome reports the terminal status the run settled on.
	FinalOutcome(status model.TaskStatus) error
	// ResultResolved reports the download location of a completed task.
	ResultResolved(loc model.ResultLocation) error
}
