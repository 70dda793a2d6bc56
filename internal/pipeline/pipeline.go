package pipeline

import (
	"context"

	"github.com/rustedworkshop/smokerig/internal/model"
)

// SubmitRequest is one translation job submission.
type SubmitRequest struct {
	// FilePath is the local path of the archive to translate.
	FilePath string
	// TargetLanguage is the translation target (e.g. "zh-CN").
	TargetLanguage string
	// TranslateStyle is the translation style hint (e.g. "auto").
	TranslateStyle string
}

// API is the surface of the translation pipeline the harness consumes.
type API interface {
	// Health returns nil only when the service reports itself ready.
	// Any transport error, non-success response or unexpected payload is an
	// error, the caller decides whether to retry.
	Health(ctx context.Context) error

	// SubmitTask uploads the file and registers a translation task.
	SubmitTask(ctx context.Context, req SubmitRequest) (*model.TaskAck, error)

	// TaskStatus fetches one point-in-time observation of a task.
	TaskStatus(ctx context.Context, taskID string) (*model.TaskStatus, error)

	// TaskResult resolves the download location of a completed task.
	TaskResult(ctx context.Context, taskID string) (*model.ResultLocation, error)
}
