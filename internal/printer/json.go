package printer

import (
	"encoding/json"
	"io"
	"time"

	"github.com/rustedworkshop/smokerig/internal/model"
)

// JSONPrinter prints run information in JSON format.
type JSONPrinter struct {
	writer io.Writer
}

// NewJSONPrinter creates a new JSON printer.
func NewJSONPrinter(w io.Writer) *JSONPrinter {
	return &JSONPrinter{writer: w}
}

// listItem represents a run in the list output.
type listItem struct {
	ID             string     `json:"id"`
	File           string     `json:"file"`
	TargetLanguage string     `json:"target_language"`
	TranslateStyle string     `json:"translate_style"`
	TaskID         string     `json:"task_id"`
	Status         string     `json:"status"`
	Phase          string     `json:"phase"`
	Error          string     `json:"error,omitempty"`
	StartedAt      time.Time  `json:"started_at"`
	FinishedAt     *time.Time `json:"finished_at"`
}

// messageOutput represents a simple message output.
type messageOutput struct {
	Message string `json:"message"`
}

// PrintRunList prints runs in JSON format.
func (j *JSONPrinter) PrintRunList(runs []model.Run) error {
	items := make([]listItem, len(runs))
	for i, r := range runs {
		items[i] = listItem{
			ID:             r.ID,
			File:           r.File,
			TargetLanguage: r.TargetLanguage,
			TranslateStyle: r.TranslateStyle,
			TaskID:         r.TaskID,
			Status:         string(r.Status),
			Phase:          string(r.Phase),
			Error:          r.Error,
			StartedAt:      r.StartedAt.UTC(),
		}
		if r.FinishedAt != nil {
			utcTime := r.FinishedAt.UTC()
			items[i].FinishedAt = &utcTime
		}
	}

	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(items)
}

// PrintMessage prints a simple message in JSON format.
func (j *JSONPrinter) PrintMessage(msg string) error {
	output := messageOutput{Message: msg}
	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(output)
}
