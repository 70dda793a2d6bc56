package printer_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustedworkshop/smokerig/internal/model"
	"github.com/rustedworkshop/smokerig/internal/printer"
)

func runFixture() model.Run {
	startedAt := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	finishedAt := startedAt.Add(3*time.Minute + 42*time.Second)
	return model.Run{
		ID:             "01K2QWERTYASDFGZXCVBNMLKJH",
		File:           "/tmp/sample.rwmod",
		TargetLanguage: "zh-CN",
		TranslateStyle: "auto",
		TaskID:         "abc123",
		Status:         model.RunStatusCompleted,
		Phase:          model.RunPhaseDone,
		StartedAt:      startedAt,
		FinishedAt:     &finishedAt,
	}
}

func TestTablePrinterPrintRunList(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewTablePrinter(&buf)

	err := p.PrintRunList([]model.Run{runFixture()})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "01K2QWERTYASDFGZXCVBNMLKJH")
	assert.Contains(t, out, "/tmp/sample.rwmod")
	assert.Contains(t, out, "abc123")
	assert.Contains(t, out, "completed")
	assert.Contains(t, out, "3m42s")
}

func TestTablePrinterPrintRunListPlaceholders(t *testing.T) {
	run := runFixture()
	run.TaskID = ""
	run.FinishedAt = nil
	run.Status = model.RunStatusRunning

	var buf bytes.Buffer
	p := printer.NewTablePrinter(&buf)

	err := p.PrintRunList([]model.Run{run})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "-")
	assert.Contains(t, out, "running")
}

func TestTablePrinterPrintRunListEmpty(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewTablePrinter(&buf)

	err := p.PrintRunList(nil)
	require.NoError(t, err)
	assert.Empty(t, buf.String())
}

func TestJSONPrinterPrintRunList(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewJSONPrinter(&buf)

	err := p.PrintRunList([]model.Run{runFixture()})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"id": "01K2QWERTYASDFGZXCVBNMLKJH"`)
	assert.Contains(t, out, `"task_id": "abc123"`)
	assert.Contains(t, out, `"status": "completed"`)
	assert.Contains(t, out, `"target_language": "zh-CN"`)
}

func TestTablePrinterPrintMessage(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewTablePrinter(&buf)

	err := p.PrintMessage("ok")
	require.NoError(t, err)
	assert.Equal(t, "ok", strings.TrimSpace(buf.String()))
}
