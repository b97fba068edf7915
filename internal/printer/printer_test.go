package printer_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scribahq/scriba/internal/model"
	"github.com/scribahq/scriba/internal/printer"
)

func reportFixture() model.StatusReport {
	createdAt := time.Date(2026, 1, 30, 10, 0, 0, 0, time.UTC)
	ended := createdAt.Add(3 * time.Minute)

	return model.StatusReport{
		Project: model.Project{
			ID:        "2f1e9c14-3b7a-4a14-9d7e-6c1b8a0f4d21",
			Name:      "field-notes",
			Status:    model.ProjectStatusFailed,
			CreatedAt: createdAt,
			UpdatedAt: createdAt.Add(5 * time.Minute),
		},
		StepResults: []model.StepResult{
			{
				ProjectID:  "2f1e9c14-3b7a-4a14-9d7e-6c1b8a0f4d21",
				StepNumber: 1,
				StepName:   "outline",
				StartedAt:  createdAt,
				FinishedAt: createdAt.Add(2 * time.Second),
				Success:    true,
			},
			{
				ProjectID:  "2f1e9c14-3b7a-4a14-9d7e-6c1b8a0f4d21",
				StepNumber: 2,
				StepName:   "chapter-summaries",
				StartedAt:  createdAt.Add(2 * time.Second),
				FinishedAt: createdAt.Add(5 * time.Second),
				Success:    false,
				Errors:     []string{"model overloaded"},
			},
		},
		Checkpoint: &model.Checkpoint{
			Version:   model.CheckpointVersion,
			Step:      2,
			Chapter:   3,
			Section:   1,
			UpdatedAt: createdAt.Add(5 * time.Second),
		},
		Sessions: []model.Session{
			{
				ID:        "ses-1",
				ProjectID: "2f1e9c14-3b7a-4a14-9d7e-6c1b8a0f4d21",
				TaskID:    "01JMD2AXQZC5J8W1N5K0T9GQRF",
				StartedAt: createdAt,
				EndedAt:   &ended,
				UnitsDone: 4,
			},
		},
		UsageUnits: 4,
		UsageTime:  12 * time.Second,
	}
}

func TestTablePrinterPrintStatus(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewTablePrinter(&buf)

	err := p.PrintStatus(reportFixture())
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Name:       field-notes")
	assert.Contains(t, out, "Status:     failed")
	assert.Contains(t, out, "Usage:      4 units in 12s")
	assert.Contains(t, out, "Resume at:  step 2, chapter 3, section 1")
	assert.Contains(t, out, "chapter-summaries")
	assert.Contains(t, out, "failed")
	assert.Contains(t, out, "- model overloaded")
}

func TestJSONPrinterPrintStatus(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewJSONPrinter(&buf)

	err := p.PrintStatus(reportFixture())
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"name": "field-notes"`)
	assert.Contains(t, out, `"status": "failed"`)
	assert.Contains(t, out, `"chapter": 3`)
	assert.Contains(t, out, `"usage_time": "12s"`)
	assert.Contains(t, out, `"model overloaded"`)
	assert.Contains(t, out, `"units_done": 4`)
}

func TestTablePrinterPrintList(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewTablePrinter(&buf)

	report := reportFixture()
	err := p.PrintList([]model.Project{report.Project})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "STATUS")
	assert.Contains(t, out, "field-notes")
	assert.Contains(t, out, "failed")
}

func TestTablePrinterPrintListEmpty(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewTablePrinter(&buf)

	err := p.PrintList(nil)
	require.NoError(t, err)
	assert.Empty(t, buf.String())
}

func TestJSONPrinterPrintList(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewJSONPrinter(&buf)

	report := reportFixture()
	err := p.PrintList([]model.Project{report.Project})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"name": "field-notes"`)
	assert.Contains(t, out, `"status": "failed"`)
}

func TestTablePrinterPrintMessage(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewTablePrinter(&buf)

	err := p.PrintMessage("ok")
	require.NoError(t, err)
	assert.Equal(t, "ok", strings.TrimSpace(buf.String()))
}

func TestJSONPrinterPrintMessage(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewJSONPrinter(&buf)

	err := p.PrintMessage("project removed")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"message": "project removed"`)
}
