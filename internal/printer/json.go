package printer

import (
	"encoding/json"
	"io"
	"time"

	"github.com/scribahq/scriba/internal/model"
)

// JSONPrinter prints project information in JSON format.
type JSONPrinter struct {
	writer io.Writer
}

// NewJSONPrinter creates a new JSON printer.
func NewJSONPrinter(w io.Writer) *JSONPrinter {
	return &JSONPrinter{writer: w}
}

// listItem represents a project in the list output (subset of fields).
type listItem struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// statusOutput represents the full project status output.
type statusOutput struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Status     string            `json:"status"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
	Steps      []stepOutput      `json:"steps"`
	Checkpoint *checkpointOutput `json:"checkpoint,omitempty"`
	Sessions   []sessionOutput   `json:"sessions"`
	UsageUnits int               `json:"usage_units"`
	UsageTime  string            `json:"usage_time"`
}

// stepOutput represents one step result in the status output.
type stepOutput struct {
	Number     int       `json:"number"`
	Name       string    `json:"name"`
	Success    bool      `json:"success"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Errors     []string  `json:"errors,omitempty"`
	Warnings   []string  `json:"warnings,omitempty"`
}

// checkpointOutput represents the resume position in the status output.
type checkpointOutput struct {
	Step      int       `json:"step"`
	Chapter   int       `json:"chapter"`
	Section   int       `json:"section"`
	UpdatedAt time.Time `json:"updated_at"`
}

// sessionOutput represents one engine run in the status output.
type sessionOutput struct {
	ID        string     `json:"id"`
	TaskID    string     `json:"task_id"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at"`
	UnitsDone int        `json:"units_done"`
}

// messageOutput represents a simple message output.
type messageOutput struct {
	Message string `json:"message"`
}

// PrintList prints projects in JSON format with a subset of fields.
func (j *JSONPrinter) PrintList(projects []model.Project) error {
	items := make([]listItem, len(projects))
	for i, p := range projects {
		items[i] = listItem{
			ID:        p.ID,
			Name:      p.Name,
			Status:    string(p.Status),
			CreatedAt: p.CreatedAt.UTC(),
			UpdatedAt: p.UpdatedAt.UTC(),
		}
	}

	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(items)
}

// PrintStatus prints a detailed project status report in JSON format.
func (j *JSONPrinter) PrintStatus(report model.StatusReport) error {
	p := report.Project

	output := statusOutput{
		ID:         p.ID,
		Name:       p.Name,
		Status:     string(p.Status),
		CreatedAt:  p.CreatedAt.UTC(),
		UpdatedAt:  p.UpdatedAt.UTC(),
		Steps:      make([]stepOutput, 0, len(report.StepResults)),
		Sessions:   make([]sessionOutput, 0, len(report.Sessions)),
		UsageUnits: report.UsageUnits,
		UsageTime:  report.UsageTime.String(),
	}

	for _, r := range report.StepResults {
		output.Steps = append(output.Steps, stepOutput{
			Number:     r.StepNumber,
			Name:       r.StepName,
			Success:    r.Success,
			StartedAt:  r.StartedAt.UTC(),
			FinishedAt: r.FinishedAt.UTC(),
			Errors:     r.Errors,
			Warnings:   r.Warnings,
		})
	}

	if cp := report.Checkpoint; cp != nil {
		output.Checkpoint = &checkpointOutput{
			Step:      cp.Step,
			Chapter:   cp.Chapter,
			Section:   cp.Section,
			UpdatedAt: cp.UpdatedAt.UTC(),
		}
	}

	for _, s := range report.Sessions {
		so := sessionOutput{
			ID:        s.ID,
			TaskID:    string(s.TaskID),
			StartedAt: s.StartedAt.UTC(),
			UnitsDone: s.UnitsDone,
		}
		if s.EndedAt != nil {
			utcTime := s.EndedAt.UTC()
			so.EndedAt = &utcTime
		}
		output.Sessions = append(output.Sessions, so)
	}

	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(output)
}

// PrintMessage prints a simple message in JSON format.
func (j *JSONPrinter) PrintMessage(msg string) error {
	output := messageOutput{Message: msg}
	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(output)
}
