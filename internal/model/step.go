package model

import (
	"time"
)

// StepResult is the persisted outcome of one workflow step run.
// One row exists per (project, step number); rerunning a step replaces it.
type StepResult struct {
	ProjectID  string
	StepNumber int
	StepName   string
	StartedAt  time.Time
	FinishedAt time.Time
	Success    bool
	Errors     []string
	Warnings   []string
	Payload    map[string]any
}

// Duration returns the wall time the step took.
func (r StepResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
