package model

import (
	"time"
)

// StatusReport is everything known about a project's generation state,
// assembled for presentation.
type StatusReport struct {
	Project     Project
	StepResults []StepResult
	Checkpoint  *Checkpoint
	Sessions    []Session
	UsageUnits  int
	UsageTime   time.Duration
}
