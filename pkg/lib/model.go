package lib

import (
	"errors"
	"time"

	"github.com/scribahq/scriba/internal/model"
)

// SDK sentinel errors. All client methods return errors that can be
// inspected with [errors.Is] against these.
var (
	// ErrNotFound indicates the resource does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists indicates a resource with the same name already exists.
	ErrAlreadyExists = errors.New("already exists")
	// ErrNotValid indicates invalid input or an invalid operation.
	ErrNotValid = errors.New("not valid")
	// ErrNotReady indicates a task result was requested before the task finished.
	ErrNotReady = errors.New("not ready")
	// ErrTimeout indicates a wait exceeded its deadline.
	ErrTimeout = errors.New("timed out")
	// ErrClosed indicates the client was closed while the operation ran.
	ErrClosed = errors.New("closed")
)

// ProjectStatus represents the lifecycle state of a book project.
//
// The typical lifecycle is:
//
//	draft -> generating -> complete
//
// A project transitions to failed when its last run halted on a failed
// step or was cancelled; resuming it moves it back to generating.
type ProjectStatus string

const (
	// ProjectStatusDraft indicates no generation has run yet.
	ProjectStatusDraft ProjectStatus = "draft"
	// ProjectStatusGenerating indicates a generation workflow is in flight.
	ProjectStatusGenerating ProjectStatus = "generating"
	// ProjectStatusComplete indicates the last workflow finished all steps.
	ProjectStatusComplete ProjectStatus = "complete"
	// ProjectStatusFailed indicates the last workflow halted or was cancelled.
	ProjectStatusFailed ProjectStatus = "failed"
)

// Project represents a book project returned by the SDK.
//
// This is a read-only snapshot of the project state at the time of the
// API call. Use [Client.Status] to get the latest state.
type Project struct {
	// ID is the unique identifier (UUID) assigned at creation.
	ID string
	// Name is the human-friendly name.
	Name string
	// Status is the current lifecycle state.
	Status ProjectStatus
	// CreatedAt is when the project was created.
	CreatedAt time.Time
	// UpdatedAt is when the project last changed state.
	UpdatedAt time.Time
}

// Plan describes what a generation run should produce: the book's shape
// as an ordered list of chapters, each with a fixed section count.
type Plan struct {
	// Title is the book title (required).
	Title string
	// Style is a free-form prose style hint passed to the generator.
	Style string
	// Chapters is the ordered chapter list (at least one required).
	Chapters []PlanChapter
}

// PlanChapter is one chapter entry in a plan.
type PlanChapter struct {
	// Title is the chapter title (required).
	Title string
	// Sections is how many sections the chapter has (at least one).
	Sections int
}

// TaskID identifies a scheduled generation task. IDs are opaque but
// lexicographically time-ordered, so sorting IDs sorts by submission
// time.
type TaskID string

// TaskStatus represents the lifecycle state of a generation task.
type TaskStatus string

const (
	// TaskStatusQueued indicates the task is waiting for a worker.
	TaskStatusQueued TaskStatus = "queued"
	// TaskStatusRunning indicates a worker picked up the task.
	TaskStatusRunning TaskStatus = "running"
	// TaskStatusCompleted indicates the task finished successfully.
	TaskStatusCompleted TaskStatus = "completed"
	// TaskStatusFailed indicates the task returned an error.
	TaskStatusFailed TaskStatus = "failed"
	// TaskStatusCancelled indicates the task was cancelled.
	TaskStatusCancelled TaskStatus = "cancelled"
	// TaskStatusUnknown is reported for IDs the client no longer tracks.
	TaskStatusUnknown TaskStatus = "unknown"
)

// Terminal reports whether the status is a final state.
func (s TaskStatus) Terminal() bool {
	switch s {
	case TaskStatusCompleted, TaskStatusFailed, TaskStatusCancelled:
		return true
	}
	return false
}

// EventKind discriminates the events on a run's notification stream.
type EventKind string

const (
	// EventStatus signals a task lifecycle transition.
	EventStatus EventKind = "status"
	// EventProgress carries percentage and label from the running work.
	EventProgress EventKind = "progress"
	// EventLog carries a log line from the running work.
	EventLog EventKind = "log"
	// EventResult is the single terminal event, emitted exactly once.
	EventResult EventKind = "result"
)

// LogLevel is the severity attached to log events.
type LogLevel string

const (
	LogLevelDebug   LogLevel = "debug"
	LogLevelInfo    LogLevel = "info"
	LogLevelWarning LogLevel = "warning"
	LogLevelError   LogLevel = "error"
)

// Event is a single notification on a run's ordered event stream.
// Events of one run arrive in emission order; there is no ordering
// guarantee across different runs.
type Event struct {
	// TaskID is the run the event belongs to.
	TaskID TaskID
	// Kind says which of the remaining fields are meaningful.
	Kind EventKind
	// Status is set on status and result events.
	Status TaskStatus
	// Percent is the completion percentage on progress events (0..100).
	Percent float64
	// Level is the severity on log events.
	Level LogLevel
	// Message is the progress label or log line.
	Message string
	// Error is the failure message on failed result events.
	Error string
	// At is when the event was emitted.
	At time.Time
}

// StepResult is the persisted outcome of one workflow step run.
type StepResult struct {
	// StepNumber is the 1-based position in the workflow.
	StepNumber int
	// StepName identifies the step ("outline", "sections", ...).
	StepName string
	// StartedAt and FinishedAt bound the step's execution.
	StartedAt  time.Time
	FinishedAt time.Time
	// Success reports whether the step completed without failing.
	Success bool
	// Errors and Warnings are the messages the step recorded.
	Errors   []string
	Warnings []string
	// Payload is the step's free-form structured output.
	Payload map[string]any
}

// Checkpoint is the durable resume position of an interrupted run.
type Checkpoint struct {
	// Step is the 1-based workflow step the run was in.
	Step int
	// Chapter and Section locate the next unit of work (1-based).
	Chapter int
	Section int
	// UpdatedAt is when the checkpoint was last written.
	UpdatedAt time.Time
}

// Session records one engine run against a project.
type Session struct {
	// ID is the session identifier.
	ID string
	// TaskID is the scheduler task that carried the run.
	TaskID TaskID
	// StartedAt and EndedAt bound the run. EndedAt is nil while running.
	StartedAt time.Time
	EndedAt   *time.Time
	// UnitsDone is how many content units the run completed.
	UnitsDone int
}

// StatusReport is everything known about a project's generation state.
type StatusReport struct {
	Project Project
	// Steps are the persisted step results in step order.
	Steps []StepResult
	// Checkpoint is the resume position, nil when no usable one exists.
	Checkpoint *Checkpoint
	// Sessions are the recorded engine runs, newest first.
	Sessions []Session
	// UsageUnits and UsageTime aggregate the project's generation cost.
	UsageUnits int
	UsageTime  time.Duration
}

// RunReport is the terminal result of a completed generation run.
type RunReport struct {
	// ProjectID is the project the run drafted.
	ProjectID string
	// Title is the book title from the plan.
	Title string
	// UnitsDone is how many units this run completed (resumed runs
	// count only their own units).
	UnitsDone int
	// TotalUnits is the full size of the workflow.
	TotalUnits int
	// UsageUnits is the project's aggregate generation cost so far.
	UsageUnits int
	// Duration is the run's wall time.
	Duration time.Duration
}

// PoolStats is a snapshot of the connection pool's accounting.
type PoolStats struct {
	// PoolSize is the configured number of pinned connections.
	PoolSize int
	// Available and CheckedOut partition the pool at the snapshot instant.
	Available  int
	CheckedOut int
	// TotalCreated counts every connection ever opened, including
	// replacements for dead ones.
	TotalCreated int64
}

// CheckStatus represents the status of a doctor check.
type CheckStatus string

const (
	// CheckStatusOK indicates the check passed.
	CheckStatusOK CheckStatus = "ok"
	// CheckStatusWarning indicates the check passed with a warning.
	CheckStatusWarning CheckStatus = "warning"
	// CheckStatusError indicates the check failed.
	CheckStatusError CheckStatus = "error"
)

// CheckResult represents the result of a single doctor check.
type CheckResult struct {
	// ID identifies the check (e.g. "database_reachable").
	ID string
	// Message is the human-readable description of the result.
	Message string
	// Status is the outcome of the check.
	Status CheckStatus
}

// --- Conversion helpers ---

func toInternalPlan(p Plan) model.Plan {
	plan := model.Plan{
		Title: p.Title,
		Style: p.Style,
	}
	for _, c := range p.Chapters {
		plan.Chapters = append(plan.Chapters, model.PlanChapter{
			Title:    c.Title,
			Sections: c.Sections,
		})
	}
	return plan
}

func fromInternalProject(p model.Project) Project {
	return Project{
		ID:        p.ID,
		Name:      p.Name,
		Status:    ProjectStatus(p.Status),
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func fromInternalProjectList(ps []model.Project) []Project {
	result := make([]Project, len(ps))
	for i, p := range ps {
		result[i] = fromInternalProject(p)
	}
	return result
}

func fromInternalEvent(n model.Notification) Event {
	return Event{
		TaskID:  TaskID(n.TaskID),
		Kind:    EventKind(n.Kind),
		Status:  TaskStatus(n.Status),
		Percent: n.Percent,
		Level:   LogLevel(n.Level),
		Message: n.Message,
		Error:   n.Error,
		At:      n.At,
	}
}

func fromInternalStepResult(r model.StepResult) StepResult {
	return StepResult{
		StepNumber: r.StepNumber,
		StepName:   r.StepName,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Success:    r.Success,
		Errors:     r.Errors,
		Warnings:   r.Warnings,
		Payload:    r.Payload,
	}
}

func fromInternalCheckpoint(cp *model.Checkpoint) *Checkpoint {
	if cp == nil {
		return nil
	}
	return &Checkpoint{
		Step:      cp.Step,
		Chapter:   cp.Chapter,
		Section:   cp.Section,
		UpdatedAt: cp.UpdatedAt,
	}
}

func fromInternalSession(s model.Session) Session {
	return Session{
		ID:        s.ID,
		TaskID:    TaskID(s.TaskID),
		StartedAt: s.StartedAt,
		EndedAt:   s.EndedAt,
		UnitsDone: s.UnitsDone,
	}
}

func fromInternalStatusReport(r model.StatusReport) StatusReport {
	out := StatusReport{
		Project:    fromInternalProject(r.Project),
		Checkpoint: fromInternalCheckpoint(r.Checkpoint),
		UsageUnits: r.UsageUnits,
		UsageTime:  r.UsageTime,
	}
	for _, sr := range r.StepResults {
		out.Steps = append(out.Steps, fromInternalStepResult(sr))
	}
	for _, s := range r.Sessions {
		out.Sessions = append(out.Sessions, fromInternalSession(s))
	}
	return out
}

func fromInternalPoolStats(s model.PoolStats) PoolStats {
	return PoolStats{
		PoolSize:     s.PoolSize,
		Available:    s.Available,
		CheckedOut:   s.CheckedOut,
		TotalCreated: s.TotalCreated,
	}
}

func fromInternalCheckResults(rs []model.CheckResult) []CheckResult {
	result := make([]CheckResult, len(rs))
	for i, r := range rs {
		result[i] = CheckResult{
			ID:      r.ID,
			Message: r.Message,
			Status:  CheckStatus(r.Status),
		}
	}
	return result
}

// mapError translates internal sentinel errors into the SDK's public
// ones while preserving the original message and chain.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, model.ErrNotFound):
		return joinErrors(err, ErrNotFound)
	case errors.Is(err, model.ErrAlreadyExists):
		return joinErrors(err, ErrAlreadyExists)
	case errors.Is(err, model.ErrNotValid):
		return joinErrors(err, ErrNotValid)
	case errors.Is(err, model.ErrNotReady):
		return joinErrors(err, ErrNotReady)
	case errors.Is(err, model.ErrTimeout), errors.Is(err, model.ErrUnavailable):
		return joinErrors(err, ErrTimeout)
	case errors.Is(err, model.ErrSchedulerClosed), errors.Is(err, model.ErrPoolClosed):
		return joinErrors(err, ErrClosed)
	default:
		return err
	}
}

func joinErrors(original, sentinel error) error {
	return &mappedError{original: original, sentinel: sentinel}
}

type mappedError struct {
	original error
	sentinel error
}

func (e *mappedError) Error() string { return e.original.Error() }

func (e *mappedError) Is(target error) bool {
	return target == e.sentinel
}

func (e *mappedError) Unwrap() error { return e.original }
