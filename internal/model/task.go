package model

import (
	"time"
)

// TaskID identifies a scheduled task. IDs are opaque to callers but
// lexicographically time-ordered, so sorting IDs sorts by submission time.
type TaskID string

// TaskStatus represents the lifecycle state of a scheduled task.
type TaskStatus string

const (
	// TaskStatusQueued indicates the task is waiting for a worker.
	TaskStatusQueued TaskStatus = "queued"
	// TaskStatusRunning indicates a worker picked up the task.
	TaskStatusRunning TaskStatus = "running"
	// TaskStatusCompleted indicates the task finished successfully.
	TaskStatusCompleted TaskStatus = "completed"
	// TaskStatusFailed indicates the task returned an error or panicked.
	TaskStatusFailed TaskStatus = "failed"
	// TaskStatusCancelled indicates the task was cancelled before or during execution.
	TaskStatusCancelled TaskStatus = "cancelled"
	// TaskStatusUnknown is reported for IDs the scheduler no longer tracks.
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

// Task is the scheduler's record of a submitted unit of work.
type Task struct {
	ID         TaskID
	Name       string
	Status     TaskStatus
	Error      string
	CreatedAt  time.Time
	StartedAt  *time.Time
	FinishedAt *time.Time
}

// NotificationKind discriminates the events emitted on a task's channel.
type NotificationKind string

const (
	// NotificationStatus signals a lifecycle transition.
	NotificationStatus NotificationKind = "status"
	// NotificationProgress carries a progress report from the running work.
	NotificationProgress NotificationKind = "progress"
	// NotificationLog carries a log line from the running work.
	NotificationLog NotificationKind = "log"
	// NotificationResult is the single terminal event, emitted exactly once.
	NotificationResult NotificationKind = "result"
)

// LogLevel is the severity attached to log notifications.
type LogLevel string

const (
	LogLevelDebug   LogLevel = "debug"
	LogLevelInfo    LogLevel = "info"
	LogLevelWarning LogLevel = "warning"
	LogLevelError   LogLevel = "error"
)

// Notification is a single event on a task's ordered event stream.
// Fields are populated per kind: Status for status events, Percent and
// Message for progress, Level and Message for log, Status and Error for
// the terminal result.
type Notification struct {
	TaskID  TaskID
	Kind    NotificationKind
	Status  TaskStatus
	Percent float64
	Level   LogLevel
	Message string
	Error   string
	At      time.Time
}
