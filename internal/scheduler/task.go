package scheduler

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/scribahq/scriba/internal/model"
)

// task is the scheduler's internal record of a submitted unit of work.
// Status transitions happen under the scheduler mutex; the cancelled flag
// is atomic so running work can poll it without locking.
type task struct {
	id   model.TaskID
	name string
	work Work

	status     model.TaskStatus
	err        error
	result     any
	createdAt  time.Time
	startedAt  *time.Time
	finishedAt *time.Time

	cancelled atomic.Bool
	cancel    context.CancelFunc

	events chan model.Notification
	done   chan struct{}
}

// emit delivers a notification without ever blocking. When the buffer is
// full, non-terminal events are dropped; for the terminal result event the
// oldest buffered event is sacrificed instead, so the stream always ends
// with the result.
func (t *task) emit(n model.Notification) {
	select {
	case t.events <- n:
		return
	default:
	}

	if n.Kind != model.NotificationResult {
		return
	}

	select {
	case <-t.events:
	default:
	}
	select {
	case t.events <- n:
	default:
	}
}

// TaskContext is handed to running work. It reports progress and log
// lines onto the task's notification stream and exposes the cooperative
// cancellation flag. It must not be used after the work function returns.
type TaskContext struct {
	t *task
}

// ID returns the task's ID.
func (tc *TaskContext) ID() model.TaskID {
	return tc.t.id
}

// Name returns the name the task was submitted under.
func (tc *TaskContext) Name() string {
	return tc.t.name
}

// Progress emits a progress notification.
func (tc *TaskContext) Progress(percent float64, label string) {
	tc.t.emit(model.Notification{
		TaskID:  tc.t.id,
		Kind:    model.NotificationProgress,
		Status:  model.TaskStatusRunning,
		Percent: percent,
		Message: label,
		At:      time.Now(),
	})
}

// Logf emits a log notification.
func (tc *TaskContext) Logf(level model.LogLevel, format string, args ...any) {
	tc.t.emit(model.Notification{
		TaskID:  tc.t.id,
		Kind:    model.NotificationLog,
		Status:  model.TaskStatusRunning,
		Level:   level,
		Message: fmt.Sprintf(format, args...),
		At:      time.Now(),
	})
}

// Cancelled reports whether cancellation has been requested. Long-running
// work should check it between units and wind down when it turns true.
func (tc *TaskContext) Cancelled() bool {
	return tc.t.cancelled.Load()
}
