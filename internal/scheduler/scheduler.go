// Package scheduler runs submitted work on a bounded pool of workers and
// tracks every task's lifecycle until its result is collected.
//
// Submission never blocks: tasks land in an internal FIFO queue and wait
// for a free worker. Each task carries an ordered notification stream that
// interested callers can consume without ever being required to; the task
// table stays authoritative, so an abandoned stream cannot wedge the
// scheduler or its shutdown.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/scribahq/scriba/internal/log"
	"github.com/scribahq/scriba/internal/model"
)

// Work is the unit a caller hands to the scheduler. ctx is cancelled on
// Cancel and on scheduler shutdown; tc reports progress and log lines and
// exposes the cooperative cancellation flag.
type Work func(ctx context.Context, tc *TaskContext) (any, error)

// Config is the configuration for the scheduler.
type Config struct {
	// Workers is the number of tasks allowed to run at the same time.
	Workers int
	// NotificationBuffer is the per-task event channel capacity.
	NotificationBuffer int
	// ShutdownTimeout bounds how long Close waits for running tasks.
	ShutdownTimeout time.Duration
	Logger          log.Logger
}

func (c *Config) defaults() error {
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.NotificationBuffer <= 0 {
		c.NotificationBuffer = 64
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 30 * time.Second
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "scheduler.Scheduler"})
	return nil
}

// Scheduler owns the task table, the queue and the worker pool.
type Scheduler struct {
	logger          log.Logger
	workers         int
	notifBuf        int
	shutdownTimeout time.Duration

	baseCtx    context.Context
	baseCancel context.CancelFunc

	mu     sync.Mutex
	cond   *sync.Cond
	tasks  map[model.TaskID]*task
	queue  []*task
	closed bool

	wg sync.WaitGroup
}

// New creates a scheduler and starts its workers.
func New(cfg Config) (*Scheduler, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	baseCtx, baseCancel := context.WithCancel(context.Background())
	s := &Scheduler{
		logger:          cfg.Logger,
		workers:         cfg.Workers,
		notifBuf:        cfg.NotificationBuffer,
		shutdownTimeout: cfg.ShutdownTimeout,
		baseCtx:         baseCtx,
		baseCancel:      baseCancel,
		tasks:           map[model.TaskID]*task{},
	}
	s.cond = sync.NewCond(&s.mu)

	s.wg.Add(s.workers)
	for i := 0; i < s.workers; i++ {
		go s.worker()
	}

	cfg.Logger.Debugf("Scheduler started with %d workers", s.workers)

	return s, nil
}

// Submit enqueues work under the given name and returns its task ID. It
// never blocks on queue capacity; the only failure mode is submitting to
// a closed scheduler.
func (s *Scheduler) Submit(ctx context.Context, name string, work Work) (model.TaskID, error) {
	if work == nil {
		return "", fmt.Errorf("work is required: %w", model.ErrNotValid)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", fmt.Errorf("could not submit task %q: %w", name, model.ErrSchedulerClosed)
	}

	t := &task{
		id:        model.TaskID(ulid.Make().String()),
		name:      name,
		work:      work,
		status:    model.TaskStatusQueued,
		createdAt: time.Now(),
		events:    make(chan model.Notification, s.notifBuf),
		done:      make(chan struct{}),
	}
	s.tasks[t.id] = t
	s.queue = append(s.queue, t)
	t.emit(model.Notification{
		TaskID: t.id,
		Kind:   model.NotificationStatus,
		Status: model.TaskStatusQueued,
		At:     time.Now(),
	})
	s.cond.Signal()

	s.logger.Debugf("Submitted task %s (%s)", t.id, name)

	return t.id, nil
}

// Status reports where a task is in its lifecycle. IDs the scheduler does
// not track, whether never submitted or already evicted, report unknown.
func (s *Scheduler) Status(id model.TaskID) model.TaskStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return model.TaskStatusUnknown
	}
	return t.status
}

// Result returns the task's outcome. Before the task reaches a terminal
// state it fails with ErrNotReady. On success it returns the work's value,
// on failure or cancellation the task's error. Collecting a result evicts
// the task; a second call fails with ErrNotFound.
func (s *Scheduler) Result(id model.TaskID) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", id, model.ErrNotFound)
	}
	if !t.status.Terminal() {
		return nil, fmt.Errorf("task %s is %s: %w", id, t.status, model.ErrNotReady)
	}

	delete(s.tasks, id)
	return t.result, t.err
}

// Wait blocks until the task reaches a terminal state, the context is
// cancelled, or the timeout expires. A non-positive timeout means wait on
// the context alone.
func (s *Scheduler) Wait(ctx context.Context, id model.TaskID, timeout time.Duration) error {
	s.mu.Lock()
	t, ok := s.tasks[id]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("task %s: %w", id, model.ErrNotFound)
	}

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case <-t.done:
		return nil
	case <-expired:
		return fmt.Errorf("task %s not finished after %s: %w", id, timeout, model.ErrTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Cancel requests cancellation of a task. Queued tasks turn terminal on
// the spot and their work never runs. Running tasks get their context
// cancelled and the cooperative flag set; they stay running until the
// work observes it and returns. Cancel reports whether it did anything:
// unknown or already-terminal tasks return false.
func (s *Scheduler) Cancel(id model.TaskID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok || t.status.Terminal() {
		return false
	}

	t.cancelled.Store(true)

	switch t.status {
	case model.TaskStatusQueued:
		s.finishLocked(t, nil, fmt.Errorf("cancelled before start: %w", context.Canceled), model.TaskStatusCancelled)
	case model.TaskStatusRunning:
		if t.cancel != nil {
			t.cancel()
		}
	}

	s.logger.Infof("Cancellation requested for task %s", id)

	return true
}

// Events returns the task's ordered notification stream. The channel is
// buffered and closed right after the terminal result event; when the
// consumer lags, non-terminal events are dropped rather than blocking
// the scheduler.
func (s *Scheduler) Events(id model.TaskID) (<-chan model.Notification, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, false
	}
	return t.events, true
}

// Close stops intake, cancels queued and running tasks, and waits up to
// the shutdown timeout for workers to drain. Stragglers past the timeout
// are abandoned; their goroutines exit when their work returns. Idempotent.
func (s *Scheduler) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true

	for _, t := range s.queue {
		if t.status != model.TaskStatusQueued {
			continue
		}
		t.cancelled.Store(true)
		s.finishLocked(t, nil, fmt.Errorf("scheduler shutting down: %w", context.Canceled), model.TaskStatusCancelled)
	}
	s.queue = nil

	running := 0
	for _, t := range s.tasks {
		if t.status == model.TaskStatusRunning {
			t.cancelled.Store(true)
			running++
		}
	}

	s.cond.Broadcast()
	s.mu.Unlock()

	s.baseCancel()
	s.logger.Infof("Scheduler closing, %d tasks still running", running)

	drained := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(drained)
	}()

	var err error
	select {
	case <-drained:
	case <-time.After(s.shutdownTimeout):
		err = fmt.Errorf("workers still busy after %s: %w", s.shutdownTimeout, model.ErrTimeout)
	case <-ctx.Done():
		err = ctx.Err()
	}

	s.mu.Lock()
	s.tasks = map[model.TaskID]*task{}
	s.mu.Unlock()

	return err
}

// worker pops queued tasks and executes them until the scheduler closes.
func (s *Scheduler) worker() {
	defer s.wg.Done()

	for {
		s.mu.Lock()
		for len(s.queue) == 0 && !s.closed {
			s.cond.Wait()
		}
		if s.closed && len(s.queue) == 0 {
			s.mu.Unlock()
			return
		}

		t := s.queue[0]
		s.queue = s.queue[1:]

		if t.status != model.TaskStatusQueued {
			// Cancelled while waiting, nothing to run.
			s.mu.Unlock()
			continue
		}

		ctx, cancel := context.WithCancel(s.baseCtx)
		t.cancel = cancel
		t.status = model.TaskStatusRunning
		now := time.Now()
		t.startedAt = &now
		t.emit(model.Notification{
			TaskID: t.id,
			Kind:   model.NotificationStatus,
			Status: model.TaskStatusRunning,
			At:     now,
		})
		s.mu.Unlock()

		result, err := s.execute(ctx, t)
		cancel()

		status := model.TaskStatusCompleted
		switch {
		case t.cancelled.Load():
			status = model.TaskStatusCancelled
			if err == nil {
				err = context.Canceled
			}
		case err != nil:
			status = model.TaskStatusFailed
		}

		s.mu.Lock()
		s.finishLocked(t, result, err, status)
		s.mu.Unlock()
	}
}

// execute runs the task's work, containing panics at the task boundary so
// a misbehaving task can never kill a worker.
func (s *Scheduler) execute(ctx context.Context, t *task) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("task panicked: %v", r)
			s.logger.Errorf("Task %s (%s) panicked: %v", t.id, t.name, r)
		}
	}()

	return t.work(ctx, &TaskContext{t: t})
}

// finishLocked moves a task to its terminal state, emits the single result
// event and closes the stream. Callers hold s.mu.
func (s *Scheduler) finishLocked(t *task, result any, err error, status model.TaskStatus) {
	if t.status.Terminal() {
		return
	}

	now := time.Now()
	t.status = status
	t.finishedAt = &now
	t.err = err
	if status == model.TaskStatusCompleted {
		t.result = result
	}

	n := model.Notification{
		TaskID: t.id,
		Kind:   model.NotificationResult,
		Status: status,
		At:     now,
	}
	if t.err != nil {
		n.Error = t.err.Error()
	}
	t.emit(n)
	close(t.events)
	close(t.done)

	s.logger.Debugf("Task %s (%s) finished as %s", t.id, t.name, status)
}
