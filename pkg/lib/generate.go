package lib

import (
	"context"
	"fmt"
	"time"

	"github.com/scribahq/scriba/internal/app/generate"
	"github.com/scribahq/scriba/internal/model"
)

// GenerateOpts configures one generation run.
type GenerateOpts struct {
	// ProjectName identifies the project. It is created on first use.
	ProjectName string
	// Plan is the book's shape: title, style and chapters.
	Plan Plan
}

// Run is the handle of an accepted generation run. The run executes in
// the background; follow it with [Client.Events] or [Client.Wait].
type Run struct {
	// Project is the project the run drafts.
	Project Project
	// TaskID identifies the run's background task.
	TaskID TaskID
}

// Generate starts drafting a book from scratch in the background. Any
// checkpoint left by an earlier interrupted run is discarded first.
//
// It returns as soon as the run is queued. Use [Client.Events] to
// stream its notifications or [Client.Wait] to block until it ends.
func (c *Client) Generate(ctx context.Context, opts GenerateOpts) (*Run, error) {
	return c.startRun(ctx, opts, false)
}

// Resume continues an interrupted run from its stored checkpoint.
// Completed steps and sections are skipped; when no usable checkpoint
// exists the run starts from the beginning.
func (c *Client) Resume(ctx context.Context, opts GenerateOpts) (*Run, error) {
	return c.startRun(ctx, opts, true)
}

func (c *Client) startRun(ctx context.Context, opts GenerateOpts, resume bool) (*Run, error) {
	svc, err := c.newGenerateService()
	if err != nil {
		return nil, err
	}

	started, err := svc.Run(ctx, generate.Request{
		ProjectName: opts.ProjectName,
		Plan:        toInternalPlan(opts.Plan),
		Resume:      resume,
	})
	if err != nil {
		return nil, mapError(err)
	}

	return &Run{
		Project: fromInternalProject(started.Project),
		TaskID:  TaskID(started.TaskID),
	}, nil
}

// Events returns the run's ordered notification stream. The channel
// closes right after the terminal result event. The second return is
// false when the task is unknown, which also happens after its result
// was collected with [Client.Result] or [Client.Wait].
func (c *Client) Events(taskID TaskID) (<-chan Event, bool) {
	ch, ok := c.scheduler.Events(model.TaskID(taskID))
	if !ok {
		return nil, false
	}

	out := make(chan Event, cap(ch))
	go func() {
		defer close(out)
		for n := range ch {
			out <- fromInternalEvent(n)
		}
	}()

	return out, true
}

// Wait blocks until the run reaches a terminal state and returns its
// report. A timeout of zero waits indefinitely; when the timeout or ctx
// expires before the run ends it returns [ErrTimeout] and the run keeps
// going in the background.
func (c *Client) Wait(ctx context.Context, taskID TaskID, timeout time.Duration) (*RunReport, error) {
	err := c.scheduler.Wait(ctx, model.TaskID(taskID), timeout)
	if err != nil {
		return nil, mapError(err)
	}

	return c.Result(taskID)
}

// Result collects the report of a finished run. The report is dropped
// from the client's tracking once read; a second call returns
// [ErrNotFound]. Running tasks return [ErrNotReady].
func (c *Client) Result(taskID TaskID) (*RunReport, error) {
	v, err := c.scheduler.Result(model.TaskID(taskID))
	if err != nil {
		return nil, mapError(err)
	}

	report, ok := v.(*generate.RunReport)
	if !ok {
		return nil, fmt.Errorf("unexpected result type %T: %w", v, ErrNotValid)
	}

	return &RunReport{
		ProjectID:  report.ProjectID,
		Title:      report.Title,
		UnitsDone:  report.UnitsDone,
		TotalUnits: report.TotalUnits,
		UsageUnits: report.UsageUnits,
		Duration:   report.Duration,
	}, nil
}

// Cancel requests cooperative cancellation of a run. It returns true
// when the request was accepted; the run still finishes its current
// section and checkpoints before stopping, so follow the event stream
// for the actual end. Terminal and unknown tasks return false.
func (c *Client) Cancel(ctx context.Context, projectID string, taskID TaskID) (bool, error) {
	svc, err := c.newGenerateService()
	if err != nil {
		return false, err
	}

	return svc.Cancel(ctx, projectID, model.TaskID(taskID)), nil
}

// TaskStatus reports the run's current lifecycle state. Unknown IDs
// report [TaskStatusUnknown].
func (c *Client) TaskStatus(taskID TaskID) TaskStatus {
	return TaskStatus(c.scheduler.Status(model.TaskID(taskID)))
}

func (c *Client) newGenerateService() (*generate.Service, error) {
	svc, err := generate.NewService(generate.ServiceConfig{
		Repository: c.repo,
		Generator:  c.generator,
		Scheduler:  c.scheduler,
		CacheTTL:   c.cacheTTL,
		Logger:     c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}
	return svc, nil
}
