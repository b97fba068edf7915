// Package workflow runs an ordered sequence of validated steps with
// durable results and checkpoint-based resumption.
//
// Each step persists its own outcome; a failed step halts the sequence
// without crashing the engine. Long steps advance a checkpoint after
// every completed unit of work, so an interrupted run resumes where it
// stopped having lost at most the unit that was in flight.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/scribahq/scriba/internal/generation"
	"github.com/scribahq/scriba/internal/log"
	"github.com/scribahq/scriba/internal/model"
	"github.com/scribahq/scriba/internal/storage"
)

// Step is one stage of a workflow.
type Step interface {
	// Name identifies the step in persisted results and logs.
	Name() string
	// Validate checks the step can run: storage is reachable and, for
	// steps after the first, the previous step persisted a successful
	// result.
	Validate(ctx context.Context, rt *Runtime) error
	// Execute does the work and returns a free-form payload persisted
	// with the step result.
	Execute(ctx context.Context, rt *Runtime) (map[string]any, error)
}

// StepFunc is a convenience adapter to use ordinary functions as steps.
type StepFunc struct {
	StepName   string
	ValidateFn func(ctx context.Context, rt *Runtime) error
	ExecuteFn  func(ctx context.Context, rt *Runtime) (map[string]any, error)
}

// Name satisfies Step.
func (f StepFunc) Name() string { return f.StepName }

// Validate satisfies Step.
func (f StepFunc) Validate(ctx context.Context, rt *Runtime) error {
	if f.ValidateFn == nil {
		return nil
	}
	return f.ValidateFn(ctx, rt)
}

// Execute satisfies Step.
func (f StepFunc) Execute(ctx context.Context, rt *Runtime) (map[string]any, error) {
	if f.ExecuteFn == nil {
		return nil, nil
	}
	return f.ExecuteFn(ctx, rt)
}

// ProgressFunc receives unit completion updates from running steps.
type ProgressFunc func(completed int, label string)

// RuntimeConfig is the configuration for a workflow runtime.
type RuntimeConfig struct {
	Project   model.Project
	Plan      model.Plan
	Repo      storage.Repository
	Generator generation.Generator
	// Progress is called after every completed unit of work. Optional.
	Progress ProgressFunc
	Logger   log.Logger
}

func (c *RuntimeConfig) defaults() error {
	if c.Project.ID == "" {
		return fmt.Errorf("project is required")
	}
	if c.Repo == nil {
		return fmt.Errorf("repository is required")
	}
	if c.Generator == nil {
		return fmt.Errorf("generator is required")
	}
	if c.Progress == nil {
		c.Progress = func(int, string) {}
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "workflow.Runtime", "project": c.Project.ID})
	return nil
}

// Runtime carries everything steps need: the project, the plan, storage,
// the generator, progress reporting and the resume cursor. One runtime
// belongs to one run and is used from that run's goroutine only.
type Runtime struct {
	Project   model.Project
	Plan      model.Plan
	Repo      storage.Repository
	Generator generation.Generator
	Logger    log.Logger

	progress   ProgressFunc
	resume     *model.Checkpoint
	stepNumber int
	unitsDone  int
}

// NewRuntime creates a runtime for one workflow run.
func NewRuntime(cfg RuntimeConfig) (*Runtime, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Runtime{
		Project:   cfg.Project,
		Plan:      cfg.Plan,
		Repo:      cfg.Repo,
		Generator: cfg.Generator,
		Logger:    cfg.Logger,
		progress:  cfg.Progress,
	}, nil
}

// StepNumber returns the 1-based number of the step currently running.
func (rt *Runtime) StepNumber() int { return rt.stepNumber }

// UnitsDone returns how many units of work this run completed.
func (rt *Runtime) UnitsDone() int { return rt.unitsDone }

// UnitDone records one completed unit of work and reports progress.
// completed counts units finished across every run of this workflow, so
// resumed runs continue the progress bar where the last run stopped.
func (rt *Runtime) UnitDone(completed int, label string) {
	rt.unitsDone++
	rt.progress(completed, label)
}

// ResumeCursor returns the chapter and section to start from when the
// loaded checkpoint targets the given step. Runs without a usable
// checkpoint, and steps other than the checkpointed one, start at (1, 1).
func (rt *Runtime) ResumeCursor(stepNumber int) (chapter, section int) {
	if rt.resume == nil || rt.resume.Step != stepNumber {
		return 1, 1
	}
	return rt.resume.Chapter, rt.resume.Section
}

// WriteCheckpoint durably records that work up to, but not including,
// the given chapter and section is done. Steps call it synchronously
// after each unit, before starting the next one.
func (rt *Runtime) WriteCheckpoint(ctx context.Context, chapter, section int) error {
	cp := model.Checkpoint{
		Version: model.CheckpointVersion,
		Step:    rt.stepNumber,
		Chapter: chapter,
		Section: section,
	}
	if err := rt.Repo.SaveCheckpoint(ctx, rt.Project.ID, cp); err != nil {
		return fmt.Errorf("could not write checkpoint: %w", err)
	}
	return nil
}

// StorageReachable verifies the runtime can talk to storage by fetching
// its own project row.
func (rt *Runtime) StorageReachable(ctx context.Context) error {
	if _, err := rt.Repo.GetProject(ctx, rt.Project.ID); err != nil {
		return fmt.Errorf("storage not reachable: %w", err)
	}
	return nil
}

// PreviousStepSucceeded verifies the step before the current one
// persisted a successful result. The first step trivially passes.
func (rt *Runtime) PreviousStepSucceeded(ctx context.Context) error {
	if rt.stepNumber <= 1 {
		return nil
	}

	prev, err := rt.Repo.GetStepResult(ctx, rt.Project.ID, rt.stepNumber-1)
	if err != nil {
		return fmt.Errorf("previous step result missing: %w", err)
	}
	if !prev.Success {
		return fmt.Errorf("previous step %q did not succeed: %w", prev.StepName, model.ErrNotValid)
	}
	return nil
}

// SequenceConfig is the configuration for a step sequence.
type SequenceConfig struct {
	Steps  []Step
	Logger log.Logger
}

func (c *SequenceConfig) defaults() error {
	if len(c.Steps) == 0 {
		return fmt.Errorf("at least one step is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "workflow.Sequence"})
	return nil
}

// Sequence runs steps strictly in order.
type Sequence struct {
	steps  []Step
	logger log.Logger
}

// NewSequence creates a new sequence.
func NewSequence(cfg SequenceConfig) (*Sequence, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Sequence{steps: cfg.Steps, logger: cfg.Logger}, nil
}

// Run executes the sequence against the runtime. The checkpoint is
// loaded once up front: a usable one skips straight to the step it
// names, anything else starts from step one. Each step's result is
// persisted whether it succeeded or not; a failed step halts the run
// with ErrStepFailed. Full success clears the checkpoint.
func (s *Sequence) Run(ctx context.Context, rt *Runtime) error {
	start := 0
	cp, err := rt.Repo.GetCheckpoint(ctx, rt.Project.ID)
	if err != nil {
		return fmt.Errorf("could not load checkpoint: %w", err)
	}
	if cp != nil {
		if cp.Step >= 1 && cp.Step <= len(s.steps) {
			start = cp.Step - 1
			rt.resume = cp
			s.logger.Infof("Resuming project %s from step %d (chapter %d, section %d)",
				rt.Project.ID, cp.Step, cp.Chapter, cp.Section)
		} else {
			s.logger.Warningf("Checkpoint step %d is outside this workflow, starting over", cp.Step)
		}
	}

	for i := start; i < len(s.steps); i++ {
		step := s.steps[i]
		if err := ctx.Err(); err != nil {
			return err
		}

		rt.stepNumber = i + 1
		res := model.StepResult{
			ProjectID:  rt.Project.ID,
			StepNumber: i + 1,
			StepName:   step.Name(),
			StartedAt:  time.Now(),
		}

		s.logger.Infof("Running step %d/%d: %s", i+1, len(s.steps), step.Name())
		payload, runErr := s.runStep(ctx, step, rt)

		res.FinishedAt = time.Now()
		res.Payload = payload
		if runErr != nil {
			res.Success = false
			res.Errors = []string{runErr.Error()}
		} else {
			res.Success = true
		}

		if err := rt.Repo.SaveStepResult(ctx, res); err != nil {
			s.logger.Errorf("Could not persist step %d result: %v", i+1, err)
			if runErr == nil {
				return fmt.Errorf("could not persist step %d result: %w", i+1, err)
			}
		}

		if runErr != nil {
			if errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded) {
				return fmt.Errorf("step %d %q interrupted: %w", i+1, step.Name(), runErr)
			}
			return fmt.Errorf("step %d %q: %v: %w", i+1, step.Name(), runErr, model.ErrStepFailed)
		}
	}

	if err := rt.Repo.ClearCheckpoint(ctx, rt.Project.ID); err != nil {
		return fmt.Errorf("could not clear checkpoint: %w", err)
	}

	s.logger.Infof("Workflow for project %s completed all %d steps", rt.Project.ID, len(s.steps))

	return nil
}

// runStep validates and executes one step, containing panics so a broken
// step fails like any other error.
func (s *Sequence) runStep(ctx context.Context, step Step, rt *Runtime) (payload map[string]any, err error) {
	defer func() {
		if r := recover(); r != nil {
			payload = nil
			err = fmt.Errorf("step panicked: %v", r)
			s.logger.Errorf("Step %q panicked: %v", step.Name(), r)
		}
	}()

	if err := step.Validate(ctx, rt); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return step.Execute(ctx, rt)
}
