// Package generate starts background book generation runs: it owns the
// project lifecycle around a run and wires the workflow to the task
// scheduler and progress tracking.
package generate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/scribahq/scriba/internal/generation"
	"github.com/scribahq/scriba/internal/log"
	"github.com/scribahq/scriba/internal/model"
	"github.com/scribahq/scriba/internal/progress"
	"github.com/scribahq/scriba/internal/scheduler"
	"github.com/scribahq/scriba/internal/storage"
	"github.com/scribahq/scriba/internal/workflow"
	"github.com/scribahq/scriba/internal/workflow/steps"
)

// ServiceConfig is the configuration for the generate service.
type ServiceConfig struct {
	Repository storage.Repository
	Generator  generation.Generator
	Scheduler  *scheduler.Scheduler
	// CacheTTL bounds how long generated content is reused across runs.
	CacheTTL time.Duration
	Logger   log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Repository == nil {
		return fmt.Errorf("repository is required")
	}
	if c.Generator == nil {
		return fmt.Errorf("generator is required")
	}
	if c.Scheduler == nil {
		return fmt.Errorf("scheduler is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Generate"})
	return nil
}

// Service handles generation run business logic.
type Service struct {
	repo      storage.Repository
	generator generation.Generator
	scheduler *scheduler.Scheduler
	cacheTTL  time.Duration
	logger    log.Logger
}

// NewService creates a new generate service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		repo:      cfg.Repository,
		generator: cfg.Generator,
		scheduler: cfg.Scheduler,
		cacheTTL:  cfg.CacheTTL,
		logger:    cfg.Logger,
	}, nil
}

// Request are the parameters to start one generation run.
type Request struct {
	// ProjectName identifies the project. It is created on first use.
	ProjectName string
	Plan        model.Plan
	// Resume keeps the stored checkpoint so drafting continues where an
	// earlier run stopped. Without it the book starts over.
	Resume bool
}

// StartedRun identifies an accepted generation run.
type StartedRun struct {
	Project model.Project
	TaskID  model.TaskID
}

// RunReport is the terminal result value of a finished generation task.
type RunReport struct {
	ProjectID  string
	Title      string
	UnitsDone  int
	TotalUnits int
	UsageUnits int
	Duration   time.Duration
}

// Run validates the request and submits the book workflow as a
// background task. It returns as soon as the task is queued; callers
// follow the run through the scheduler's notifications.
func (s *Service) Run(ctx context.Context, req Request) (*StartedRun, error) {
	// 1. Validate request
	if req.ProjectName == "" {
		return nil, fmt.Errorf("project name is required: %w", model.ErrNotValid)
	}
	if err := req.Plan.Validate(); err != nil {
		return nil, fmt.Errorf("invalid plan: %w", err)
	}

	// 2. Load or create the project
	project, err := s.ensureProject(ctx, req.ProjectName)
	if err != nil {
		return nil, err
	}

	// 3. A fresh run starts the book over, so any leftover checkpoint goes
	if !req.Resume {
		if err := s.repo.ClearCheckpoint(ctx, project.ID); err != nil {
			return nil, fmt.Errorf("could not clear previous checkpoint: %w", err)
		}
	}

	// 4. Mark the project generating and submit the workflow
	if err := s.repo.UpdateProjectStatus(ctx, project.ID, model.ProjectStatusGenerating); err != nil {
		return nil, fmt.Errorf("could not mark project generating: %w", err)
	}
	project.Status = model.ProjectStatusGenerating

	taskID, err := s.scheduler.Submit(ctx, "generate-book/"+project.Name, s.bookWork(*project, req.Plan))
	if err != nil {
		return nil, fmt.Errorf("could not submit generation task: %w", err)
	}

	s.logger.Infof("Submitted generation for project %s (task %s)", project.Name, taskID)

	return &StartedRun{Project: *project, TaskID: taskID}, nil
}

// Cancel requests cooperative cancellation of a generation task. A task
// cancelled before it ever ran leaves no session behind, so the project
// is marked failed here rather than by the run's own cleanup.
func (s *Service) Cancel(ctx context.Context, projectID string, taskID model.TaskID) bool {
	if !s.scheduler.Cancel(taskID) {
		return false
	}

	project, err := s.repo.GetProject(ctx, projectID)
	if err == nil && project.Status == model.ProjectStatusGenerating {
		if err := s.repo.UpdateProjectStatus(ctx, projectID, model.ProjectStatusFailed); err != nil {
			s.logger.Warningf("Could not mark project %s failed after cancel: %v", projectID, err)
		}
	}

	s.logger.Infof("Requested cancellation of task %s", taskID)

	return true
}

func (s *Service) ensureProject(ctx context.Context, name string) (*model.Project, error) {
	project, err := s.repo.GetProjectByName(ctx, name)
	if err == nil {
		return project, nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		return nil, fmt.Errorf("could not look up project: %w", err)
	}

	now := time.Now().UTC()
	project = &model.Project{
		ID:        uuid.New().String(),
		Name:      name,
		Status:    model.ProjectStatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateProject(ctx, *project); err != nil {
		return nil, fmt.Errorf("could not create project: %w", err)
	}

	s.logger.Infof("Created project %s (%s)", name, project.ID)

	return project, nil
}

// bookWork builds the work function that drafts the whole book. It runs
// on a scheduler worker under the task's context.
func (s *Service) bookWork(project model.Project, plan model.Plan) scheduler.Work {
	return func(ctx context.Context, t *scheduler.TaskContext) (any, error) {
		start := time.Now()
		total := steps.TotalUnits(plan)

		tracker, err := progress.NewTracker(progress.TrackerConfig{
			Notifier: func(r model.ProgressReport) {
				label := r.Label
				if r.ETA != "" && r.ETA != "unknown" {
					label = fmt.Sprintf("%s (eta %s)", r.Label, r.ETA)
				}
				t.Progress(r.Percent, label)
			},
			Logger: s.logger,
		})
		if err != nil {
			return nil, fmt.Errorf("could not create progress tracker: %w", err)
		}

		rt, err := workflow.NewRuntime(workflow.RuntimeConfig{
			Project:   project,
			Plan:      plan,
			Repo:      s.repo,
			Generator: s.generator,
			Progress:  func(completed int, label string) { tracker.Update(completed, label) },
			Logger:    s.logger,
		})
		if err != nil {
			return nil, fmt.Errorf("could not build workflow runtime: %w", err)
		}

		seq, err := workflow.NewSequence(workflow.SequenceConfig{
			Steps:  steps.Book(steps.Config{CacheTTL: s.cacheTTL}),
			Logger: s.logger,
		})
		if err != nil {
			return nil, fmt.Errorf("could not build workflow: %w", err)
		}

		sessionID := uuid.New().String()
		err = s.repo.StartSession(ctx, model.Session{
			ID:        sessionID,
			ProjectID: project.ID,
			TaskID:    t.ID(),
			StartedAt: start,
		})
		if err != nil {
			s.logger.Warningf("Could not record session start: %v", err)
		}

		t.Logf(model.LogLevelInfo, "Drafting %q: %d chapters, %d sections",
			plan.Title, len(plan.Chapters), plan.TotalSections())

		tracker.Start(total)
		runErr := seq.Run(ctx, rt)

		// Bookkeeping has to land even when the run ended because ctx
		// was cancelled.
		cleanupCtx := context.WithoutCancel(ctx)

		if err := s.repo.EndSession(cleanupCtx, sessionID, time.Now(), rt.UnitsDone()); err != nil {
			s.logger.Warningf("Could not record session end: %v", err)
		}

		if runErr != nil {
			if err := s.repo.UpdateProjectStatus(cleanupCtx, project.ID, model.ProjectStatusFailed); err != nil {
				s.logger.Errorf("Could not mark project %s failed: %v", project.ID, err)
			}
			return nil, runErr
		}

		tracker.Complete()

		usageUnits, _, err := s.repo.SummarizeUsage(ctx, project.ID)
		if err != nil {
			s.logger.Warningf("Could not summarize usage: %v", err)
		}

		t.Logf(model.LogLevelInfo, "Finished %q: %d units in %s",
			plan.Title, rt.UnitsDone(), time.Since(start).Round(time.Millisecond))

		return &RunReport{
			ProjectID:  project.ID,
			Title:      plan.Title,
			UnitsDone:  rt.UnitsDone(),
			TotalUnits: total,
			UsageUnits: usageUnits,
			Duration:   time.Since(start),
		}, nil
	}
}
