package status

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/scribahq/scriba/internal/log"
	"github.com/scribahq/scriba/internal/model"
	"github.com/scribahq/scriba/internal/storage"
)

// ServiceConfig is the configuration for the status service.
type ServiceConfig struct {
	Repository storage.Repository
	Logger     log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Repository == nil {
		return fmt.Errorf("repository is required")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}

	return nil
}

// Service retrieves detailed project status.
type Service struct {
	repo   storage.Repository
	logger log.Logger
}

// NewService creates a new status service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		repo:   cfg.Repository,
		logger: cfg.Logger,
	}, nil
}

// Request represents the status request parameters.
type Request struct {
	// NameOrID is the project name or ID to query.
	NameOrID string
}

// Run assembles the status report of a project by name or ID.
// It tries name lookup first, then ID lookup if the input looks like a UUID.
func (s *Service) Run(ctx context.Context, req Request) (*model.StatusReport, error) {
	s.logger.Debugf("getting status for project: %s", req.NameOrID)

	project, err := s.lookupProject(ctx, req.NameOrID)
	if err != nil {
		return nil, err
	}

	results, err := s.repo.ListStepResults(ctx, project.ID)
	if err != nil {
		return nil, fmt.Errorf("could not list step results: %w", err)
	}

	cp, err := s.repo.GetCheckpoint(ctx, project.ID)
	if err != nil {
		return nil, fmt.Errorf("could not load checkpoint: %w", err)
	}

	sessions, err := s.repo.ListSessions(ctx, project.ID)
	if err != nil {
		return nil, fmt.Errorf("could not list sessions: %w", err)
	}

	units, usageTime, err := s.repo.SummarizeUsage(ctx, project.ID)
	if err != nil {
		return nil, fmt.Errorf("could not summarize usage: %w", err)
	}

	return &model.StatusReport{
		Project:     *project,
		StepResults: results,
		Checkpoint:  cp,
		Sessions:    sessions,
		UsageUnits:  units,
		UsageTime:   usageTime,
	}, nil
}

func (s *Service) lookupProject(ctx context.Context, nameOrID string) (*model.Project, error) {
	// Names are the common case, IDs the fallback.
	project, err := s.repo.GetProjectByName(ctx, nameOrID)
	if err == nil {
		return project, nil
	}

	// If not found by name and the input looks like a project ID, try
	// lookup by ID.
	if errors.Is(err, model.ErrNotFound) && looksLikeUUID(nameOrID) {
		s.logger.Debugf("name lookup failed, trying ID lookup")
		project, err = s.repo.GetProject(ctx, nameOrID)
		if err == nil {
			return project, nil
		}
	}

	if errors.Is(err, model.ErrNotFound) {
		return nil, fmt.Errorf("project not found: %s: %w", nameOrID, model.ErrNotFound)
	}

	return nil, fmt.Errorf("could not get project: %w", err)
}

// looksLikeUUID checks if a string parses as a UUID.
func looksLikeUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
