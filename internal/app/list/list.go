package list

import (
	"context"
	"fmt"

	"github.com/scribahq/scriba/internal/log"
	"github.com/scribahq/scriba/internal/model"
	"github.com/scribahq/scriba/internal/storage"
)

// ServiceConfig is the configuration for the list service.
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

// Service lists projects with optional filtering.
type Service struct {
	repo   storage.Repository
	logger log.Logger
}

// NewService creates a new list service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		repo:   cfg.Repository,
		logger: cfg.Logger,
	}, nil
}

// Request represents the list request parameters.
type Request struct {
	// StatusFilter is an optional filter to only show projects with this status.
	StatusFilter *model.ProjectStatus
}

// Run lists all projects, optionally filtered by status.
func (s *Service) Run(ctx context.Context, req Request) ([]model.Project, error) {
	s.logger.Debugf("listing projects with filter: %v", req.StatusFilter)

	// Get all projects from repository
	projects, err := s.repo.ListProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not list projects: %w", err)
	}

	// Optional status filter.
	if req.StatusFilter != nil {
		filtered := make([]model.Project, 0, len(projects))
		for _, p := range projects {
			if p.Status == *req.StatusFilter {
				filtered = append(filtered, p)
			}
		}
		projects = filtered
	}

	s.logger.Debugf("found %d projects", len(projects))
	return projects, nil
}
