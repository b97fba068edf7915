package remove

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/scribahq/scriba/internal/log"
	"github.com/scribahq/scriba/internal/model"
	"github.com/scribahq/scriba/internal/storage"
)

// ServiceConfig is the configuration for the remove service.
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

// Service removes a project and everything stored for it.
type Service struct {
	repo   storage.Repository
	logger log.Logger
}

// NewService creates a new remove service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		repo:   cfg.Repository,
		logger: cfg.Logger,
	}, nil
}

// Request represents the remove request parameters.
type Request struct {
	// NameOrID is the project name or ID to remove.
	NameOrID string
	// Force indicates whether to remove a project that is still generating.
	Force bool
}

// Run removes a project by name or ID, deleting its step results,
// checkpoints, usage records, cache entries and sessions with it.
// If the project is generating and Force is false, it returns an error.
func (s *Service) Run(ctx context.Context, req Request) (*model.Project, error) {
	s.logger.Debugf("removing project: %s (force: %v)", req.NameOrID, req.Force)

	// Lookup project by name first, then by ID if it looks like a UUID.
	project, err := s.repo.GetProjectByName(ctx, req.NameOrID)
	if errors.Is(err, model.ErrNotFound) && looksLikeUUID(req.NameOrID) {
		project, err = s.repo.GetProject(ctx, req.NameOrID)
	}
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, fmt.Errorf("project not found: %s: %w", req.NameOrID, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not get project: %w", err)
	}

	// Check if a generation run could still be using this project.
	if project.Status == model.ProjectStatusGenerating && !req.Force {
		return nil, fmt.Errorf("cannot remove generating project without --force: %w", model.ErrNotValid)
	}

	// Delete from repository, cascading all stored data.
	if err := s.repo.DeleteProject(ctx, project.ID); err != nil {
		return nil, fmt.Errorf("could not delete project: %w", err)
	}

	s.logger.Infof("removed project: %s (ID: %s)", project.Name, project.ID)
	return project, nil
}

// looksLikeUUID checks if a string parses as a UUID.
func looksLikeUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
