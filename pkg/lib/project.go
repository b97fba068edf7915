package lib

import (
	"context"
	"fmt"

	"github.com/scribahq/scriba/internal/app/list"
	"github.com/scribahq/scriba/internal/app/remove"
	"github.com/scribahq/scriba/internal/app/status"
	"github.com/scribahq/scriba/internal/model"
)

// ListProjectsOpts configures project listing.
type ListProjectsOpts struct {
	// Status keeps only projects in that state. Empty lists all.
	Status ProjectStatus
}

// ListProjects returns all known projects sorted by creation time,
// newest first. Pass nil opts for no filtering.
func (c *Client) ListProjects(ctx context.Context, opts *ListProjectsOpts) ([]Project, error) {
	svc, err := list.NewService(list.ServiceConfig{
		Repository: c.repo,
		Logger:     c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}

	req := list.Request{}
	if opts != nil && opts.Status != "" {
		filter := model.ProjectStatus(opts.Status)
		req.StatusFilter = &filter
	}

	projects, err := svc.Run(ctx, req)
	if err != nil {
		return nil, mapError(err)
	}

	return fromInternalProjectList(projects), nil
}

// Status returns everything known about a project's generation state:
// the project itself, its persisted step results, resume checkpoint,
// recorded runs and aggregate usage. Accepts a project name or ID.
func (c *Client) Status(ctx context.Context, nameOrID string) (*StatusReport, error) {
	svc, err := status.NewService(status.ServiceConfig{
		Repository: c.repo,
		Logger:     c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}

	report, err := svc.Run(ctx, status.Request{NameOrID: nameOrID})
	if err != nil {
		return nil, mapError(err)
	}

	result := fromInternalStatusReport(*report)
	return &result, nil
}

// RemoveProjectOpts configures project removal.
type RemoveProjectOpts struct {
	// Force removes the project even while a run is generating it.
	Force bool
}

// RemoveProject deletes a project and everything stored for it: step
// results, checkpoints, usage records, cached content and sessions.
// Removing a generating project without Force returns [ErrNotValid].
// Pass nil opts for defaults.
func (c *Client) RemoveProject(ctx context.Context, nameOrID string, opts *RemoveProjectOpts) (*Project, error) {
	svc, err := remove.NewService(remove.ServiceConfig{
		Repository: c.repo,
		Logger:     c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}

	force := false
	if opts != nil {
		force = opts.Force
	}

	project, err := svc.Run(ctx, remove.Request{NameOrID: nameOrID, Force: force})
	if err != nil {
		return nil, mapError(err)
	}

	result := fromInternalProject(*project)
	return &result, nil
}
