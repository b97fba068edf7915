package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/scribahq/scriba/internal/dbpool"
	"github.com/scribahq/scriba/internal/log"
	"github.com/scribahq/scriba/internal/model"
)

// RepositoryConfig is the configuration for the SQLite repository.
type RepositoryConfig struct {
	Pool   *dbpool.Pool
	Logger log.Logger
}

func (c *RepositoryConfig) defaults() error {
	if c.Pool == nil {
		return fmt.Errorf("pool is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.SQLite"})
	return nil
}

// Repository is a SQLite implementation of storage.Repository. Every
// operation checks a connection out of the pool and returns it when done.
type Repository struct {
	pool   *dbpool.Pool
	logger log.Logger
}

// NewRepository creates a new SQLite repository on top of a connection pool.
// The schema must already be migrated; see the migrations package.
func NewRepository(cfg RepositoryConfig) (*Repository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Repository{pool: cfg.Pool, logger: cfg.Logger}, nil
}

// CreateProject creates a new project.
func (r *Repository) CreateProject(ctx context.Context, p model.Project) error {
	if err := p.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO projects (id, name, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`

	err := r.pool.WithConn(ctx, func(ctx context.Context, c *dbpool.Conn) error {
		_, err := c.ExecContext(ctx, query, p.ID, p.Name, p.Status, p.CreatedAt.Unix(), p.UpdatedAt.Unix())
		return err
	})
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: projects.") {
			return fmt.Errorf("project already exists: %w", model.ErrAlreadyExists)
		}
		return fmt.Errorf("could not insert project: %w", err)
	}

	r.logger.Debugf("Created project in repository: %s", p.ID)
	return nil
}

// GetProject retrieves a project by ID.
func (r *Repository) GetProject(ctx context.Context, id string) (*model.Project, error) {
	query := `
		SELECT id, name, status, created_at, updated_at
		FROM projects
		WHERE id = ?
	`

	p, err := r.scanOneProject(ctx, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("project %s: %w", id, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not query project: %w", err)
	}

	return p, nil
}

// GetProjectByName retrieves a project by name.
func (r *Repository) GetProjectByName(ctx context.Context, name string) (*model.Project, error) {
	query := `
		SELECT id, name, status, created_at, updated_at
		FROM projects
		WHERE name = ?
	`

	p, err := r.scanOneProject(ctx, query, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("project with name %s: %w", name, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not query project: %w", err)
	}

	return p, nil
}

// ListProjects returns all projects, newest first.
func (r *Repository) ListProjects(ctx context.Context) ([]model.Project, error) {
	query := `
		SELECT id, name, status, created_at, updated_at
		FROM projects
		ORDER BY created_at DESC
	`

	var projects []model.Project
	err := r.pool.WithConn(ctx, func(ctx context.Context, c *dbpool.Conn) error {
		rows, err := c.QueryContext(ctx, query)
		if err != nil {
			return fmt.Errorf("could not query projects: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			p, err := r.scanProjectRow(rows)
			if err != nil {
				return fmt.Errorf("could not scan row: %w", err)
			}
			projects = append(projects, p)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	return projects, nil
}

// UpdateProjectStatus updates a project's status and refreshes updated_at.
func (r *Repository) UpdateProjectStatus(ctx context.Context, id string, status model.ProjectStatus) error {
	query := `
		UPDATE projects
		SET status = ?, updated_at = ?
		WHERE id = ?
	`

	err := r.pool.WithConn(ctx, func(ctx context.Context, c *dbpool.Conn) error {
		result, err := c.ExecContext(ctx, query, status, time.Now().Unix(), id)
		if err != nil {
			return fmt.Errorf("could not update project: %w", err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("could not get rows affected: %w", err)
		}
		if rows == 0 {
			return fmt.Errorf("project %s: %w", id, model.ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.logger.Debugf("Updated project %s status to %s", id, status)
	return nil
}

// DeleteProject deletes a project. Step results, checkpoints, usage, cache
// and sessions cascade with it.
func (r *Repository) DeleteProject(ctx context.Context, id string) error {
	err := r.pool.WithConn(ctx, func(ctx context.Context, c *dbpool.Conn) error {
		result, err := c.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("could not delete project: %w", err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("could not get rows affected: %w", err)
		}
		if rows == 0 {
			return fmt.Errorf("project %s: %w", id, model.ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.logger.Debugf("Deleted project from repository: %s", id)
	return nil
}

func (r *Repository) scanOneProject(ctx context.Context, query string, arg any) (*model.Project, error) {
	var p model.Project
	err := r.pool.WithConn(ctx, func(ctx context.Context, c *dbpool.Conn) error {
		var err error
		p, err = r.scanProjectRow(c.QueryRowContext(ctx, query, arg))
		return err
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func (r *Repository) scanProjectRow(s scanner) (model.Project, error) {
	var p model.Project
	var createdAt, updatedAt int64

	err := s.Scan(&p.ID, &p.Name, &p.Status, &createdAt, &updatedAt)
	if err != nil {
		return model.Project{}, err
	}

	p.CreatedAt = timeFromUnix(createdAt)
	p.UpdatedAt = timeFromUnix(updatedAt)

	return p, nil
}

func timeFromUnix(unix int64) time.Time { return time.Unix(unix, 0).UTC() }
