package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/scribahq/scriba/internal/dbpool"
	"github.com/scribahq/scriba/internal/model"
)

// AddUsage appends a usage audit entry.
func (r *Repository) AddUsage(ctx context.Context, e model.UsageEntry) error {
	if e.ProjectID == "" {
		return fmt.Errorf("project id is required: %w", model.ErrNotValid)
	}
	if e.Operation == "" {
		return fmt.Errorf("operation is required: %w", model.ErrNotValid)
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO usage_log (project_id, operation, detail, units, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	err := r.pool.WithConn(ctx, func(ctx context.Context, c *dbpool.Conn) error {
		_, err := c.ExecContext(
			ctx,
			query,
			e.ProjectID,
			e.Operation,
			e.Detail,
			e.Units,
			e.Duration.Milliseconds(),
			e.CreatedAt.Unix(),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("could not insert usage entry: %w", err)
	}

	return nil
}

// ListUsage returns all usage entries for a project, oldest first.
func (r *Repository) ListUsage(ctx context.Context, projectID string) ([]model.UsageEntry, error) {
	query := `
		SELECT id, project_id, operation, detail, units, duration_ms, created_at
		FROM usage_log
		WHERE project_id = ?
		ORDER BY id ASC
	`

	var entries []model.UsageEntry
	err := r.pool.WithConn(ctx, func(ctx context.Context, c *dbpool.Conn) error {
		rows, err := c.QueryContext(ctx, query, projectID)
		if err != nil {
			return fmt.Errorf("could not query usage entries: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var e model.UsageEntry
			var durationMS, createdAt int64
			err := rows.Scan(&e.ID, &e.ProjectID, &e.Operation, &e.Detail, &e.Units, &durationMS, &createdAt)
			if err != nil {
				return fmt.Errorf("could not scan row: %w", err)
			}
			e.Duration = time.Duration(durationMS) * time.Millisecond
			e.CreatedAt = timeFromUnix(createdAt)
			entries = append(entries, e)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	return entries, nil
}

// SummarizeUsage aggregates total units and total duration for a project.
func (r *Repository) SummarizeUsage(ctx context.Context, projectID string) (int, time.Duration, error) {
	query := `
		SELECT COALESCE(SUM(units), 0), COALESCE(SUM(duration_ms), 0)
		FROM usage_log
		WHERE project_id = ?
	`

	var units int
	var durationMS int64
	err := r.pool.WithConn(ctx, func(ctx context.Context, c *dbpool.Conn) error {
		return c.QueryRowContext(ctx, query, projectID).Scan(&units, &durationMS)
	})
	if err != nil {
		return 0, 0, fmt.Errorf("could not summarize usage: %w", err)
	}

	return units, time.Duration(durationMS) * time.Millisecond, nil
}
