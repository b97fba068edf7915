package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/scribahq/scriba/internal/dbpool"
	"github.com/scribahq/scriba/internal/model"
)

// StartSession records the beginning of an engine run.
func (r *Repository) StartSession(ctx context.Context, s model.Session) error {
	if s.ID == "" {
		return fmt.Errorf("session id is required: %w", model.ErrNotValid)
	}
	if s.ProjectID == "" {
		return fmt.Errorf("project id is required: %w", model.ErrNotValid)
	}

	query := `
		INSERT INTO sessions (id, project_id, task_id, started_at, ended_at, units_done)
		VALUES (?, ?, ?, ?, NULL, ?)
	`

	err := r.pool.WithConn(ctx, func(ctx context.Context, c *dbpool.Conn) error {
		_, err := c.ExecContext(ctx, query, s.ID, s.ProjectID, string(s.TaskID), s.StartedAt.Unix(), s.UnitsDone)
		return err
	})
	if err != nil {
		return fmt.Errorf("could not insert session: %w", err)
	}

	r.logger.Debugf("Started session %s for project %s", s.ID, s.ProjectID)
	return nil
}

// EndSession closes an engine run, recording when it ended and how many
// units it completed.
func (r *Repository) EndSession(ctx context.Context, id string, endedAt time.Time, unitsDone int) error {
	query := `
		UPDATE sessions
		SET ended_at = ?, units_done = ?
		WHERE id = ?
	`

	err := r.pool.WithConn(ctx, func(ctx context.Context, c *dbpool.Conn) error {
		result, err := c.ExecContext(ctx, query, endedAt.Unix(), unitsDone, id)
		if err != nil {
			return fmt.Errorf("could not update session: %w", err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("could not get rows affected: %w", err)
		}
		if rows == 0 {
			return fmt.Errorf("session %s: %w", id, model.ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.logger.Debugf("Ended session %s with %d units done", id, unitsDone)
	return nil
}

// ListSessions returns all engine runs for a project, newest first.
func (r *Repository) ListSessions(ctx context.Context, projectID string) ([]model.Session, error) {
	query := `
		SELECT id, project_id, task_id, started_at, ended_at, units_done
		FROM sessions
		WHERE project_id = ?
		ORDER BY started_at DESC
	`

	var sessions []model.Session
	err := r.pool.WithConn(ctx, func(ctx context.Context, c *dbpool.Conn) error {
		rows, err := c.QueryContext(ctx, query, projectID)
		if err != nil {
			return fmt.Errorf("could not query sessions: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var s model.Session
			var taskID string
			var startedAt int64
			var endedAt sql.NullInt64
			err := rows.Scan(&s.ID, &s.ProjectID, &taskID, &startedAt, &endedAt, &s.UnitsDone)
			if err != nil {
				return fmt.Errorf("could not scan row: %w", err)
			}
			s.TaskID = model.TaskID(taskID)
			s.StartedAt = timeFromUnix(startedAt)
			if endedAt.Valid {
				t := timeFromUnix(endedAt.Int64)
				s.EndedAt = &t
			}
			sessions = append(sessions, s)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	return sessions, nil
}
