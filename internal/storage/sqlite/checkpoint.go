package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/scribahq/scriba/internal/dbpool"
	"github.com/scribahq/scriba/internal/model"
)

// checkpointPayload is the stored wire form of a checkpoint. The schema
// version travels inside the payload so old or foreign records can be
// recognized and ignored.
type checkpointPayload struct {
	Version int `json:"schema_version"`
	Step    int `json:"step"`
	Chapter int `json:"chapter"`
	Section int `json:"section"`
}

// SaveCheckpoint stores the resume state for a project, replacing any
// previous checkpoint.
func (r *Repository) SaveCheckpoint(ctx context.Context, projectID string, cp model.Checkpoint) error {
	if cp.Version == 0 {
		cp.Version = model.CheckpointVersion
	}
	if err := cp.Validate(); err != nil {
		return err
	}

	payload, err := json.Marshal(checkpointPayload{
		Version: cp.Version,
		Step:    cp.Step,
		Chapter: cp.Chapter,
		Section: cp.Section,
	})
	if err != nil {
		return fmt.Errorf("could not encode checkpoint: %w", err)
	}

	query := `
		INSERT INTO checkpoints (project_id, payload, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (project_id) DO UPDATE SET
			payload = excluded.payload,
			updated_at = excluded.updated_at
	`

	err = r.pool.WithConn(ctx, func(ctx context.Context, c *dbpool.Conn) error {
		_, err := c.ExecContext(ctx, query, projectID, string(payload), time.Now().Unix())
		return err
	})
	if err != nil {
		return fmt.Errorf("could not save checkpoint: %w", err)
	}

	r.logger.Debugf("Saved checkpoint for project %s: step=%d chapter=%d section=%d",
		projectID, cp.Step, cp.Chapter, cp.Section)
	return nil
}

// GetCheckpoint retrieves the resume state for a project. A missing row,
// an unparseable payload or an unsupported version all come back as
// (nil, nil): a broken checkpoint costs a restart from scratch, never a
// broken engine.
func (r *Repository) GetCheckpoint(ctx context.Context, projectID string) (*model.Checkpoint, error) {
	query := `
		SELECT payload, updated_at
		FROM checkpoints
		WHERE project_id = ?
	`

	var raw string
	var updatedAt int64
	err := r.pool.WithConn(ctx, func(ctx context.Context, c *dbpool.Conn) error {
		return c.QueryRowContext(ctx, query, projectID).Scan(&raw, &updatedAt)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("could not query checkpoint: %w", err)
	}

	var payload checkpointPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		r.logger.Warningf("Ignoring malformed checkpoint for project %s: %v", projectID, err)
		return nil, nil
	}

	cp := model.Checkpoint{
		Version:   payload.Version,
		Step:      payload.Step,
		Chapter:   payload.Chapter,
		Section:   payload.Section,
		UpdatedAt: timeFromUnix(updatedAt),
	}
	if err := cp.Validate(); err != nil {
		r.logger.Warningf("Ignoring unusable checkpoint for project %s: %v", projectID, err)
		return nil, nil
	}

	return &cp, nil
}

// ClearCheckpoint removes the checkpoint for a project. Clearing an
// absent checkpoint is not an error.
func (r *Repository) ClearCheckpoint(ctx context.Context, projectID string) error {
	err := r.pool.WithConn(ctx, func(ctx context.Context, c *dbpool.Conn) error {
		_, err := c.ExecContext(ctx, `DELETE FROM checkpoints WHERE project_id = ?`, projectID)
		return err
	})
	if err != nil {
		return fmt.Errorf("could not clear checkpoint: %w", err)
	}

	r.logger.Debugf("Cleared checkpoint for project %s", projectID)
	return nil
}
