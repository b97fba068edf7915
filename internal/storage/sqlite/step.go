package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/scribahq/scriba/internal/dbpool"
	"github.com/scribahq/scriba/internal/model"
)

// SaveStepResult stores the outcome of a step run, replacing any previous
// run of the same step for the project.
func (r *Repository) SaveStepResult(ctx context.Context, res model.StepResult) error {
	if res.ProjectID == "" {
		return fmt.Errorf("project id is required: %w", model.ErrNotValid)
	}
	if res.StepNumber < 1 {
		return fmt.Errorf("step number must be positive: %w", model.ErrNotValid)
	}

	errsJSON, err := marshalStrings(res.Errors)
	if err != nil {
		return fmt.Errorf("could not encode errors: %w", err)
	}
	warnsJSON, err := marshalStrings(res.Warnings)
	if err != nil {
		return fmt.Errorf("could not encode warnings: %w", err)
	}
	payloadJSON, err := marshalPayload(res.Payload)
	if err != nil {
		return fmt.Errorf("could not encode payload: %w", err)
	}

	query := `
		INSERT INTO step_results (
			project_id, step_number, step_name,
			started_at, finished_at, success,
			errors, warnings, payload
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (project_id, step_number) DO UPDATE SET
			step_name = excluded.step_name,
			started_at = excluded.started_at,
			finished_at = excluded.finished_at,
			success = excluded.success,
			errors = excluded.errors,
			warnings = excluded.warnings,
			payload = excluded.payload
	`

	err = r.pool.WithConn(ctx, func(ctx context.Context, c *dbpool.Conn) error {
		_, err := c.ExecContext(
			ctx,
			query,
			res.ProjectID,
			res.StepNumber,
			res.StepName,
			res.StartedAt.Unix(),
			res.FinishedAt.Unix(),
			boolToInt(res.Success),
			errsJSON,
			warnsJSON,
			payloadJSON,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("could not save step result: %w", err)
	}

	r.logger.Debugf("Saved step %d result for project %s", res.StepNumber, res.ProjectID)
	return nil
}

// GetStepResult retrieves the persisted result of one step.
func (r *Repository) GetStepResult(ctx context.Context, projectID string, stepNumber int) (*model.StepResult, error) {
	query := `
		SELECT project_id, step_number, step_name,
			started_at, finished_at, success,
			errors, warnings, payload
		FROM step_results
		WHERE project_id = ? AND step_number = ?
	`

	var res model.StepResult
	err := r.pool.WithConn(ctx, func(ctx context.Context, c *dbpool.Conn) error {
		var err error
		res, err = r.scanStepResultRow(c.QueryRowContext(ctx, query, projectID, stepNumber))
		return err
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("step %d result for project %s: %w", stepNumber, projectID, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not query step result: %w", err)
	}

	return &res, nil
}

// ListStepResults returns all persisted step results for a project in
// step order.
func (r *Repository) ListStepResults(ctx context.Context, projectID string) ([]model.StepResult, error) {
	query := `
		SELECT project_id, step_number, step_name,
			started_at, finished_at, success,
			errors, warnings, payload
		FROM step_results
		WHERE project_id = ?
		ORDER BY step_number ASC
	`

	var results []model.StepResult
	err := r.pool.WithConn(ctx, func(ctx context.Context, c *dbpool.Conn) error {
		rows, err := c.QueryContext(ctx, query, projectID)
		if err != nil {
			return fmt.Errorf("could not query step results: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			res, err := r.scanStepResultRow(rows)
			if err != nil {
				return fmt.Errorf("could not scan row: %w", err)
			}
			results = append(results, res)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	return results, nil
}

func (r *Repository) scanStepResultRow(s scanner) (model.StepResult, error) {
	var res model.StepResult
	var startedAt, finishedAt int64
	var success int
	var errsJSON, warnsJSON, payloadJSON string

	err := s.Scan(
		&res.ProjectID,
		&res.StepNumber,
		&res.StepName,
		&startedAt,
		&finishedAt,
		&success,
		&errsJSON,
		&warnsJSON,
		&payloadJSON,
	)
	if err != nil {
		return model.StepResult{}, err
	}

	res.StartedAt = timeFromUnix(startedAt)
	res.FinishedAt = timeFromUnix(finishedAt)
	res.Success = success != 0

	if err := json.Unmarshal([]byte(errsJSON), &res.Errors); err != nil {
		return model.StepResult{}, fmt.Errorf("could not decode errors: %w", err)
	}
	if err := json.Unmarshal([]byte(warnsJSON), &res.Warnings); err != nil {
		return model.StepResult{}, fmt.Errorf("could not decode warnings: %w", err)
	}
	if err := json.Unmarshal([]byte(payloadJSON), &res.Payload); err != nil {
		return model.StepResult{}, fmt.Errorf("could not decode payload: %w", err)
	}

	return res, nil
}

func marshalStrings(ss []string) (string, error) {
	if ss == nil {
		ss = []string{}
	}
	b, err := json.Marshal(ss)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func marshalPayload(p map[string]any) (string, error) {
	if p == nil {
		p = map[string]any{}
	}
	b, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
