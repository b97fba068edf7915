package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/scribahq/scriba/internal/dbpool"
	"github.com/scribahq/scriba/internal/model"
)

// PutCache stores a content cache entry, replacing any previous entry
// under the same key.
func (r *Repository) PutCache(ctx context.Context, e model.CacheEntry) error {
	if e.ProjectID == "" {
		return fmt.Errorf("project id is required: %w", model.ErrNotValid)
	}
	if e.Scope == "" || e.Kind == "" || e.Key == "" {
		return fmt.Errorf("scope, kind and key are required: %w", model.ErrNotValid)
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO content_cache (project_id, scope, kind, key, content, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (project_id, scope, kind, key) DO UPDATE SET
			content = excluded.content,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at
	`

	var expiresAt int64
	if !e.ExpiresAt.IsZero() {
		expiresAt = e.ExpiresAt.Unix()
	}

	err := r.pool.WithConn(ctx, func(ctx context.Context, c *dbpool.Conn) error {
		_, err := c.ExecContext(ctx, query, e.ProjectID, e.Scope, e.Kind, e.Key, e.Content, e.CreatedAt.Unix(), expiresAt)
		return err
	})
	if err != nil {
		return fmt.Errorf("could not store cache entry: %w", err)
	}

	return nil
}

// GetCache retrieves a cache entry. Expired entries are deleted on the
// spot and reported as not found.
func (r *Repository) GetCache(ctx context.Context, projectID, scope, kind, key string) (*model.CacheEntry, error) {
	query := `
		SELECT content, created_at, expires_at
		FROM content_cache
		WHERE project_id = ? AND scope = ? AND kind = ? AND key = ?
	`

	e := model.CacheEntry{ProjectID: projectID, Scope: scope, Kind: kind, Key: key}
	var createdAt, expiresAt int64
	err := r.pool.WithConn(ctx, func(ctx context.Context, c *dbpool.Conn) error {
		return c.QueryRowContext(ctx, query, projectID, scope, kind, key).Scan(&e.Content, &createdAt, &expiresAt)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("cache entry %s/%s/%s: %w", scope, kind, key, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not query cache entry: %w", err)
	}

	e.CreatedAt = timeFromUnix(createdAt)
	if expiresAt > 0 {
		e.ExpiresAt = timeFromUnix(expiresAt)
	}

	if e.Expired(time.Now()) {
		delErr := r.pool.WithConn(ctx, func(ctx context.Context, c *dbpool.Conn) error {
			_, err := c.ExecContext(ctx,
				`DELETE FROM content_cache WHERE project_id = ? AND scope = ? AND kind = ? AND key = ?`,
				projectID, scope, kind, key)
			return err
		})
		if delErr != nil {
			r.logger.Warningf("Could not purge expired cache entry: %v", delErr)
		}
		return nil, fmt.Errorf("cache entry %s/%s/%s expired: %w", scope, kind, key, model.ErrNotFound)
	}

	return &e, nil
}

// PurgeExpiredCache removes every expired cache entry and returns how
// many were deleted.
func (r *Repository) PurgeExpiredCache(ctx context.Context) (int64, error) {
	var purged int64
	err := r.pool.WithConn(ctx, func(ctx context.Context, c *dbpool.Conn) error {
		result, err := c.ExecContext(ctx,
			`DELETE FROM content_cache WHERE expires_at > 0 AND expires_at < ?`, time.Now().Unix())
		if err != nil {
			return err
		}
		purged, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("could not purge expired cache entries: %w", err)
	}

	if purged > 0 {
		r.logger.Debugf("Purged %d expired cache entries", purged)
	}
	return purged, nil
}
