package dbpool_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scribahq/scriba/internal/dbpool"
	"github.com/scribahq/scriba/internal/log"
	"github.com/scribahq/scriba/internal/model"
)

func newPool(t *testing.T, size int) *dbpool.Pool {
	t.Helper()
	pool, err := dbpool.New(context.Background(), dbpool.Config{
		DBPath:         filepath.Join(t.TempDir(), "test.db"),
		PoolSize:       size,
		AcquireTimeout: 2 * time.Second,
		Logger:         log.Noop,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Close() })
	return pool
}

func TestPoolAccounting(t *testing.T) {
	ctx := context.Background()
	pool := newPool(t, 3)

	stats := pool.Stats()
	assert.Equal(t, 3, stats.PoolSize)
	assert.Equal(t, 3, stats.Available)
	assert.Equal(t, 0, stats.CheckedOut)

	c1, err := pool.Acquire(ctx)
	require.NoError(t, err)
	c2, err := pool.Acquire(ctx)
	require.NoError(t, err)

	stats = pool.Stats()
	assert.Equal(t, 3, stats.Available+stats.CheckedOut)
	assert.Equal(t, 2, stats.CheckedOut)

	pool.Release(c1)
	pool.Release(c2)
	// Releasing twice must not corrupt the counters.
	pool.Release(c2)

	stats = pool.Stats()
	assert.Equal(t, 3, stats.Available+stats.CheckedOut)
	assert.Equal(t, 0, stats.CheckedOut)
	assert.Equal(t, int64(3), stats.TotalCreated)
}

func TestPoolRollsBackOnRelease(t *testing.T) {
	ctx := context.Background()
	pool := newPool(t, 2)

	err := pool.WithConn(ctx, func(ctx context.Context, c *dbpool.Conn) error {
		_, err := c.ExecContext(ctx, `CREATE TABLE notes (id INTEGER PRIMARY KEY, body TEXT)`)
		return err
	})
	require.NoError(t, err)

	// Write inside a transaction and release without committing.
	c, err := pool.Acquire(ctx)
	require.NoError(t, err)
	require.NoError(t, c.Begin(ctx))
	_, err = c.ExecContext(ctx, `INSERT INTO notes (body) VALUES (?)`, "half-done")
	require.NoError(t, err)
	pool.Release(c)

	var count int
	err = pool.WithConn(ctx, func(ctx context.Context, c *dbpool.Conn) error {
		return c.QueryRowContext(ctx, `SELECT COUNT(*) FROM notes`).Scan(&count)
	})
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	// A committed transaction sticks.
	c, err = pool.Acquire(ctx)
	require.NoError(t, err)
	require.NoError(t, c.Begin(ctx))
	_, err = c.ExecContext(ctx, `INSERT INTO notes (body) VALUES (?)`, "done")
	require.NoError(t, err)
	require.NoError(t, c.Commit())
	pool.Release(c)

	err = pool.WithConn(ctx, func(ctx context.Context, c *dbpool.Conn) error {
		return c.QueryRowContext(ctx, `SELECT COUNT(*) FROM notes`).Scan(&count)
	})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestPoolAcquireTimeout(t *testing.T) {
	ctx := context.Background()
	pool, err := dbpool.New(ctx, dbpool.Config{
		DBPath:         filepath.Join(t.TempDir(), "test.db"),
		PoolSize:       1,
		AcquireTimeout: 150 * time.Millisecond,
		Logger:         log.Noop,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Close() })

	c, err := pool.Acquire(ctx)
	require.NoError(t, err)
	defer pool.Release(c)

	_, err = pool.Acquire(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrUnavailable)
}

func TestPoolClosed(t *testing.T) {
	ctx := context.Background()
	pool := newPool(t, 1)

	require.NoError(t, pool.Close())
	require.NoError(t, pool.Close())

	_, err := pool.Acquire(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrPoolClosed)
}

func TestPoolWithConnReleasesOnPanic(t *testing.T) {
	ctx := context.Background()
	pool := newPool(t, 1)

	require.Panics(t, func() {
		_ = pool.WithConn(ctx, func(ctx context.Context, c *dbpool.Conn) error {
			panic("boom")
		})
	})

	// The connection must be back in the pool.
	c, err := pool.Acquire(ctx)
	require.NoError(t, err)
	pool.Release(c)
}

func TestPoolConcurrentUse(t *testing.T) {
	ctx := context.Background()
	pool := newPool(t, 3)

	err := pool.WithConn(ctx, func(ctx context.Context, c *dbpool.Conn) error {
		_, err := c.ExecContext(ctx, `CREATE TABLE hits (n INTEGER)`)
		return err
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			errs <- pool.WithConn(ctx, func(ctx context.Context, c *dbpool.Conn) error {
				_, err := c.ExecContext(ctx, `INSERT INTO hits (n) VALUES (?)`, n)
				return err
			})
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	var count int
	err = pool.WithConn(ctx, func(ctx context.Context, c *dbpool.Conn) error {
		return c.QueryRowContext(ctx, `SELECT COUNT(*) FROM hits`).Scan(&count)
	})
	require.NoError(t, err)
	assert.Equal(t, 20, count)

	stats := pool.Stats()
	assert.Equal(t, stats.PoolSize, stats.Available+stats.CheckedOut)
	assert.Equal(t, 0, stats.CheckedOut)
}
