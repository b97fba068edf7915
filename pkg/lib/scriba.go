package lib

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/scribahq/scriba/internal/dbpool"
	"github.com/scribahq/scriba/internal/generation"
	genfake "github.com/scribahq/scriba/internal/generation/fake"
	"github.com/scribahq/scriba/internal/log"
	"github.com/scribahq/scriba/internal/scheduler"
	"github.com/scribahq/scriba/internal/storage"
	"github.com/scribahq/scriba/internal/storage/sqlite"
	"github.com/scribahq/scriba/internal/storage/sqlite/migrations"
)

const (
	defaultDataDir = ".scriba"
	defaultDBFile  = "scriba.db"
)

// Config configures the SDK client.
//
// All fields are optional and have sensible defaults. At minimum, an empty
// Config{} will use ~/.scriba/scriba.db for storage and the fake generator.
type Config struct {
	// DBPath is the SQLite database path.
	// Default: ~/.scriba/scriba.db.
	DBPath string

	// DataDir is the base directory for scriba data.
	// Default: ~/.scriba.
	DataDir string

	// Logger receives structured log output from the SDK.
	// Default: noop (silent). See the log sub-package for the interface.
	Logger log.Logger

	// Generator produces the actual book content. When nil (default) the
	// built-in fake generator is used, which emits deterministic
	// placeholder content; embedders wire their AI provider here.
	Generator generation.Generator

	// Workers is the number of generation tasks allowed to run at the
	// same time. Default: 4.
	Workers int

	// PoolSize is the number of pinned database connections. Default: 4.
	PoolSize int

	// CacheTTL bounds how long generated content is reused across runs.
	// Default: 24h.
	CacheTTL time.Duration

	// ShutdownTimeout bounds how long Close waits for running tasks to
	// observe cancellation. Default: 30s.
	ShutdownTimeout time.Duration
}

func (c *Config) defaults() error {
	if c.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("could not get user home dir: %w", err)
		}
		c.DataDir = filepath.Join(home, defaultDataDir)
	}

	if c.DBPath == "" {
		c.DBPath = filepath.Join(c.DataDir, defaultDBFile)
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}

	if c.CacheTTL <= 0 {
		c.CacheTTL = 24 * time.Hour
	}

	return nil
}

// Client is the main SDK entry point for running book generation
// workflows programmatically.
//
// Create a Client with [New] and release its resources with [Client.Close].
// A Client is safe for concurrent use.
type Client struct {
	pool      *dbpool.Pool
	repo      storage.Repository
	scheduler *scheduler.Scheduler
	generator generation.Generator
	logger    log.Logger
	dbPath    string
	cacheTTL  time.Duration
}

// New creates a new SDK client backed by a SQLite database. It migrates
// the schema, opens the connection pool and starts the task scheduler.
//
// The caller must call [Client.Close] when done to stop background tasks
// and release the database connections. Typically used with defer:
//
//	client, err := lib.New(ctx, lib.Config{})
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
func New(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if err := migrations.Run(ctx, cfg.DBPath, cfg.Logger); err != nil {
		return nil, fmt.Errorf("could not migrate database: %w", err)
	}

	pool, err := dbpool.New(ctx, dbpool.Config{
		DBPath:   cfg.DBPath,
		PoolSize: cfg.PoolSize,
		Logger:   cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not open connection pool: %w", err)
	}

	repo, err := sqlite.NewRepository(sqlite.RepositoryConfig{
		Pool:   pool,
		Logger: cfg.Logger,
	})
	if err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("could not create repository: %w", err)
	}

	generator := cfg.Generator
	if generator == nil {
		generator, err = genfake.NewGenerator(genfake.GeneratorConfig{Logger: cfg.Logger})
		if err != nil {
			_ = pool.Close()
			return nil, fmt.Errorf("could not create fake generator: %w", err)
		}
	}

	sched, err := scheduler.New(scheduler.Config{
		Workers:         cfg.Workers,
		ShutdownTimeout: cfg.ShutdownTimeout,
		Logger:          cfg.Logger,
	})
	if err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("could not create scheduler: %w", err)
	}

	return &Client{
		pool:      pool,
		repo:      repo,
		scheduler: sched,
		generator: generator,
		logger:    cfg.Logger,
		dbPath:    cfg.DBPath,
		cacheTTL:  cfg.CacheTTL,
	}, nil
}

// Close shuts the client down: it requests cancellation of every running
// generation task, waits up to the configured shutdown timeout for them
// to wind down, and closes the connection pool. After Close returns, the
// client must not be used.
func (c *Client) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	schedErr := c.scheduler.Close(ctx)
	poolErr := c.pool.Close()

	if schedErr != nil {
		return fmt.Errorf("could not drain scheduler: %w", schedErr)
	}
	if poolErr != nil {
		return fmt.Errorf("could not close pool: %w", poolErr)
	}
	return nil
}
