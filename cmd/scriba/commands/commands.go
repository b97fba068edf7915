package commands

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/alecthomas/kingpin/v2"
	"k8s.io/client-go/util/homedir"

	"github.com/scribahq/scriba/internal/conventions"
	"github.com/scribahq/scriba/internal/dbpool"
	"github.com/scribahq/scriba/internal/log"
	"github.com/scribahq/scriba/internal/storage/sqlite"
	"github.com/scribahq/scriba/internal/storage/sqlite/migrations"
)

const (
	// LoggerTypeDefault is the logger default type.
	LoggerTypeDefault = "default"
	// LoggerTypeJSON is the logger json type.
	LoggerTypeJSON = "json"
)

// Command represents an application command, all commands that want to be executed
// should implement and setup on main.
type Command interface {
	Name() string
	Run(ctx context.Context) error
}

// RootCommand represents the root command configuration and global configuration
// for all the commands.
type RootCommand struct {
	// Global flags.
	Debug      bool
	NoLog      bool
	NoColor    bool
	LoggerType string
	DBPath     string
	PoolSize   int

	// Global instances.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger log.Logger
}

// NewRootCommand initializes the main root configuration.
func NewRootCommand(app *kingpin.Application) *RootCommand {
	c := &RootCommand{}

	app.Flag("debug", "Enable debug mode.").BoolVar(&c.Debug)
	app.Flag("no-log", "Disable logger.").BoolVar(&c.NoLog)
	app.Flag("no-color", "Disable logger color.").BoolVar(&c.NoColor)
	app.Flag("logger", "Selects the logger type.").Default(LoggerTypeDefault).EnumVar(&c.LoggerType, LoggerTypeDefault, LoggerTypeJSON)

	defaultDBPath := conventions.DBPath(filepath.Join(homedir.HomeDir(), conventions.DefaultDataDir))
	app.Flag("db-path", "Path to the SQLite database file.").Envar("SCRIBA_DB_PATH").Default(defaultDBPath).StringVar(&c.DBPath)
	app.Flag("pool-size", "Number of pinned database connections.").Default("4").IntVar(&c.PoolSize)

	return c
}

// storageStack bundles the database layer commands work against: a migrated
// schema, the connection pool and the repository on top of it.
type storageStack struct {
	Pool *dbpool.Pool
	Repo *sqlite.Repository
}

func (s *storageStack) Close() error { return s.Pool.Close() }

// openStorage migrates the database file and opens the pool and repository.
// The caller owns the returned stack and must close it.
func (c *RootCommand) openStorage(ctx context.Context) (*storageStack, error) {
	if err := migrations.Run(ctx, c.DBPath, c.Logger); err != nil {
		return nil, fmt.Errorf("could not migrate database: %w", err)
	}

	pool, err := dbpool.New(ctx, dbpool.Config{
		DBPath:   c.DBPath,
		PoolSize: c.PoolSize,
		Logger:   c.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not open connection pool: %w", err)
	}

	repo, err := sqlite.NewRepository(sqlite.RepositoryConfig{
		Pool:   pool,
		Logger: c.Logger,
	})
	if err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("could not create repository: %w", err)
	}

	return &storageStack{Pool: pool, Repo: repo}, nil
}
