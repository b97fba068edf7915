package doctor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/scribahq/scriba/internal/dbpool"
	"github.com/scribahq/scriba/internal/log"
	"github.com/scribahq/scriba/internal/model"
	"github.com/scribahq/scriba/internal/storage"
)

// ServiceConfig is the configuration for the doctor service.
type ServiceConfig struct {
	Pool       *dbpool.Pool
	Repository storage.Repository
	// DBPath is the SQLite database file the pool is backed by.
	DBPath string
	Logger log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Pool == nil {
		return fmt.Errorf("pool is required")
	}

	if c.Repository == nil {
		return fmt.Errorf("repository is required")
	}

	if c.DBPath == "" {
		return fmt.Errorf("db path is required")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Doctor"})

	return nil
}

// Service runs health checks against the local installation.
type Service struct {
	pool   *dbpool.Pool
	repo   storage.Repository
	dbPath string
	logger log.Logger
}

// NewService creates a new doctor service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		pool:   cfg.Pool,
		repo:   cfg.Repository,
		dbPath: cfg.DBPath,
		logger: cfg.Logger,
	}, nil
}

// Report is the outcome of a doctor run.
type Report struct {
	Checks      []model.CheckResult
	PoolStats   model.PoolStats
	DBSizeBytes int64
	PurgedCache int64
}

// Run performs the health checks and routine maintenance. Individual check
// failures land in the report instead of failing the run.
func (s *Service) Run(ctx context.Context) (*Report, error) {
	s.logger.Debugf("running health checks")

	report := &Report{}

	// Check 1: database reachable
	report.Checks = append(report.Checks, s.checkDatabase(ctx))

	// Check 2: schema ready
	report.Checks = append(report.Checks, s.checkSchema(ctx))

	// Check 3: pool accounting
	report.PoolStats = s.pool.Stats()
	report.Checks = append(report.Checks, s.checkPool(report.PoolStats))

	// Check 4: data directory writable
	report.Checks = append(report.Checks, s.checkDataDir())

	// Check 5: purge expired cache entries
	purged, check := s.purgeCache(ctx)
	report.PurgedCache = purged
	report.Checks = append(report.Checks, check)

	if info, err := os.Stat(s.dbPath); err == nil {
		report.DBSizeBytes = info.Size()
	}

	ok, warnings, errs := model.CountByStatus(report.Checks)
	s.logger.Infof("health checks done: %d ok, %d warnings, %d errors", ok, warnings, errs)

	return report, nil
}

// checkDatabase verifies a pooled connection can round-trip a query.
func (s *Service) checkDatabase(ctx context.Context) model.CheckResult {
	err := s.pool.WithConn(ctx, func(ctx context.Context, c *dbpool.Conn) error {
		var one int
		return c.QueryRowContext(ctx, `SELECT 1`).Scan(&one)
	})
	if err != nil {
		return model.CheckResult{
			ID:      "database_reachable",
			Message: fmt.Sprintf("Cannot query database: %v", err),
			Status:  model.CheckStatusError,
		}
	}

	return model.CheckResult{
		ID:      "database_reachable",
		Message: fmt.Sprintf("Database at %s answers queries", s.dbPath),
		Status:  model.CheckStatusOK,
	}
}

// checkSchema verifies the migrated schema is usable by listing projects.
func (s *Service) checkSchema(ctx context.Context) model.CheckResult {
	projects, err := s.repo.ListProjects(ctx)
	if err != nil {
		return model.CheckResult{
			ID:      "schema_ready",
			Message: fmt.Sprintf("Schema query failed, migrations may be missing: %v", err),
			Status:  model.CheckStatusError,
		}
	}

	return model.CheckResult{
		ID:      "schema_ready",
		Message: fmt.Sprintf("Schema is migrated (%d projects)", len(projects)),
		Status:  model.CheckStatusOK,
	}
}

// checkPool verifies the pool accounting adds up.
func (s *Service) checkPool(stats model.PoolStats) model.CheckResult {
	if stats.Available+stats.CheckedOut != stats.PoolSize {
		return model.CheckResult{
			ID:      "pool_accounting",
			Message: fmt.Sprintf("Pool accounting mismatch: %d available + %d checked out != %d total", stats.Available, stats.CheckedOut, stats.PoolSize),
			Status:  model.CheckStatusError,
		}
	}

	if stats.Available == 0 {
		return model.CheckResult{
			ID:      "pool_accounting",
			Message: "All pooled connections are checked out",
			Status:  model.CheckStatusWarning,
		}
	}

	return model.CheckResult{
		ID:      "pool_accounting",
		Message: fmt.Sprintf("%d of %d connections available", stats.Available, stats.PoolSize),
		Status:  model.CheckStatusOK,
	}
}

// checkDataDir verifies the data directory accepts writes.
func (s *Service) checkDataDir() model.CheckResult {
	dir := filepath.Dir(s.dbPath)

	f, err := os.CreateTemp(dir, ".doctor-*")
	if err != nil {
		return model.CheckResult{
			ID:      "data_dir_writable",
			Message: fmt.Sprintf("Cannot write to %s: %v", dir, err),
			Status:  model.CheckStatusError,
		}
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)

	return model.CheckResult{
		ID:      "data_dir_writable",
		Message: fmt.Sprintf("Data directory %s is writable", dir),
		Status:  model.CheckStatusOK,
	}
}

// purgeCache removes expired cache entries as routine maintenance.
func (s *Service) purgeCache(ctx context.Context) (int64, model.CheckResult) {
	purged, err := s.repo.PurgeExpiredCache(ctx)
	if err != nil {
		return 0, model.CheckResult{
			ID:      "cache_purge",
			Message: fmt.Sprintf("Could not purge expired cache entries: %v", err),
			Status:  model.CheckStatusError,
		}
	}

	if purged == 0 {
		return 0, model.CheckResult{
			ID:      "cache_purge",
			Message: "No expired cache entries",
			Status:  model.CheckStatusOK,
		}
	}

	return purged, model.CheckResult{
		ID:      "cache_purge",
		Message: fmt.Sprintf("Purged %d expired cache entries", purged),
		Status:  model.CheckStatusOK,
	}
}
