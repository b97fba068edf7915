package lib

import (
	"context"
	"fmt"

	"github.com/scribahq/scriba/internal/app/doctor"
)

// DoctorReport is the outcome of a health check run.
type DoctorReport struct {
	// Checks are the individual check results in execution order.
	Checks []CheckResult
	// PoolStats is the connection pool snapshot taken during the run.
	PoolStats PoolStats
	// DBSizeBytes is the database file size on disk.
	DBSizeBytes int64
	// PurgedCache is how many expired cache entries were deleted.
	PurgedCache int64
}

// Doctor runs health checks against the client's database and pool and
// performs routine maintenance (purging expired cached content).
// Individual check failures land in the report instead of failing the
// call.
func (c *Client) Doctor(ctx context.Context) (*DoctorReport, error) {
	svc, err := doctor.NewService(doctor.ServiceConfig{
		Pool:       c.pool,
		Repository: c.repo,
		DBPath:     c.dbPath,
		Logger:     c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}

	report, err := svc.Run(ctx)
	if err != nil {
		return nil, mapError(err)
	}

	return &DoctorReport{
		Checks:      fromInternalCheckResults(report.Checks),
		PoolStats:   fromInternalPoolStats(report.PoolStats),
		DBSizeBytes: report.DBSizeBytes,
		PurgedCache: report.PurgedCache,
	}, nil
}
