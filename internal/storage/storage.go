package storage

import (
	"context"
	"time"

	"github.com/scribahq/scriba/internal/model"
)

// ProjectRepository is the interface for project persistence.
type ProjectRepository interface {
	CreateProject(ctx context.Context, p model.Project) error
	GetProject(ctx context.Context, id string) (*model.Project, error)
	GetProjectByName(ctx context.Context, name string) (*model.Project, error)
	ListProjects(ctx context.Context) ([]model.Project, error)
	UpdateProjectStatus(ctx context.Context, id string, status model.ProjectStatus) error
	// DeleteProject removes the project and everything hanging off it.
	DeleteProject(ctx context.Context, id string) error
}

// StepResultRepository persists workflow step outcomes. One result exists
// per (project, step number); saving again replaces the previous run.
type StepResultRepository interface {
	SaveStepResult(ctx context.Context, r model.StepResult) error
	GetStepResult(ctx context.Context, projectID string, stepNumber int) (*model.StepResult, error)
	ListStepResults(ctx context.Context, projectID string) ([]model.StepResult, error)
}

// CheckpointRepository persists resume state. GetCheckpoint returns
// (nil, nil) when no usable checkpoint exists, including when the stored
// payload cannot be parsed; corruption must never surface as an error.
type CheckpointRepository interface {
	SaveCheckpoint(ctx context.Context, projectID string, cp model.Checkpoint) error
	GetCheckpoint(ctx context.Context, projectID string) (*model.Checkpoint, error)
	ClearCheckpoint(ctx context.Context, projectID string) error
}

// UsageRepository records per-operation usage audit entries.
type UsageRepository interface {
	AddUsage(ctx context.Context, e model.UsageEntry) error
	ListUsage(ctx context.Context, projectID string) ([]model.UsageEntry, error)
	SummarizeUsage(ctx context.Context, projectID string) (units int, duration time.Duration, err error)
}

// CacheRepository stores reusable generated content. Expired entries are
// reported as misses.
type CacheRepository interface {
	PutCache(ctx context.Context, e model.CacheEntry) error
	GetCache(ctx context.Context, projectID, scope, kind, key string) (*model.CacheEntry, error)
	PurgeExpiredCache(ctx context.Context) (int64, error)
}

// SessionRepository records engine runs.
type SessionRepository interface {
	StartSession(ctx context.Context, s model.Session) error
	EndSession(ctx context.Context, id string, endedAt time.Time, unitsDone int) error
	ListSessions(ctx context.Context, projectID string) ([]model.Session, error)
}

// Repository aggregates all persistence concerns behind one implementation.
type Repository interface {
	ProjectRepository
	StepResultRepository
	CheckpointRepository
	UsageRepository
	CacheRepository
	SessionRepository
}
