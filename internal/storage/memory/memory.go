package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/scribahq/scriba/internal/log"
	"github.com/scribahq/scriba/internal/model"
)

// RepositoryConfig is the configuration for the memory repository.
type RepositoryConfig struct {
	Logger log.Logger
}

func (c *RepositoryConfig) defaults() error {
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.Memory"})
	return nil
}

// Repository is an in-memory implementation of storage.Repository.
type Repository struct {
	projects    map[string]model.Project
	stepResults map[string]map[int]model.StepResult
	checkpoints map[string]model.Checkpoint
	usage       map[string][]model.UsageEntry
	cache       map[string]model.CacheEntry
	sessions    map[string]model.Session
	nextUsageID int64
	mu          sync.RWMutex
	logger      log.Logger
}

// NewRepository creates a new memory repository.
func NewRepository(cfg RepositoryConfig) (*Repository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Repository{
		projects:    make(map[string]model.Project),
		stepResults: make(map[string]map[int]model.StepResult),
		checkpoints: make(map[string]model.Checkpoint),
		usage:       make(map[string][]model.UsageEntry),
		cache:       make(map[string]model.CacheEntry),
		sessions:    make(map[string]model.Session),
		logger:      cfg.Logger,
	}, nil
}

// CreateProject creates a new project in the repository.
func (r *Repository) CreateProject(ctx context.Context, p model.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.projects[p.ID]; ok {
		return fmt.Errorf("project with id %s: %w", p.ID, model.ErrAlreadyExists)
	}

	for _, existing := range r.projects {
		if existing.Name == p.Name {
			return fmt.Errorf("project with name %s: %w", p.Name, model.ErrAlreadyExists)
		}
	}

	r.projects[p.ID] = p
	r.logger.Debugf("Created project in repository: %s", p.ID)

	return nil
}

// GetProject retrieves a project by ID.
func (r *Repository) GetProject(ctx context.Context, id string) (*model.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	project, ok := r.projects[id]
	if !ok {
		return nil, fmt.Errorf("project %s: %w", id, model.ErrNotFound)
	}

	// Hand out a copy, not the stored value.
	projectCopy := project
	return &projectCopy, nil
}

// GetProjectByName retrieves a project by name.
func (r *Repository) GetProjectByName(ctx context.Context, name string) (*model.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, project := range r.projects {
		if project.Name == name {
			projectCopy := project
			return &projectCopy, nil
		}
	}

	return nil, fmt.Errorf("project with name %s: %w", name, model.ErrNotFound)
}

// ListProjects returns all projects ordered by creation time.
func (r *Repository) ListProjects(ctx context.Context) ([]model.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	projects := make([]model.Project, 0, len(r.projects))
	for _, project := range r.projects {
		projects = append(projects, project)
	}
	sort.Slice(projects, func(i, j int) bool {
		if projects[i].CreatedAt.Equal(projects[j].CreatedAt) {
			return projects[i].Name < projects[j].Name
		}
		return projects[i].CreatedAt.Before(projects[j].CreatedAt)
	})

	return projects, nil
}

// UpdateProjectStatus updates an existing project's status.
func (r *Repository) UpdateProjectStatus(ctx context.Context, id string, status model.ProjectStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	project, ok := r.projects[id]
	if !ok {
		return fmt.Errorf("project %s: %w", id, model.ErrNotFound)
	}

	project.Status = status
	project.UpdatedAt = time.Now()
	r.projects[id] = project
	r.logger.Debugf("Updated project %s status to %s", id, status)

	return nil
}

// DeleteProject deletes a project and everything hanging off it.
func (r *Repository) DeleteProject(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.projects[id]; !ok {
		return fmt.Errorf("project %s: %w", id, model.ErrNotFound)
	}

	delete(r.projects, id)
	delete(r.stepResults, id)
	delete(r.checkpoints, id)
	delete(r.usage, id)
	for key, entry := range r.cache {
		if entry.ProjectID == id {
			delete(r.cache, key)
		}
	}
	for key, session := range r.sessions {
		if session.ProjectID == id {
			delete(r.sessions, key)
		}
	}
	r.logger.Debugf("Deleted project from repository: %s", id)

	return nil
}

// SaveStepResult stores a step result, replacing any previous run of the
// same step.
func (r *Repository) SaveStepResult(ctx context.Context, res model.StepResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	results, ok := r.stepResults[res.ProjectID]
	if !ok {
		results = make(map[int]model.StepResult)
		r.stepResults[res.ProjectID] = results
	}
	results[res.StepNumber] = res

	return nil
}

// GetStepResult retrieves one step's result.
func (r *Repository) GetStepResult(ctx context.Context, projectID string, stepNumber int) (*model.StepResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res, ok := r.stepResults[projectID][stepNumber]
	if !ok {
		return nil, fmt.Errorf("step %d result for project %s: %w", stepNumber, projectID, model.ErrNotFound)
	}

	resCopy := res
	return &resCopy, nil
}

// ListStepResults returns a project's step results ordered by step number.
func (r *Repository) ListStepResults(ctx context.Context, projectID string) ([]model.StepResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	results := make([]model.StepResult, 0, len(r.stepResults[projectID]))
	for _, res := range r.stepResults[projectID] {
		results = append(results, res)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].StepNumber < results[j].StepNumber })

	return results, nil
}

// SaveCheckpoint stores a project's checkpoint, replacing any previous one.
func (r *Repository) SaveCheckpoint(ctx context.Context, projectID string, cp model.Checkpoint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cp.UpdatedAt.IsZero() {
		cp.UpdatedAt = time.Now()
	}
	r.checkpoints[projectID] = cp

	return nil
}

// GetCheckpoint retrieves a project's checkpoint, nil when none exists.
func (r *Repository) GetCheckpoint(ctx context.Context, projectID string) (*model.Checkpoint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cp, ok := r.checkpoints[projectID]
	if !ok {
		return nil, nil
	}

	cpCopy := cp
	return &cpCopy, nil
}

// ClearCheckpoint removes a project's checkpoint. Clearing an absent
// checkpoint is not an error.
func (r *Repository) ClearCheckpoint(ctx context.Context, projectID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.checkpoints, projectID)

	return nil
}

// AddUsage appends a usage audit entry.
func (r *Repository) AddUsage(ctx context.Context, e model.UsageEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextUsageID++
	e.ID = r.nextUsageID
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	r.usage[e.ProjectID] = append(r.usage[e.ProjectID], e)

	return nil
}

// ListUsage returns a project's usage entries in creation order.
func (r *Repository) ListUsage(ctx context.Context, projectID string) ([]model.UsageEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]model.UsageEntry, len(r.usage[projectID]))
	copy(entries, r.usage[projectID])

	return entries, nil
}

// SummarizeUsage totals a project's usage entries.
func (r *Repository) SummarizeUsage(ctx context.Context, projectID string) (int, time.Duration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	units := 0
	var duration time.Duration
	for _, e := range r.usage[projectID] {
		units += e.Units
		duration += e.Duration
	}

	return units, duration, nil
}

// PutCache stores a content cache entry, replacing any previous one with
// the same coordinates.
func (r *Repository) PutCache(ctx context.Context, e model.CacheEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	r.cache[cacheKey(e.ProjectID, e.Scope, e.Kind, e.Key)] = e

	return nil
}

// GetCache retrieves a cache entry. Expired entries are dropped and
// reported as misses.
func (r *Repository) GetCache(ctx context.Context, projectID, scope, kind, key string) (*model.CacheEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ck := cacheKey(projectID, scope, kind, key)
	entry, ok := r.cache[ck]
	if !ok {
		return nil, fmt.Errorf("cache entry %s: %w", ck, model.ErrNotFound)
	}
	if entry.Expired(time.Now()) {
		delete(r.cache, ck)
		return nil, fmt.Errorf("cache entry %s expired: %w", ck, model.ErrNotFound)
	}

	entryCopy := entry
	return &entryCopy, nil
}

// PurgeExpiredCache removes every expired cache entry.
func (r *Repository) PurgeExpiredCache(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	var purged int64
	for key, entry := range r.cache {
		if entry.Expired(now) {
			delete(r.cache, key)
			purged++
		}
	}

	return purged, nil
}

// StartSession records the start of an engine run.
func (r *Repository) StartSession(ctx context.Context, s model.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[s.ID]; ok {
		return fmt.Errorf("session with id %s: %w", s.ID, model.ErrAlreadyExists)
	}
	if s.StartedAt.IsZero() {
		s.StartedAt = time.Now()
	}
	r.sessions[s.ID] = s

	return nil
}

// EndSession records the end of an engine run.
func (r *Repository) EndSession(ctx context.Context, id string, endedAt time.Time, unitsDone int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[id]
	if !ok {
		return fmt.Errorf("session %s: %w", id, model.ErrNotFound)
	}

	session.EndedAt = &endedAt
	session.UnitsDone = unitsDone
	r.sessions[id] = session

	return nil
}

// ListSessions returns a project's sessions ordered by start time.
func (r *Repository) ListSessions(ctx context.Context, projectID string) ([]model.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sessions := make([]model.Session, 0)
	for _, session := range r.sessions {
		if session.ProjectID == projectID {
			sessions = append(sessions, session)
		}
	}
	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].StartedAt.Equal(sessions[j].StartedAt) {
			return sessions[i].ID < sessions[j].ID
		}
		return sessions[i].StartedAt.Before(sessions[j].StartedAt)
	})

	return sessions, nil
}

func cacheKey(projectID, scope, kind, key string) string {
	return projectID + "/" + scope + "/" + kind + "/" + key
}
