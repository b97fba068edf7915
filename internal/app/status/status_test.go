package status_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scribahq/scriba/internal/app/status"
	"github.com/scribahq/scriba/internal/log"
	"github.com/scribahq/scriba/internal/model"
	"github.com/scribahq/scriba/internal/storage/memory"
)

func TestNewService(t *testing.T) {
	repo, err := memory.NewRepository(memory.RepositoryConfig{})
	require.NoError(t, err)

	tests := map[string]struct {
		config status.ServiceConfig
		expErr bool
	}{
		"valid config should create service": {
			config: status.ServiceConfig{
				Repository: repo,
				Logger:     log.Noop,
			},
			expErr: false,
		},

		"missing repository should fail": {
			config: status.ServiceConfig{
				Logger: log.Noop,
			},
			expErr: true,
		},

		"missing logger should default": {
			config: status.ServiceConfig{
				Repository: repo,
			},
			expErr: false,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			svc, err := status.NewService(test.config)

			if test.expErr {
				assert.Error(err)
				assert.Nil(svc)
			} else {
				assert.NoError(err)
				assert.NotNil(svc)
			}
		})
	}
}

const testProjectID = "8c4b2a90-1f6d-4e3b-b5a7-2d9e0c7f3a18"

func seedProject(ctx context.Context, t *testing.T, repo *memory.Repository) model.Project {
	t.Helper()

	now := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	project := model.Project{
		ID:        testProjectID,
		Name:      "field-notes",
		Status:    model.ProjectStatusGenerating,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, repo.CreateProject(ctx, project))

	require.NoError(t, repo.SaveStepResult(ctx, model.StepResult{
		ProjectID:  project.ID,
		StepNumber: 1,
		StepName:   "outline",
		StartedAt:  now,
		FinishedAt: now.Add(2 * time.Second),
		Success:    true,
	}))
	require.NoError(t, repo.SaveStepResult(ctx, model.StepResult{
		ProjectID:  project.ID,
		StepNumber: 2,
		StepName:   "chapter-summaries",
		StartedAt:  now.Add(2 * time.Second),
		FinishedAt: now.Add(5 * time.Second),
		Success:    false,
		Errors:     []string{"model overloaded"},
	}))

	require.NoError(t, repo.SaveCheckpoint(ctx, project.ID, model.Checkpoint{
		Version:   model.CheckpointVersion,
		Step:      2,
		Chapter:   3,
		Section:   1,
		UpdatedAt: now.Add(5 * time.Second),
	}))

	require.NoError(t, repo.AddUsage(ctx, model.UsageEntry{
		ProjectID: project.ID,
		Operation: "generate_outline",
		Units:     1,
		Duration:  2 * time.Second,
	}))
	require.NoError(t, repo.AddUsage(ctx, model.UsageEntry{
		ProjectID: project.ID,
		Operation: "generate_chapter_summary",
		Units:     2,
		Duration:  3 * time.Second,
	}))

	ended := now.Add(5 * time.Second)
	require.NoError(t, repo.StartSession(ctx, model.Session{
		ID:        "ses-1",
		ProjectID: project.ID,
		TaskID:    "01JMD2AXQZC5J8W1N5K0T9GQRF",
		StartedAt: now,
	}))
	require.NoError(t, repo.EndSession(ctx, "ses-1", ended, 3))

	return project
}

func TestServiceRun(t *testing.T) {
	tests := map[string]struct {
		nameOrID string
		expErr   error
	}{
		"querying by name should return the report": {
			nameOrID: "field-notes",
		},

		"querying by ID should return the report": {
			nameOrID: testProjectID,
		},

		"querying a missing project should fail": {
			nameOrID: "no-such-book",
			expErr:   model.ErrNotFound,
		},

		"querying an unknown ID should fail": {
			nameOrID: "00000000-0000-0000-0000-000000000000",
			expErr:   model.ErrNotFound,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)
			ctx := context.Background()

			repo, err := memory.NewRepository(memory.RepositoryConfig{})
			require.NoError(err)
			project := seedProject(ctx, t, repo)

			svc, err := status.NewService(status.ServiceConfig{Repository: repo, Logger: log.Noop})
			require.NoError(err)

			report, err := svc.Run(ctx, status.Request{NameOrID: test.nameOrID})

			if test.expErr != nil {
				require.Error(err)
				assert.ErrorIs(err, test.expErr)
				return
			}

			require.NoError(err)
			require.NotNil(report)

			assert.Equal(project.ID, report.Project.ID)
			assert.Equal(model.ProjectStatusGenerating, report.Project.Status)

			require.Len(report.StepResults, 2)
			assert.Equal("outline", report.StepResults[0].StepName)
			assert.True(report.StepResults[0].Success)
			assert.Equal("chapter-summaries", report.StepResults[1].StepName)
			assert.False(report.StepResults[1].Success)

			require.NotNil(report.Checkpoint)
			assert.Equal(2, report.Checkpoint.Step)
			assert.Equal(3, report.Checkpoint.Chapter)

			require.Len(report.Sessions, 1)
			require.NotNil(report.Sessions[0].EndedAt)
			assert.Equal(3, report.Sessions[0].UnitsDone)

			assert.Equal(3, report.UsageUnits)
			assert.Equal(5*time.Second, report.UsageTime)
		})
	}
}

func TestServiceRunFreshProject(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	repo, err := memory.NewRepository(memory.RepositoryConfig{})
	require.NoError(err)
	now := time.Now().UTC()
	require.NoError(repo.CreateProject(ctx, model.Project{
		ID:        "prj-fresh",
		Name:      "tide-tables",
		Status:    model.ProjectStatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}))

	svc, err := status.NewService(status.ServiceConfig{Repository: repo, Logger: log.Noop})
	require.NoError(err)

	report, err := svc.Run(ctx, status.Request{NameOrID: "tide-tables"})
	require.NoError(err)

	assert.Empty(report.StepResults)
	assert.Nil(report.Checkpoint)
	assert.Empty(report.Sessions)
	assert.Equal(0, report.UsageUnits)
	assert.Equal(time.Duration(0), report.UsageTime)
}
