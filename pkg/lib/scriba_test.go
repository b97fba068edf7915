package lib_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scribahq/scriba/pkg/lib"
	"github.com/scribahq/scriba/pkg/lib/generation"
)

const waitTimeout = 30 * time.Second

// newTestClient creates a client with a temp SQLite DB for test isolation.
func newTestClient(t *testing.T, cfg lib.Config) *lib.Client {
	t.Helper()

	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(t.TempDir(), "test.db")
	}
	if cfg.DataDir == "" {
		cfg.DataDir = t.TempDir()
	}

	client, err := lib.New(context.Background(), cfg)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = client.Close()
	})

	return client
}

// testPlan is a small two chapter plan: 7 work units in total (outline,
// 2 summaries, 3 sections, review).
func testPlan() lib.Plan {
	return lib.Plan{
		Title: "The Silent Harbor",
		Style: "noir",
		Chapters: []lib.PlanChapter{
			{Title: "Arrival", Sections: 2},
			{Title: "The Fog", Sections: 1},
		},
	}
}

// testGenerator implements the public generator interface with
// controllable latency and section failures.
type testGenerator struct {
	delay       time.Duration
	failSection func(chapter, section int) error
}

func (g *testGenerator) wait(ctx context.Context) error {
	if g.delay <= 0 {
		return ctx.Err()
	}
	select {
	case <-time.After(g.delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *testGenerator) GenerateOutline(ctx context.Context, req generation.OutlineRequest) (*generation.Outline, error) {
	if err := g.wait(ctx); err != nil {
		return nil, err
	}
	return &generation.Outline{Synopsis: "synopsis of " + req.Plan.Title, Units: 1}, nil
}

func (g *testGenerator) GenerateChapterSummary(ctx context.Context, req generation.ChapterSummaryRequest) (*generation.ChapterSummary, error) {
	if err := g.wait(ctx); err != nil {
		return nil, err
	}
	return &generation.ChapterSummary{Summary: fmt.Sprintf("summary of chapter %d", req.Chapter), Units: 1}, nil
}

func (g *testGenerator) GenerateSection(ctx context.Context, req generation.SectionRequest) (*generation.SectionContent, error) {
	if err := g.wait(ctx); err != nil {
		return nil, err
	}
	if g.failSection != nil {
		if err := g.failSection(req.Chapter, req.Section); err != nil {
			return nil, err
		}
	}
	return &generation.SectionContent{Text: fmt.Sprintf("prose %d.%d", req.Chapter, req.Section), Units: 1}, nil
}

func (g *testGenerator) ReviewManuscript(ctx context.Context, req generation.ReviewRequest) (*generation.Review, error) {
	if err := g.wait(ctx); err != nil {
		return nil, err
	}
	return &generation.Review{Notes: []string{"tighten chapter endings"}, Units: 1}, nil
}

func TestGenerate(t *testing.T) {
	tests := map[string]struct {
		opts   lib.GenerateOpts
		expErr bool
		expIs  error
	}{
		"Starting a run with a valid plan should work.": {
			opts: lib.GenerateOpts{
				ProjectName: "my-novel",
				Plan:        testPlan(),
			},
		},

		"Starting a run without a project name should fail.": {
			opts: lib.GenerateOpts{
				Plan: testPlan(),
			},
			expErr: true,
			expIs:  lib.ErrNotValid,
		},

		"Starting a run without a plan title should fail.": {
			opts: lib.GenerateOpts{
				ProjectName: "untitled",
				Plan: lib.Plan{
					Chapters: []lib.PlanChapter{{Title: "One", Sections: 1}},
				},
			},
			expErr: true,
			expIs:  lib.ErrNotValid,
		},

		"Starting a run without chapters should fail.": {
			opts: lib.GenerateOpts{
				ProjectName: "empty-book",
				Plan:        lib.Plan{Title: "Empty"},
			},
			expErr: true,
			expIs:  lib.ErrNotValid,
		},

		"Starting a run with a zero section chapter should fail.": {
			opts: lib.GenerateOpts{
				ProjectName: "thin-book",
				Plan: lib.Plan{
					Title:    "Thin",
					Chapters: []lib.PlanChapter{{Title: "One"}},
				},
			},
			expErr: true,
			expIs:  lib.ErrNotValid,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			client := newTestClient(t, lib.Config{})
			ctx := context.Background()

			run, err := client.Generate(ctx, test.opts)

			if test.expErr {
				assert.Error(err)
				if test.expIs != nil {
					assert.True(errors.Is(err, test.expIs), "expected error %v, got: %v", test.expIs, err)
				}
				return
			}

			assert.NoError(err)
			assert.NotEmpty(run.TaskID)
			assert.NotEmpty(run.Project.ID)
			assert.Equal(test.opts.ProjectName, run.Project.Name)
			assert.Equal(lib.ProjectStatusGenerating, run.Project.Status)
		})
	}
}

func TestGenerateAndWait(t *testing.T) {
	assert := assert.New(t)
	client := newTestClient(t, lib.Config{})
	ctx := context.Background()

	run, err := client.Generate(ctx, lib.GenerateOpts{
		ProjectName: "full-run",
		Plan:        testPlan(),
	})
	require.NoError(t, err)

	report, err := client.Wait(ctx, run.TaskID, waitTimeout)
	require.NoError(t, err)

	assert.Equal(run.Project.ID, report.ProjectID)
	assert.Equal("The Silent Harbor", report.Title)
	assert.Equal(7, report.UnitsDone)
	assert.Equal(7, report.TotalUnits)
	assert.Equal(7, report.UsageUnits)
	assert.Greater(report.Duration, time.Duration(0))

	// Wait collected the result, so the task is no longer tracked.
	assert.Equal(lib.TaskStatusUnknown, client.TaskStatus(run.TaskID))
	_, err = client.Result(run.TaskID)
	assert.True(errors.Is(err, lib.ErrNotFound), "expected not found, got: %v", err)

	status, err := client.Status(ctx, "full-run")
	require.NoError(t, err)

	assert.Equal(lib.ProjectStatusComplete, status.Project.Status)
	assert.Nil(status.Checkpoint)
	require.Len(t, status.Steps, 4)
	for _, step := range status.Steps {
		assert.True(step.Success, "step %s should have succeeded", step.StepName)
	}
	require.Len(t, status.Sessions, 1)
	assert.NotNil(status.Sessions[0].EndedAt)
	assert.Equal(7, status.Sessions[0].UnitsDone)
	assert.Equal(7, status.UsageUnits)
}

func TestEvents(t *testing.T) {
	assert := assert.New(t)
	client := newTestClient(t, lib.Config{})
	ctx := context.Background()

	run, err := client.Generate(ctx, lib.GenerateOpts{
		ProjectName: "event-stream",
		Plan:        testPlan(),
	})
	require.NoError(t, err)

	events, ok := client.Events(run.TaskID)
	require.True(t, ok)

	var all []lib.Event
	for ev := range events {
		all = append(all, ev)
	}
	require.NotEmpty(t, all)

	for _, ev := range all {
		assert.Equal(run.TaskID, ev.TaskID)
	}

	first := all[0]
	assert.Equal(lib.EventStatus, first.Kind)
	assert.Equal(lib.TaskStatusQueued, first.Status)

	progressSeen := false
	for _, ev := range all {
		if ev.Kind == lib.EventProgress && ev.Percent > 0 {
			progressSeen = true
			break
		}
	}
	assert.True(progressSeen, "expected at least one progress event")

	last := all[len(all)-1]
	assert.Equal(lib.EventResult, last.Kind)
	assert.Equal(lib.TaskStatusCompleted, last.Status)
	assert.Empty(last.Error)

	// The run is terminal once the stream closed, the report is ready.
	report, err := client.Wait(ctx, run.TaskID, waitTimeout)
	require.NoError(t, err)
	assert.Equal(7, report.UnitsDone)

	_, ok = client.Events(lib.TaskID("does-not-exist"))
	assert.False(ok)
}

func TestWaitTimeout(t *testing.T) {
	assert := assert.New(t)
	client := newTestClient(t, lib.Config{
		Generator: &testGenerator{delay: 5 * time.Second},
	})
	ctx := context.Background()

	run, err := client.Generate(ctx, lib.GenerateOpts{
		ProjectName: "slow-run",
		Plan:        testPlan(),
	})
	require.NoError(t, err)

	_, err = client.Wait(ctx, run.TaskID, 50*time.Millisecond)
	assert.Error(err)
	assert.True(errors.Is(err, lib.ErrTimeout), "expected timeout, got: %v", err)

	// The run kept going in the background.
	status := client.TaskStatus(run.TaskID)
	assert.True(status == lib.TaskStatusQueued || status == lib.TaskStatusRunning,
		"expected a live task, got: %s", status)

	accepted, err := client.Cancel(ctx, run.Project.ID, run.TaskID)
	assert.NoError(err)
	assert.True(accepted)
}

func TestCancelAndResume(t *testing.T) {
	assert := assert.New(t)
	client := newTestClient(t, lib.Config{
		Generator: &testGenerator{delay: 50 * time.Millisecond},
	})
	ctx := context.Background()

	opts := lib.GenerateOpts{
		ProjectName: "interrupted",
		Plan:        testPlan(),
	}

	run, err := client.Generate(ctx, opts)
	require.NoError(t, err)

	accepted, err := client.Cancel(ctx, run.Project.ID, run.TaskID)
	require.NoError(t, err)
	assert.True(accepted)

	// The run ends with the cancellation error.
	_, err = client.Wait(ctx, run.TaskID, waitTimeout)
	assert.Error(err)

	// Cancelling a task that is already gone is rejected.
	accepted, err = client.Cancel(ctx, run.Project.ID, run.TaskID)
	require.NoError(t, err)
	assert.False(accepted)

	status, err := client.Status(ctx, "interrupted")
	require.NoError(t, err)
	assert.Equal(lib.ProjectStatusFailed, status.Project.Status)

	// Resume finishes the book.
	run, err = client.Resume(ctx, opts)
	require.NoError(t, err)

	report, err := client.Wait(ctx, run.TaskID, waitTimeout)
	require.NoError(t, err)
	assert.Equal(7, report.TotalUnits)
	assert.LessOrEqual(report.UnitsDone, 7)

	status, err = client.Status(ctx, "interrupted")
	require.NoError(t, err)
	assert.Equal(lib.ProjectStatusComplete, status.Project.Status)
	assert.Nil(status.Checkpoint)
}

func TestResumeAfterFailure(t *testing.T) {
	assert := assert.New(t)

	// Fail the first attempt at section 2.1, succeed on the retry.
	var failed atomic.Bool
	client := newTestClient(t, lib.Config{
		Generator: &testGenerator{
			failSection: func(chapter, section int) error {
				if chapter == 2 && section == 1 && !failed.Swap(true) {
					return fmt.Errorf("model overloaded")
				}
				return nil
			},
		},
	})
	ctx := context.Background()

	opts := lib.GenerateOpts{
		ProjectName: "flaky-model",
		Plan:        testPlan(),
	}

	run, err := client.Generate(ctx, opts)
	require.NoError(t, err)

	_, err = client.Wait(ctx, run.TaskID, waitTimeout)
	require.Error(t, err)
	assert.Contains(err.Error(), "model overloaded")

	// The failed run left a checkpoint pointing at the failed section.
	status, err := client.Status(ctx, "flaky-model")
	require.NoError(t, err)
	assert.Equal(lib.ProjectStatusFailed, status.Project.Status)
	require.NotNil(t, status.Checkpoint)
	assert.Equal(3, status.Checkpoint.Step)
	assert.Equal(2, status.Checkpoint.Chapter)
	assert.Equal(1, status.Checkpoint.Section)

	require.Len(t, status.Steps, 3)
	failedStep := status.Steps[2]
	assert.Equal("sections", failedStep.StepName)
	assert.False(failedStep.Success)
	assert.NotEmpty(failedStep.Errors)

	// Resume drafts only the remaining units: the failed section and
	// the review.
	run, err = client.Resume(ctx, opts)
	require.NoError(t, err)

	report, err := client.Wait(ctx, run.TaskID, waitTimeout)
	require.NoError(t, err)
	assert.Equal(2, report.UnitsDone)
	assert.Equal(7, report.TotalUnits)
	assert.Equal(7, report.UsageUnits)

	status, err = client.Status(ctx, "flaky-model")
	require.NoError(t, err)
	assert.Equal(lib.ProjectStatusComplete, status.Project.Status)
	assert.Nil(status.Checkpoint)
	assert.Len(status.Sessions, 2)
}

func TestStatus(t *testing.T) {
	tests := map[string]struct {
		setup  func(t *testing.T, c *lib.Client) string // returns nameOrID to query
		expErr bool
		expIs  error
	}{
		"Getting status by name should work.": {
			setup: func(t *testing.T, c *lib.Client) string {
				t.Helper()
				runToCompletion(t, c, "by-name")
				return "by-name"
			},
		},

		"Getting status by project ID should work.": {
			setup: func(t *testing.T, c *lib.Client) string {
				t.Helper()
				run := runToCompletion(t, c, "by-id")
				return run.Project.ID
			},
		},

		"Getting status of an unknown project should fail with not found.": {
			setup: func(t *testing.T, c *lib.Client) string {
				return "does-not-exist"
			},
			expErr: true,
			expIs:  lib.ErrNotFound,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			client := newTestClient(t, lib.Config{})
			nameOrID := test.setup(t, client)

			status, err := client.Status(context.Background(), nameOrID)

			if test.expErr {
				assert.Error(err)
				if test.expIs != nil {
					assert.True(errors.Is(err, test.expIs), "expected error %v, got: %v", test.expIs, err)
				}
				return
			}

			assert.NoError(err)
			assert.Equal(lib.ProjectStatusComplete, status.Project.Status)
		})
	}
}

func TestListProjects(t *testing.T) {
	tests := map[string]struct {
		setup    func(t *testing.T, c *lib.Client)
		opts     *lib.ListProjectsOpts
		expCount int
	}{
		"Listing with no projects should return empty.": {
			setup:    func(t *testing.T, c *lib.Client) {},
			expCount: 0,
		},

		"Listing should return all projects when no filter.": {
			setup: func(t *testing.T, c *lib.Client) {
				t.Helper()
				runToCompletion(t, c, "book-a")
				runToCompletion(t, c, "book-b")
			},
			expCount: 2,
		},

		"Listing with status filter should filter correctly.": {
			setup: func(t *testing.T, c *lib.Client) {
				t.Helper()
				runToCompletion(t, c, "done-book")
			},
			opts:     &lib.ListProjectsOpts{Status: lib.ProjectStatusDraft},
			expCount: 0, // The only project is complete.
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			client := newTestClient(t, lib.Config{})
			test.setup(t, client)

			projects, err := client.ListProjects(context.Background(), test.opts)

			assert.NoError(err)
			assert.Len(projects, test.expCount)
		})
	}
}

func TestRemoveProject(t *testing.T) {
	tests := map[string]struct {
		config func() lib.Config
		setup  func(t *testing.T, c *lib.Client) string
		opts   *lib.RemoveProjectOpts
		expErr bool
		expIs  error
	}{
		"Removing a completed project should work.": {
			config: func() lib.Config { return lib.Config{} },
			setup: func(t *testing.T, c *lib.Client) string {
				t.Helper()
				runToCompletion(t, c, "finished-book")
				return "finished-book"
			},
		},

		"Removing a non-existent project should fail with not found.": {
			config: func() lib.Config { return lib.Config{} },
			setup: func(t *testing.T, c *lib.Client) string {
				return "ghost"
			},
			expErr: true,
			expIs:  lib.ErrNotFound,
		},

		"Removing a generating project without force should fail.": {
			config: func() lib.Config {
				return lib.Config{Generator: &testGenerator{delay: 5 * time.Second}}
			},
			setup: func(t *testing.T, c *lib.Client) string {
				t.Helper()
				_, err := c.Generate(context.Background(), lib.GenerateOpts{
					ProjectName: "in-flight",
					Plan:        testPlan(),
				})
				require.NoError(t, err)
				return "in-flight"
			},
			expErr: true,
			expIs:  lib.ErrNotValid,
		},

		"Removing a generating project with force should work.": {
			config: func() lib.Config {
				return lib.Config{Generator: &testGenerator{delay: 5 * time.Second}}
			},
			setup: func(t *testing.T, c *lib.Client) string {
				t.Helper()
				_, err := c.Generate(context.Background(), lib.GenerateOpts{
					ProjectName: "forced-out",
					Plan:        testPlan(),
				})
				require.NoError(t, err)
				return "forced-out"
			},
			opts: &lib.RemoveProjectOpts{Force: true},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			client := newTestClient(t, test.config())
			nameOrID := test.setup(t, client)
			ctx := context.Background()

			project, err := client.RemoveProject(ctx, nameOrID, test.opts)

			if test.expErr {
				assert.Error(err)
				if test.expIs != nil {
					assert.True(errors.Is(err, test.expIs), "expected error %v, got: %v", test.expIs, err)
				}
				return
			}

			assert.NoError(err)
			assert.Equal(nameOrID, project.Name)

			_, err = client.Status(ctx, nameOrID)
			assert.True(errors.Is(err, lib.ErrNotFound), "expected not found after removal, got: %v", err)
		})
	}
}

func TestDoctor(t *testing.T) {
	assert := assert.New(t)
	client := newTestClient(t, lib.Config{})

	report, err := client.Doctor(context.Background())
	require.NoError(t, err)

	require.NotEmpty(t, report.Checks)
	for _, check := range report.Checks {
		assert.NotEqual(lib.CheckStatusError, check.Status, "check %s failed: %s", check.ID, check.Message)
	}

	assert.Equal(4, report.PoolStats.PoolSize)
	assert.Equal(4, report.PoolStats.Available)
	assert.Equal(0, report.PoolStats.CheckedOut)
	assert.Greater(report.DBSizeBytes, int64(0))
	assert.Equal(int64(0), report.PurgedCache)
}

func TestSubmitAfterClose(t *testing.T) {
	assert := assert.New(t)

	client, err := lib.New(context.Background(), lib.Config{
		DBPath:  filepath.Join(t.TempDir(), "test.db"),
		DataDir: t.TempDir(),
	})
	require.NoError(t, err)
	require.NoError(t, client.Close())

	_, err = client.Generate(context.Background(), lib.GenerateOpts{
		ProjectName: "too-late",
		Plan:        testPlan(),
	})
	assert.Error(err)
	assert.True(errors.Is(err, lib.ErrClosed), "expected closed, got: %v", err)
}

// runToCompletion starts a run and waits for its report.
func runToCompletion(t *testing.T, c *lib.Client, name string) *lib.Run {
	t.Helper()
	ctx := context.Background()

	run, err := c.Generate(ctx, lib.GenerateOpts{
		ProjectName: name,
		Plan:        testPlan(),
	})
	require.NoError(t, err)

	_, err = c.Wait(ctx, run.TaskID, waitTimeout)
	require.NoError(t, err)

	return run
}
