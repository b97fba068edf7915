package workflow_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scribahq/scriba/internal/generation/fake"
	"github.com/scribahq/scriba/internal/model"
	"github.com/scribahq/scriba/internal/storage/memory"
	"github.com/scribahq/scriba/internal/workflow"
)

func newTestRuntime(t *testing.T) (*workflow.Runtime, *memory.Repository) {
	t.Helper()
	ctx := context.Background()

	repo, err := memory.NewRepository(memory.RepositoryConfig{})
	require.NoError(t, err)

	project := model.Project{ID: "prj-1", Name: "draft", Status: model.ProjectStatusGenerating}
	require.NoError(t, repo.CreateProject(ctx, project))

	gen, err := fake.NewGenerator(fake.GeneratorConfig{})
	require.NoError(t, err)

	rt, err := workflow.NewRuntime(workflow.RuntimeConfig{
		Project:   project,
		Plan:      model.Plan{Title: "t", Chapters: []model.PlanChapter{{Title: "one", Sections: 1}}},
		Repo:      repo,
		Generator: gen,
	})
	require.NoError(t, err)

	return rt, repo
}

func noopStep(name string, ran *[]string) workflow.StepFunc {
	return workflow.StepFunc{
		StepName: name,
		ExecuteFn: func(ctx context.Context, rt *workflow.Runtime) (map[string]any, error) {
			*ran = append(*ran, name)
			return map[string]any{"step": name}, nil
		},
	}
}

func TestSequenceRun(t *testing.T) {
	tests := map[string]struct {
		steps      func(ran *[]string) []workflow.Step
		checkpoint *model.Checkpoint
		expRan     []string
		expErr     bool
		errMsg     string
		check      func(t *testing.T, repo *memory.Repository, runErr error)
	}{
		"All steps run in order and the checkpoint ends cleared": {
			steps: func(ran *[]string) []workflow.Step {
				return []workflow.Step{noopStep("first", ran), noopStep("second", ran), noopStep("third", ran)}
			},
			expRan: []string{"first", "second", "third"},
			check: func(t *testing.T, repo *memory.Repository, runErr error) {
				results, err := repo.ListStepResults(context.Background(), "prj-1")
				require.NoError(t, err)
				require.Len(t, results, 3)
				for i, res := range results {
					assert.Equal(t, i+1, res.StepNumber)
					assert.True(t, res.Success)
					assert.False(t, res.StartedAt.IsZero())
					assert.False(t, res.FinishedAt.IsZero())
				}

				cp, err := repo.GetCheckpoint(context.Background(), "prj-1")
				require.NoError(t, err)
				assert.Nil(t, cp)
			},
		},

		"A failed step halts the sequence before the next one": {
			steps: func(ran *[]string) []workflow.Step {
				return []workflow.Step{
					noopStep("first", ran),
					workflow.StepFunc{
						StepName: "second",
						ExecuteFn: func(ctx context.Context, rt *workflow.Runtime) (map[string]any, error) {
							*ran = append(*ran, "second")
							return nil, fmt.Errorf("generation exploded")
						},
					},
					noopStep("third", ran),
				}
			},
			expRan: []string{"first", "second"},
			expErr: true,
			errMsg: "generation exploded",
			check: func(t *testing.T, repo *memory.Repository, runErr error) {
				assert.ErrorIs(t, runErr, model.ErrStepFailed)

				res, err := repo.GetStepResult(context.Background(), "prj-1", 2)
				require.NoError(t, err)
				assert.False(t, res.Success)
				require.NotEmpty(t, res.Errors)
				assert.Contains(t, res.Errors[0], "generation exploded")

				// No result row for the step that never ran.
				_, err = repo.GetStepResult(context.Background(), "prj-1", 3)
				assert.ErrorIs(t, err, model.ErrNotFound)
			},
		},

		"A panicking step fails like any other error": {
			steps: func(ran *[]string) []workflow.Step {
				return []workflow.Step{
					workflow.StepFunc{
						StepName: "first",
						ExecuteFn: func(ctx context.Context, rt *workflow.Runtime) (map[string]any, error) {
							panic("nil map write")
						},
					},
					noopStep("second", ran),
				}
			},
			expRan: []string{},
			expErr: true,
			errMsg: "panicked",
			check: func(t *testing.T, repo *memory.Repository, runErr error) {
				assert.ErrorIs(t, runErr, model.ErrStepFailed)

				res, err := repo.GetStepResult(context.Background(), "prj-1", 1)
				require.NoError(t, err)
				assert.False(t, res.Success)
				require.NotEmpty(t, res.Errors)
				assert.Contains(t, res.Errors[0], "panicked")
			},
		},

		"A step failing validation never executes": {
			steps: func(ran *[]string) []workflow.Step {
				return []workflow.Step{
					workflow.StepFunc{
						StepName:   "first",
						ValidateFn: func(ctx context.Context, rt *workflow.Runtime) error { return fmt.Errorf("not ready") },
						ExecuteFn: func(ctx context.Context, rt *workflow.Runtime) (map[string]any, error) {
							*ran = append(*ran, "first")
							return nil, nil
						},
					},
				}
			},
			expRan: []string{},
			expErr: true,
			errMsg: "validation failed",
		},

		"A checkpoint resumes at the step it names": {
			steps: func(ran *[]string) []workflow.Step {
				return []workflow.Step{noopStep("first", ran), noopStep("second", ran), noopStep("third", ran)}
			},
			checkpoint: &model.Checkpoint{Version: model.CheckpointVersion, Step: 2, Chapter: 4, Section: 2},
			expRan:     []string{"second", "third"},
		},

		"A checkpoint outside the workflow starts over with a warning": {
			steps: func(ran *[]string) []workflow.Step {
				return []workflow.Step{noopStep("first", ran), noopStep("second", ran)}
			},
			checkpoint: &model.Checkpoint{Version: model.CheckpointVersion, Step: 9, Chapter: 1, Section: 1},
			expRan:     []string{"first", "second"},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			ctx := context.Background()

			rt, repo := newTestRuntime(t)
			if test.checkpoint != nil {
				require.NoError(t, repo.SaveCheckpoint(ctx, "prj-1", *test.checkpoint))
			}

			ran := []string{}
			seq, err := workflow.NewSequence(workflow.SequenceConfig{Steps: test.steps(&ran)})
			require.NoError(t, err)

			err = seq.Run(ctx, rt)

			if test.expErr {
				assert.Error(err)
				if test.errMsg != "" {
					assert.Contains(err.Error(), test.errMsg)
				}
			} else {
				assert.NoError(err)
			}
			assert.Equal(test.expRan, ran)

			if test.check != nil {
				test.check(t, repo, err)
			}
		})
	}
}

func TestRuntimeResumeCursor(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	rt, repo := newTestRuntime(t)
	require.NoError(repo.SaveCheckpoint(ctx, "prj-1", model.Checkpoint{
		Version: model.CheckpointVersion, Step: 2, Chapter: 4, Section: 2,
	}))

	type cursor struct{ chapter, section int }
	seen := map[string]cursor{}
	record := func(name string) workflow.StepFunc {
		return workflow.StepFunc{
			StepName: name,
			ExecuteFn: func(ctx context.Context, rt *workflow.Runtime) (map[string]any, error) {
				ch, sec := rt.ResumeCursor(rt.StepNumber())
				seen[name] = cursor{ch, sec}
				return nil, nil
			},
		}
	}

	seq, err := workflow.NewSequence(workflow.SequenceConfig{
		Steps: []workflow.Step{record("first"), record("second"), record("third")},
	})
	require.NoError(err)
	require.NoError(seq.Run(ctx, rt))

	// Only the checkpointed step gets the stored cursor, later steps
	// start from the top.
	assert.Equal(cursor{4, 2}, seen["second"])
	assert.Equal(cursor{1, 1}, seen["third"])
	_, ran := seen["first"]
	assert.False(ran)
}

func TestRuntimeCheckpointSurvivesFailure(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	rt, repo := newTestRuntime(t)

	seq, err := workflow.NewSequence(workflow.SequenceConfig{
		Steps: []workflow.Step{
			workflow.StepFunc{
				StepName: "long",
				ExecuteFn: func(ctx context.Context, rt *workflow.Runtime) (map[string]any, error) {
					if err := rt.WriteCheckpoint(ctx, 2, 3); err != nil {
						return nil, err
					}
					return nil, fmt.Errorf("died mid chapter")
				},
			},
		},
	})
	require.NoError(err)

	err = seq.Run(ctx, rt)
	require.Error(err)
	assert.ErrorIs(err, model.ErrStepFailed)

	cp, err := repo.GetCheckpoint(ctx, "prj-1")
	require.NoError(err)
	require.NotNil(cp)
	assert.Equal(1, cp.Step)
	assert.Equal(2, cp.Chapter)
	assert.Equal(3, cp.Section)
}

func TestSequenceInterrupted(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	rt, repo := newTestRuntime(t)

	ran := []string{}
	seq, err := workflow.NewSequence(workflow.SequenceConfig{
		Steps: []workflow.Step{noopStep("first", &ran)},
	})
	require.NoError(err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = seq.Run(ctx, rt)
	require.Error(err)
	assert.True(errors.Is(err, context.Canceled))
	assert.Empty(ran)

	results, err := repo.ListStepResults(context.Background(), "prj-1")
	require.NoError(err)
	assert.Empty(results)
}

func TestNewRuntimeValidation(t *testing.T) {
	tests := map[string]struct {
		config func(cfg *workflow.RuntimeConfig)
		expErr bool
	}{
		"A complete config is accepted": {
			config: func(cfg *workflow.RuntimeConfig) {},
		},

		"A project is required": {
			config: func(cfg *workflow.RuntimeConfig) { cfg.Project = model.Project{} },
			expErr: true,
		},

		"A repository is required": {
			config: func(cfg *workflow.RuntimeConfig) { cfg.Repo = nil },
			expErr: true,
		},

		"A content generator is required": {
			config: func(cfg *workflow.RuntimeConfig) { cfg.Generator = nil },
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			repo, err := memory.NewRepository(memory.RepositoryConfig{})
			require.NoError(t, err)
			gen, err := fake.NewGenerator(fake.GeneratorConfig{})
			require.NoError(t, err)

			cfg := workflow.RuntimeConfig{
				Project:   model.Project{ID: "prj-1", Name: "draft"},
				Plan:      model.Plan{Title: "t", Chapters: []model.PlanChapter{{Title: "one", Sections: 1}}},
				Repo:      repo,
				Generator: gen,
			}
			test.config(&cfg)

			_, err = workflow.NewRuntime(cfg)

			if test.expErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
