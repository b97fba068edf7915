package steps

import (
	"context"
	"fmt"

	"github.com/scribahq/scriba/internal/workflow"
)

// Summaries generates one summary per chapter, checkpointing after each
// so an interrupted run resumes at the first chapter not yet summarized.
type Summaries struct {
	cfg Config
}

// NewSummaries creates the chapter summaries step.
func NewSummaries(cfg Config) Summaries {
	cfg.defaults()
	return Summaries{cfg: cfg}
}

// Name satisfies workflow.Step.
func (Summaries) Name() string { return "chapter-summaries" }

// Validate satisfies workflow.Step.
func (Summaries) Validate(ctx context.Context, rt *workflow.Runtime) error {
	return rt.PreviousStepSucceeded(ctx)
}

// Execute satisfies workflow.Step.
func (s Summaries) Execute(ctx context.Context, rt *workflow.Runtime) (map[string]any, error) {
	syn, _, err := synopsis(ctx, rt, s.cfg.CacheTTL)
	if err != nil {
		return nil, err
	}

	generated, hits := 0, 0
	startCh, _ := rt.ResumeCursor(rt.StepNumber())
	for ch := startCh; ch <= len(rt.Plan.Chapters); ch++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		_, cached, err := chapterSummary(ctx, rt, s.cfg.CacheTTL, syn, ch)
		if err != nil {
			return nil, err
		}
		if cached {
			hits++
		} else {
			generated++
		}

		rt.UnitDone(1+ch, fmt.Sprintf("chapter %d/%d summary", ch, len(rt.Plan.Chapters)))
		if err := rt.WriteCheckpoint(ctx, ch+1, 1); err != nil {
			return nil, err
		}
	}

	return map[string]any{
		"chapters":   len(rt.Plan.Chapters),
		"generated":  generated,
		"cache_hits": hits,
	}, nil
}
