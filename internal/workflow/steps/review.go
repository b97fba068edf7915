package steps

import (
	"context"
	"fmt"
	"time"

	"github.com/scribahq/scriba/internal/generation"
	"github.com/scribahq/scriba/internal/model"
	"github.com/scribahq/scriba/internal/workflow"
)

// Review runs the editorial pass over the finished draft, rolls up the
// project's usage and marks the project complete. It always generates
// fresh notes so the review reflects the manuscript as drafted.
type Review struct {
	cfg Config
}

// NewReview creates the review step.
func NewReview(cfg Config) Review {
	cfg.defaults()
	return Review{cfg: cfg}
}

// Name satisfies workflow.Step.
func (Review) Name() string { return "review" }

// Validate satisfies workflow.Step.
func (Review) Validate(ctx context.Context, rt *workflow.Runtime) error {
	return rt.PreviousStepSucceeded(ctx)
}

// Execute satisfies workflow.Step.
func (s Review) Execute(ctx context.Context, rt *workflow.Runtime) (map[string]any, error) {
	start := time.Now()
	rev, err := rt.Generator.ReviewManuscript(ctx, generation.ReviewRequest{
		ProjectID: rt.Project.ID,
		Title:     rt.Plan.Title,
		Chapters:  len(rt.Plan.Chapters),
	})
	if err != nil {
		return nil, fmt.Errorf("could not review manuscript: %w", err)
	}
	recordUsage(ctx, rt, "review_manuscript", rt.Plan.Title, rev.Units, time.Since(start))

	rt.UnitDone(TotalUnits(rt.Plan), "review")

	units, took, err := rt.Repo.SummarizeUsage(ctx, rt.Project.ID)
	if err != nil {
		rt.Logger.Warningf("Could not summarize usage: %v", err)
	}

	if err := rt.Repo.UpdateProjectStatus(ctx, rt.Project.ID, model.ProjectStatusComplete); err != nil {
		return nil, fmt.Errorf("could not mark project complete: %w", err)
	}
	rt.Project.Status = model.ProjectStatusComplete

	return map[string]any{
		"notes":          rev.Notes,
		"total_units":    units,
		"total_duration": took.String(),
	}, nil
}
