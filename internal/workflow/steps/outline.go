package steps

import (
	"context"
	"fmt"

	"github.com/scribahq/scriba/internal/workflow"
)

// Outline generates the book synopsis from the plan.
type Outline struct {
	cfg Config
}

// NewOutline creates the outline step.
func NewOutline(cfg Config) Outline {
	cfg.defaults()
	return Outline{cfg: cfg}
}

// Name satisfies workflow.Step.
func (Outline) Name() string { return "outline" }

// Validate checks storage is reachable and the plan itself is sound
// before any content gets generated.
func (Outline) Validate(ctx context.Context, rt *workflow.Runtime) error {
	if err := rt.StorageReachable(ctx); err != nil {
		return err
	}
	if err := rt.Plan.Validate(); err != nil {
		return fmt.Errorf("invalid plan: %w", err)
	}
	return nil
}

// Execute satisfies workflow.Step.
func (s Outline) Execute(ctx context.Context, rt *workflow.Runtime) (map[string]any, error) {
	syn, cached, err := synopsis(ctx, rt, s.cfg.CacheTTL)
	if err != nil {
		return nil, err
	}
	rt.UnitDone(1, "outline")

	return map[string]any{
		"synopsis_chars": len(syn),
		"cache_hit":      cached,
	}, nil
}
