package fake

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/scribahq/scriba/internal/generation"
	"github.com/scribahq/scriba/internal/log"
)

// GeneratorConfig is the configuration for the fake generator.
type GeneratorConfig struct {
	// Latency is simulated per call, interruptible by context cancellation.
	Latency time.Duration
	// FailSection makes GenerateSection fail for chosen units. Optional.
	FailSection func(chapter, section int) error
	Logger      log.Logger
}

func (c *GeneratorConfig) defaults() error {
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "generation.Fake"})
	return nil
}

// Generator is a fake implementation of generation.Generator. It produces
// deterministic content derived from the request, simulates latency and
// records every request so tests can assert what the engine asked for.
type Generator struct {
	latency     time.Duration
	failSection func(chapter, section int) error
	logger      log.Logger

	mu        sync.Mutex
	outlines  []generation.OutlineRequest
	summaries []generation.ChapterSummaryRequest
	sections  []generation.SectionRequest
	reviews   []generation.ReviewRequest
}

// NewGenerator creates a new fake generator.
func NewGenerator(cfg GeneratorConfig) (*Generator, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Generator{
		latency:     cfg.Latency,
		failSection: cfg.FailSection,
		logger:      cfg.Logger,
	}, nil
}

// GenerateOutline returns a deterministic synopsis for the plan.
func (g *Generator) GenerateOutline(ctx context.Context, req generation.OutlineRequest) (*generation.Outline, error) {
	if err := g.simulate(ctx); err != nil {
		return nil, err
	}

	g.mu.Lock()
	g.outlines = append(g.outlines, req)
	g.mu.Unlock()

	g.logger.Debugf("Generated outline for project %s", req.ProjectID)

	return &generation.Outline{
		Synopsis: fmt.Sprintf("A %s book titled %q in %d chapters.",
			orDefault(req.Plan.Style, "plain"), req.Plan.Title, len(req.Plan.Chapters)),
		Units: 1,
	}, nil
}

// GenerateChapterSummary returns a deterministic summary for the chapter.
func (g *Generator) GenerateChapterSummary(ctx context.Context, req generation.ChapterSummaryRequest) (*generation.ChapterSummary, error) {
	if err := g.simulate(ctx); err != nil {
		return nil, err
	}

	g.mu.Lock()
	g.summaries = append(g.summaries, req)
	g.mu.Unlock()

	return &generation.ChapterSummary{
		Summary: fmt.Sprintf("Chapter %d, %q, advances the story of %q.",
			req.Chapter, req.ChapterTitle, req.BookTitle),
		Units: 1,
	}, nil
}

// GenerateSection returns deterministic prose for the section, or the
// configured fault.
func (g *Generator) GenerateSection(ctx context.Context, req generation.SectionRequest) (*generation.SectionContent, error) {
	if err := g.simulate(ctx); err != nil {
		return nil, err
	}

	g.mu.Lock()
	g.sections = append(g.sections, req)
	g.mu.Unlock()

	if g.failSection != nil {
		if err := g.failSection(req.Chapter, req.Section); err != nil {
			return nil, err
		}
	}

	return &generation.SectionContent{
		Text:  fmt.Sprintf("[%s %d.%d] %s", req.ChapterTitle, req.Chapter, req.Section, req.ChapterSummary),
		Units: 1,
	}, nil
}

// ReviewManuscript returns deterministic editorial notes.
func (g *Generator) ReviewManuscript(ctx context.Context, req generation.ReviewRequest) (*generation.Review, error) {
	if err := g.simulate(ctx); err != nil {
		return nil, err
	}

	g.mu.Lock()
	g.reviews = append(g.reviews, req)
	g.mu.Unlock()

	return &generation.Review{
		Notes: []string{
			fmt.Sprintf("%q reads consistently across its %d chapters.", req.Title, req.Chapters),
		},
		Units: 1,
	}, nil
}

// SectionRequests returns every section request seen so far.
func (g *Generator) SectionRequests() []generation.SectionRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]generation.SectionRequest, len(g.sections))
	copy(out, g.sections)
	return out
}

// SummaryRequests returns every chapter summary request seen so far.
func (g *Generator) SummaryRequests() []generation.ChapterSummaryRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]generation.ChapterSummaryRequest, len(g.summaries))
	copy(out, g.summaries)
	return out
}

// OutlineCount returns how many outline requests were made.
func (g *Generator) OutlineCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.outlines)
}

// ReviewCount returns how many review requests were made.
func (g *Generator) ReviewCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.reviews)
}

func (g *Generator) simulate(ctx context.Context) error {
	if g.latency <= 0 {
		return ctx.Err()
	}
	select {
	case <-time.After(g.latency):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
