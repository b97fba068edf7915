package steps

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/scribahq/scriba/internal/generation"
	"github.com/scribahq/scriba/internal/model"
	"github.com/scribahq/scriba/internal/workflow"
)

// Sections drafts every section of every chapter in plan order. It is
// the long step: it checkpoints after every section and consults the
// content cache before generating, so interrupted work is never paid
// for twice.
type Sections struct {
	cfg Config
}

// NewSections creates the section drafting step.
func NewSections(cfg Config) Sections {
	cfg.defaults()
	return Sections{cfg: cfg}
}

// Name satisfies workflow.Step.
func (Sections) Name() string { return "sections" }

// Validate satisfies workflow.Step.
func (Sections) Validate(ctx context.Context, rt *workflow.Runtime) error {
	return rt.PreviousStepSucceeded(ctx)
}

// Execute satisfies workflow.Step.
func (s Sections) Execute(ctx context.Context, rt *workflow.Runtime) (map[string]any, error) {
	syn, _, err := synopsis(ctx, rt, s.cfg.CacheTTL)
	if err != nil {
		return nil, err
	}

	// Progress units 1..1+N are the outline and chapter summaries.
	base := 1 + len(rt.Plan.Chapters)
	generated, hits, words := 0, 0, 0

	startCh, sec := rt.ResumeCursor(rt.StepNumber())
	for ch := startCh; ch <= len(rt.Plan.Chapters); ch++ {
		chapter := rt.Plan.Chapters[ch-1]

		summary, _, err := chapterSummary(ctx, rt, s.cfg.CacheTTL, syn, ch)
		if err != nil {
			return nil, err
		}

		for ; sec <= chapter.Sections; sec++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			text, cached, err := s.section(ctx, rt, chapter, summary, ch, sec)
			if err != nil {
				return nil, err
			}
			if cached {
				hits++
			} else {
				generated++
			}
			words += len(strings.Fields(text))

			done := base + sectionsBefore(rt.Plan, ch) + sec
			rt.UnitDone(done, fmt.Sprintf("chapter %d section %d/%d", ch, sec, chapter.Sections))

			nextCh, nextSec := ch, sec+1
			if nextSec > chapter.Sections {
				nextCh, nextSec = ch+1, 1
			}
			if err := rt.WriteCheckpoint(ctx, nextCh, nextSec); err != nil {
				return nil, err
			}
		}
		sec = 1
	}

	return map[string]any{
		"sections":   rt.Plan.TotalSections(),
		"generated":  generated,
		"cache_hits": hits,
		"words":      words,
	}, nil
}

// section returns one section's prose from cache, generating and
// caching it on a miss.
func (s Sections) section(ctx context.Context, rt *workflow.Runtime, chapter model.PlanChapter, summary string, ch, sec int) (string, bool, error) {
	key := fmt.Sprintf("%d.%d", ch, sec)
	if text := cachedContent(ctx, rt, scopeSection, kindProse, key); text != "" {
		return text, true, nil
	}

	start := time.Now()
	res, err := rt.Generator.GenerateSection(ctx, generation.SectionRequest{
		ProjectID:      rt.Project.ID,
		Style:          rt.Plan.Style,
		ChapterTitle:   chapter.Title,
		ChapterSummary: summary,
		Chapter:        ch,
		Section:        sec,
	})
	if err != nil {
		return "", false, fmt.Errorf("could not generate chapter %d section %d: %w", ch, sec, err)
	}
	recordUsage(ctx, rt, "generate_section", fmt.Sprintf("chapter %d section %d", ch, sec), res.Units, time.Since(start))
	storeContent(ctx, rt, s.cfg.CacheTTL, scopeSection, kindProse, key, res.Text)

	return res.Text, false, nil
}
