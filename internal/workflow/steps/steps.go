// Package steps contains the workflow steps that draft a book from a
// plan: outline, chapter summaries, section prose and a final review.
package steps

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/scribahq/scriba/internal/generation"
	"github.com/scribahq/scriba/internal/model"
	"github.com/scribahq/scriba/internal/workflow"
)

// Content cache coordinates. Keys must stay stable across runs so a
// resumed or re-run workflow finds what earlier runs produced.
const (
	scopeBook    = "book"
	scopeChapter = "chapter"
	scopeSection = "section"

	kindOutline = "outline"
	kindSummary = "summary"
	kindProse   = "prose"
)

// Config tunes behavior shared by every book step.
type Config struct {
	// CacheTTL bounds how long generated content is reused across runs.
	CacheTTL time.Duration
}

func (c *Config) defaults() {
	if c.CacheTTL <= 0 {
		c.CacheTTL = 24 * time.Hour
	}
}

// Book returns the ordered steps that draft a complete book.
func Book(cfg Config) []workflow.Step {
	return []workflow.Step{
		NewOutline(cfg),
		NewSummaries(cfg),
		NewSections(cfg),
		NewReview(cfg),
	}
}

// TotalUnits returns how many units of work a full book run performs:
// one outline, one summary per chapter, every section, one review.
func TotalUnits(p model.Plan) int {
	return 2 + len(p.Chapters) + p.TotalSections()
}

// sectionsBefore returns how many plan sections precede the given
// 1-based chapter.
func sectionsBefore(p model.Plan, chapter int) int {
	n := 0
	for i := 0; i < chapter-1 && i < len(p.Chapters); i++ {
		n += p.Chapters[i].Sections
	}
	return n
}

// cachedContent returns fresh cached content, or "" on a miss. Cache
// read errors degrade to a miss.
func cachedContent(ctx context.Context, rt *workflow.Runtime, scope, kind, key string) string {
	e, err := rt.Repo.GetCache(ctx, rt.Project.ID, scope, kind, key)
	if err != nil {
		if !errors.Is(err, model.ErrNotFound) {
			rt.Logger.Warningf("Cache lookup %s/%s/%s failed: %v", scope, kind, key, err)
		}
		return ""
	}
	return e.Content
}

// storeContent caches generated content for reuse by later runs. Cache
// write errors are not fatal, the content was already produced.
func storeContent(ctx context.Context, rt *workflow.Runtime, ttl time.Duration, scope, kind, key, content string) {
	e := model.CacheEntry{
		ProjectID: rt.Project.ID,
		Scope:     scope,
		Kind:      kind,
		Key:       key,
		Content:   content,
		ExpiresAt: time.Now().Add(ttl),
	}
	if err := rt.Repo.PutCache(ctx, e); err != nil {
		rt.Logger.Warningf("Could not cache %s/%s/%s: %v", scope, kind, key, err)
	}
}

// recordUsage appends one audit entry. Losing an audit row is not worth
// failing the run over, so errors only warn.
func recordUsage(ctx context.Context, rt *workflow.Runtime, op, detail string, units int, took time.Duration) {
	err := rt.Repo.AddUsage(ctx, model.UsageEntry{
		ProjectID: rt.Project.ID,
		Operation: op,
		Detail:    detail,
		Units:     units,
		Duration:  took,
	})
	if err != nil {
		rt.Logger.Warningf("Could not record %s usage: %v", op, err)
	}
}

// synopsis returns the book synopsis from cache, generating and caching
// it on a miss. Reports whether the cache served it.
func synopsis(ctx context.Context, rt *workflow.Runtime, ttl time.Duration) (string, bool, error) {
	if s := cachedContent(ctx, rt, scopeBook, kindOutline, "synopsis"); s != "" {
		return s, true, nil
	}

	start := time.Now()
	out, err := rt.Generator.GenerateOutline(ctx, generation.OutlineRequest{
		ProjectID: rt.Project.ID,
		Plan:      rt.Plan,
	})
	if err != nil {
		return "", false, fmt.Errorf("could not generate outline: %w", err)
	}
	recordUsage(ctx, rt, "generate_outline", rt.Plan.Title, out.Units, time.Since(start))
	storeContent(ctx, rt, ttl, scopeBook, kindOutline, "synopsis", out.Synopsis)

	return out.Synopsis, false, nil
}

// chapterSummary returns one chapter's summary from cache, generating
// and caching it on a miss. syn is the book synopsis, needed only when
// the summary has to be regenerated.
func chapterSummary(ctx context.Context, rt *workflow.Runtime, ttl time.Duration, syn string, chapter int) (string, bool, error) {
	key := strconv.Itoa(chapter)
	if s := cachedContent(ctx, rt, scopeChapter, kindSummary, key); s != "" {
		return s, true, nil
	}

	ch := rt.Plan.Chapters[chapter-1]
	start := time.Now()
	res, err := rt.Generator.GenerateChapterSummary(ctx, generation.ChapterSummaryRequest{
		ProjectID:    rt.Project.ID,
		Style:        rt.Plan.Style,
		BookTitle:    rt.Plan.Title,
		Synopsis:     syn,
		ChapterTitle: ch.Title,
		Chapter:      chapter,
	})
	if err != nil {
		return "", false, fmt.Errorf("could not generate chapter %d summary: %w", chapter, err)
	}
	recordUsage(ctx, rt, "generate_chapter_summary", ch.Title, res.Units, time.Since(start))
	storeContent(ctx, rt, ttl, scopeChapter, kindSummary, key, res.Summary)

	return res.Summary, false, nil
}
