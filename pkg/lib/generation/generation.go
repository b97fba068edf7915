// Package generation exposes the content generator interface of the
// scriba SDK.
//
// The engine drives the workflow, checkpoints and persistence; what the
// text actually says comes from a [Generator]. The SDK ships a fake
// generator producing deterministic placeholder content (the default),
// and embedders plug their AI provider by implementing [Generator] and
// setting it on lib.Config:
//
//	type myGenerator struct{ api *myprovider.Client }
//
//	func (g *myGenerator) GenerateOutline(ctx context.Context, req generation.OutlineRequest) (*generation.Outline, error) {
//	    text, tokens, err := g.api.Complete(ctx, outlinePrompt(req.Plan))
//	    if err != nil {
//	        return nil, err
//	    }
//	    return &generation.Outline{Synopsis: text, Units: tokens}, nil
//	}
//	// ... remaining methods
//
// Implementations must honor context cancellation on every call: the
// engine cancels the context to stop a run, and a generator that ignores
// it delays the whole shutdown.
package generation

import "github.com/scribahq/scriba/internal/generation"

// Generator produces book content. The engine calls it once per outline,
// chapter summary, section and final review.
type Generator = generation.Generator

// OutlineRequest asks for a book synopsis matching a plan.
type OutlineRequest = generation.OutlineRequest

// Outline is the generated book skeleton. Units is the generator's own
// cost measure for the call and feeds usage accounting.
type Outline = generation.Outline

// ChapterSummaryRequest asks for the summary of one chapter.
type ChapterSummaryRequest = generation.ChapterSummaryRequest

// ChapterSummary is the generated summary of one chapter.
type ChapterSummary = generation.ChapterSummary

// SectionRequest asks for the prose of one section.
type SectionRequest = generation.SectionRequest

// SectionContent is the generated prose of one section.
type SectionContent = generation.SectionContent

// ReviewRequest asks for an editorial pass over the finished draft.
type ReviewRequest = generation.ReviewRequest

// Review is the generated editorial feedback.
type Review = generation.Review
