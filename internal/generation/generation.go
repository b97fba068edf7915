// Package generation defines the capability boundary towards content
// generators. The engine drives the workflow and persists everything;
// what the text actually says, and which provider says it, lives behind
// the Generator interface.
package generation

import (
	"context"

	"github.com/scribahq/scriba/internal/model"
)

// OutlineRequest asks for a book synopsis matching a plan.
type OutlineRequest struct {
	ProjectID string
	Plan      model.Plan
}

// Outline is the generated book skeleton. Units is the generator's own
// cost measure for the call and feeds usage accounting.
type Outline struct {
	Synopsis string
	Units    int
}

// ChapterSummaryRequest asks for the summary of one chapter.
type ChapterSummaryRequest struct {
	ProjectID    string
	Style        string
	BookTitle    string
	Synopsis     string
	ChapterTitle string
	Chapter      int
}

// ChapterSummary is the generated summary of one chapter.
type ChapterSummary struct {
	Summary string
	Units   int
}

// SectionRequest asks for the prose of one section.
type SectionRequest struct {
	ProjectID      string
	Style          string
	ChapterTitle   string
	ChapterSummary string
	Chapter        int
	Section        int
}

// SectionContent is the generated prose of one section.
type SectionContent struct {
	Text  string
	Units int
}

// ReviewRequest asks for an editorial pass over the finished draft.
type ReviewRequest struct {
	ProjectID string
	Title     string
	Chapters  int
}

// Review is the generated editorial feedback.
type Review struct {
	Notes []string
	Units int
}

// Generator produces book content. Implementations must honor context
// cancellation on every call.
type Generator interface {
	GenerateOutline(ctx context.Context, req OutlineRequest) (*Outline, error)
	GenerateChapterSummary(ctx context.Context, req ChapterSummaryRequest) (*ChapterSummary, error)
	GenerateSection(ctx context.Context, req SectionRequest) (*SectionContent, error)
	ReviewManuscript(ctx context.Context, req ReviewRequest) (*Review, error)
}
