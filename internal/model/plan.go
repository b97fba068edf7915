package model

import (
	"fmt"
)

// Plan describes what a generation workflow should produce: the book's
// shape as an ordered list of chapters, each with a fixed section count.
type Plan struct {
	Title    string
	Style    string
	Chapters []PlanChapter
}

// PlanChapter is one chapter entry in a plan.
type PlanChapter struct {
	Title    string
	Sections int
}

// TotalSections returns the number of section units across all chapters.
func (p Plan) TotalSections() int {
	total := 0
	for _, c := range p.Chapters {
		total += c.Sections
	}
	return total
}

// Validate validates the plan.
func (p Plan) Validate() error {
	if p.Title == "" {
		return fmt.Errorf("title is required: %w", ErrNotValid)
	}
	if len(p.Chapters) == 0 {
		return fmt.Errorf("at least one chapter is required: %w", ErrNotValid)
	}
	for i, c := range p.Chapters {
		if c.Title == "" {
			return fmt.Errorf("chapter %d title is required: %w", i+1, ErrNotValid)
		}
		if c.Sections < 1 {
			return fmt.Errorf("chapter %d must have at least one section: %w", i+1, ErrNotValid)
		}
	}
	return nil
}
