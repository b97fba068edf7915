package io

import (
	"context"
	"fmt"
	"io/fs"

	"gopkg.in/yaml.v3"

	"github.com/scribahq/scriba/internal/model"
)

// PlanYAMLRepository loads generation plans from YAML files.
type PlanYAMLRepository struct {
	fs fs.FS
}

// NewPlanYAMLRepository creates a new YAML plan repository.
func NewPlanYAMLRepository(filesystem fs.FS) *PlanYAMLRepository {
	return &PlanYAMLRepository{fs: filesystem}
}

// GetPlan loads a generation plan from a YAML file and returns a validated
// domain model.
func (r *PlanYAMLRepository) GetPlan(ctx context.Context, path string) (model.Plan, error) {
	data, err := fs.ReadFile(r.fs, path)
	if err != nil {
		return model.Plan{}, fmt.Errorf("reading plan file: %w", err)
	}

	if ctx.Err() != nil {
		return model.Plan{}, ctx.Err()
	}

	var plan Plan
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return model.Plan{}, fmt.Errorf("parsing YAML: %w", err)
	}

	if err := plan.validate(); err != nil {
		return model.Plan{}, fmt.Errorf("invalid plan: %w", err)
	}

	return plan.toModel(), nil
}

// Plan represents the YAML structure of a generation plan.
type Plan struct {
	Title    string        `yaml:"title"`
	Style    string        `yaml:"style"`
	Chapters []PlanChapter `yaml:"chapters"`
}

// PlanChapter represents the YAML structure of one chapter entry.
type PlanChapter struct {
	Title    string `yaml:"title"`
	Sections int    `yaml:"sections"`
}

func (p Plan) validate() error {
	if p.Title == "" {
		return fmt.Errorf("title is required")
	}
	if len(p.Chapters) == 0 {
		return fmt.Errorf("at least one chapter is required")
	}
	for i, c := range p.Chapters {
		if c.Title == "" {
			return fmt.Errorf("chapter %d: title is required", i+1)
		}
		if c.Sections <= 0 {
			return fmt.Errorf("chapter %d: sections must be positive, got: %d", i+1, c.Sections)
		}
	}
	return nil
}

func (p Plan) toModel() model.Plan {
	plan := model.Plan{
		Title: p.Title,
		Style: p.Style,
	}
	for _, c := range p.Chapters {
		plan.Chapters = append(plan.Chapters, model.PlanChapter{
			Title:    c.Title,
			Sections: c.Sections,
		})
	}
	return plan
}
