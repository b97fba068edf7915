package model

import (
	"fmt"
	"time"
)

// ProjectStatus represents the state of an authoring project.
type ProjectStatus string

const (
	// ProjectStatusDraft indicates no generation has run yet.
	ProjectStatusDraft ProjectStatus = "draft"
	// ProjectStatusGenerating indicates a generation workflow is in flight.
	ProjectStatusGenerating ProjectStatus = "generating"
	// ProjectStatusComplete indicates the last workflow finished all steps.
	ProjectStatusComplete ProjectStatus = "complete"
	// ProjectStatusFailed indicates the last workflow halted on a failed step.
	ProjectStatusFailed ProjectStatus = "failed"
)

// Project is a book project. Everything else in storage hangs off one.
type Project struct {
	ID        string
	Name      string
	Status    ProjectStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate validates the project fields required at creation time.
func (p *Project) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("id is required: %w", ErrNotValid)
	}
	if p.Name == "" {
		return fmt.Errorf("name is required: %w", ErrNotValid)
	}
	return nil
}
