package model

import (
	"fmt"
	"time"
)

// CheckpointVersion is the schema version written by this build. Readers
// treat records with a different version as absent rather than failing.
const CheckpointVersion = 1

// Checkpoint is the minimal durable state needed to resume a generation
// workflow: which step was running and which unit inside it completed last.
// Cursor fields are 1-based; a resumed run restarts at the recorded unit.
type Checkpoint struct {
	Version   int
	Step      int
	Chapter   int
	Section   int
	UpdatedAt time.Time
}

// Validate checks the checkpoint is structurally usable for a resume.
func (c Checkpoint) Validate() error {
	if c.Version != CheckpointVersion {
		return fmt.Errorf("unsupported checkpoint version %d: %w", c.Version, ErrNotValid)
	}
	if c.Step < 1 {
		return fmt.Errorf("step must be positive: %w", ErrNotValid)
	}
	if c.Chapter < 1 {
		return fmt.Errorf("chapter must be positive: %w", ErrNotValid)
	}
	if c.Section < 1 {
		return fmt.Errorf("section must be positive: %w", ErrNotValid)
	}
	return nil
}
