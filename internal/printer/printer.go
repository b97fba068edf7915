package printer

import "github.com/scribahq/scriba/internal/model"

// Printer knows how to print project information in different formats.
type Printer interface {
	PrintList(projects []model.Project) error
	PrintStatus(report model.StatusReport) error
	PrintMessage(msg string) error
}
