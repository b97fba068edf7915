package printer

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/scribahq/scriba/internal/model"
)

// TablePrinter prints project information in a table format.
type TablePrinter struct {
	writer io.Writer
}

// NewTablePrinter creates a new table printer.
func NewTablePrinter(w io.Writer) *TablePrinter {
	return &TablePrinter{writer: w}
}

// PrintList prints projects in a table format.
func (t *TablePrinter) PrintList(projects []model.Project) error {
	if len(projects) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "NAME\tSTATUS\tCREATED\tUPDATED")

	for _, p := range projects {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.Name, p.Status, TimeAgo(p.CreatedAt), TimeAgo(p.UpdatedAt))
	}

	return nil
}

// PrintStatus prints a detailed project status report.
func (t *TablePrinter) PrintStatus(report model.StatusReport) error {
	p := report.Project

	fmt.Fprintf(t.writer, "Name:       %s\n", p.Name)
	fmt.Fprintf(t.writer, "ID:         %s\n", p.ID)
	fmt.Fprintf(t.writer, "Status:     %s\n", p.Status)
	fmt.Fprintf(t.writer, "Created:    %s\n", FormatTimestamp(p.CreatedAt))
	fmt.Fprintf(t.writer, "Updated:    %s\n", FormatTimestamp(p.UpdatedAt))
	fmt.Fprintf(t.writer, "Sessions:   %d\n", len(report.Sessions))
	fmt.Fprintf(t.writer, "Usage:      %d units in %s\n", report.UsageUnits, FormatDuration(report.UsageTime))

	if cp := report.Checkpoint; cp != nil {
		fmt.Fprintf(t.writer, "Resume at:  step %d, chapter %d, section %d (saved %s)\n",
			cp.Step, cp.Chapter, cp.Section, TimeAgo(cp.UpdatedAt))
	}

	if len(report.StepResults) > 0 {
		fmt.Fprintln(t.writer)

		tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "STEP\tNAME\tRESULT\tDURATION")
		for _, r := range report.StepResults {
			result := "ok"
			if !r.Success {
				result = "failed"
			}
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", r.StepNumber, r.StepName, result, FormatDuration(r.Duration()))
		}
		tw.Flush()

		// Print errors of failed steps after the table.
		for _, r := range report.StepResults {
			if r.Success || len(r.Errors) == 0 {
				continue
			}
			fmt.Fprintf(t.writer, "\nStep %d errors:\n", r.StepNumber)
			for _, e := range r.Errors {
				fmt.Fprintf(t.writer, "  - %s\n", e)
			}
		}
	}

	return nil
}

// PrintMessage prints a simple text message.
func (t *TablePrinter) PrintMessage(msg string) error {
	fmt.Fprintln(t.writer, msg)
	return nil
}
