package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/alecthomas/kingpin/v2"

	"github.com/scribahq/scriba/internal/app/list"
	"github.com/scribahq/scriba/internal/model"
	"github.com/scribahq/scriba/internal/printer"
)

type ListCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	statusFilter string
	format       string
}

// NewListCommand returns the list command.
func NewListCommand(rootCmd *RootCommand, app *kingpin.Application) *ListCommand {
	c := &ListCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("list", "List all projects.")
	c.Cmd.Flag("status", "Filter by status (draft, generating, complete, failed).").StringVar(&c.statusFilter)
	c.Cmd.Flag("format", "Output format (table, json).").Default("table").EnumVar(&c.format, "table", "json")

	return c
}

func (c ListCommand) Name() string { return c.Cmd.FullCommand() }

func (c ListCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	// Parse status filter if provided.
	var statusFilter *model.ProjectStatus
	if c.statusFilter != "" {
		status := model.ProjectStatus(strings.ToLower(c.statusFilter))
		// Validate status value.
		switch status {
		case model.ProjectStatusDraft, model.ProjectStatusGenerating, model.ProjectStatusComplete, model.ProjectStatusFailed:
			statusFilter = &status
		default:
			return fmt.Errorf("invalid status filter: %s (must be: draft, generating, complete, failed)", c.statusFilter)
		}
	}

	// Initialize storage (SQLite).
	stack, err := c.rootCmd.openStorage(ctx)
	if err != nil {
		return err
	}
	defer stack.Close()

	// Create list service.
	svc, err := list.NewService(list.ServiceConfig{
		Repository: stack.Repo,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	// Execute list.
	projects, err := svc.Run(ctx, list.Request{
		StatusFilter: statusFilter,
	})
	if err != nil {
		return fmt.Errorf("could not list projects: %w", err)
	}

	// Print output.
	var p printer.Printer
	switch c.format {
	case "json":
		p = printer.NewJSONPrinter(c.rootCmd.Stdout)
	default: // table
		p = printer.NewTablePrinter(c.rootCmd.Stdout)
	}

	if err := p.PrintList(projects); err != nil {
		return fmt.Errorf("could not print list: %w", err)
	}

	return nil
}
