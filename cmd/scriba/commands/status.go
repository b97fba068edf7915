package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/scribahq/scriba/internal/app/status"
	"github.com/scribahq/scriba/internal/printer"
)

type StatusCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	nameOrID string
	format   string
}

// NewStatusCommand returns the status command.
func NewStatusCommand(rootCmd *RootCommand, app *kingpin.Application) *StatusCommand {
	c := &StatusCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("status", "Get detailed status of a project.")
	c.Cmd.Arg("name-or-id", "Project name or ID.").Required().StringVar(&c.nameOrID)
	c.Cmd.Flag("format", "Output format (table, json).").Default("table").EnumVar(&c.format, "table", "json")

	return c
}

func (c StatusCommand) Name() string { return c.Cmd.FullCommand() }

func (c StatusCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	// Initialize storage (SQLite).
	stack, err := c.rootCmd.openStorage(ctx)
	if err != nil {
		return err
	}
	defer stack.Close()

	// Create status service.
	svc, err := status.NewService(status.ServiceConfig{
		Repository: stack.Repo,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	// Execute status.
	report, err := svc.Run(ctx, status.Request{
		NameOrID: c.nameOrID,
	})
	if err != nil {
		return fmt.Errorf("could not get project status: %w", err)
	}

	// Print output.
	var p printer.Printer
	switch c.format {
	case "json":
		p = printer.NewJSONPrinter(c.rootCmd.Stdout)
	default: // table
		p = printer.NewTablePrinter(c.rootCmd.Stdout)
	}

	if err := p.PrintStatus(*report); err != nil {
		return fmt.Errorf("could not print status: %w", err)
	}

	return nil
}
