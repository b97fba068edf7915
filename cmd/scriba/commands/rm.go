package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/scribahq/scriba/internal/app/remove"
	"github.com/scribahq/scriba/internal/printer"
)

type RemoveCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	nameOrID string
	force    bool
}

// NewRemoveCommand returns the remove command.
func NewRemoveCommand(rootCmd *RootCommand, app *kingpin.Application) *RemoveCommand {
	c := &RemoveCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("rm", "Remove a project and everything stored for it.")
	c.Cmd.Arg("name-or-id", "Project name or ID.").Required().StringVar(&c.nameOrID)
	c.Cmd.Flag("force", "Force removal of a project that is still generating.").BoolVar(&c.force)

	return c
}

func (c RemoveCommand) Name() string { return c.Cmd.FullCommand() }

func (c RemoveCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	// Initialize storage (SQLite).
	stack, err := c.rootCmd.openStorage(ctx)
	if err != nil {
		return err
	}
	defer stack.Close()

	// Create remove service.
	svc, err := remove.NewService(remove.ServiceConfig{
		Repository: stack.Repo,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	// Execute remove.
	project, err := svc.Run(ctx, remove.Request{
		NameOrID: c.nameOrID,
		Force:    c.force,
	})
	if err != nil {
		return fmt.Errorf("could not remove project: %w", err)
	}

	// Print success message.
	p := printer.NewTablePrinter(c.rootCmd.Stdout)
	if err := p.PrintMessage(fmt.Sprintf("Removed project: %s", project.Name)); err != nil {
		return fmt.Errorf("could not print message: %w", err)
	}

	return nil
}
