package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/scribahq/scriba/internal/app/doctor"
	"github.com/scribahq/scriba/internal/model"
	"github.com/scribahq/scriba/internal/printer"
)

type DoctorCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand
}

// NewDoctorCommand returns the doctor command.
func NewDoctorCommand(rootCmd *RootCommand, app *kingpin.Application) *DoctorCommand {
	c := &DoctorCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("doctor", "Run health checks against the local installation.")

	return c
}

func (c DoctorCommand) Name() string { return c.Cmd.FullCommand() }

func (c DoctorCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger
	out := c.rootCmd.Stdout

	// Initialize storage (SQLite).
	stack, err := c.rootCmd.openStorage(ctx)
	if err != nil {
		return err
	}
	defer stack.Close()

	// Create doctor service.
	svc, err := doctor.NewService(doctor.ServiceConfig{
		Pool:       stack.Pool,
		Repository: stack.Repo,
		DBPath:     c.rootCmd.DBPath,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	// Run checks.
	report, err := svc.Run(ctx)
	if err != nil {
		return fmt.Errorf("could not run health checks: %w", err)
	}

	// Print results.
	fmt.Fprintf(out, "Checking %s...\n", c.rootCmd.DBPath)
	for _, r := range report.Checks {
		icon := getStatusIcon(r.Status)
		fmt.Fprintf(out, "  %s %-20s %s\n", icon, r.ID, r.Message)
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Database size: %s\n", printer.FormatBytes(report.DBSizeBytes))
	fmt.Fprintf(out, "Pool: %d connections (%d available, %d in use, %d created total)\n",
		report.PoolStats.PoolSize, report.PoolStats.Available, report.PoolStats.CheckedOut, report.PoolStats.TotalCreated)

	// Summary.
	fmt.Fprintln(out)
	_, totalWarnings, totalErrors := model.CountByStatus(report.Checks)
	if totalErrors == 0 && totalWarnings == 0 {
		fmt.Fprintln(out, "All checks passed!")
	} else {
		var summary []string
		if totalErrors > 0 {
			summary = append(summary, fmt.Sprintf("%d error(s)", totalErrors))
		}
		if totalWarnings > 0 {
			summary = append(summary, fmt.Sprintf("%d warning(s)", totalWarnings))
		}
		fmt.Fprintf(out, "%s\n", joinWithComma(summary))
	}

	// Return error if there are any errors.
	if totalErrors > 0 {
		return fmt.Errorf("health checks failed with %d error(s)", totalErrors)
	}

	return nil
}

func getStatusIcon(status model.CheckStatus) string {
	switch status {
	case model.CheckStatusOK:
		return "OK"
	case model.CheckStatusWarning:
		return "!!"
	case model.CheckStatusError:
		return "XX"
	default:
		return "??"
	}
}

func joinWithComma(parts []string) string {
	if len(parts) == 0 {
		return ""
	}
	if len(parts) == 1 {
		return parts[0]
	}
	result := parts[0]
	for i := 1; i < len(parts); i++ {
		result += ", " + parts[i]
	}
	return result
}
