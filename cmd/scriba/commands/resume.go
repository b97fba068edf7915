package commands

import (
	"context"
	"time"

	"github.com/alecthomas/kingpin/v2"
)

type ResumeCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	project  string
	planPath string
	workers  int
	cacheTTL time.Duration
	latency  time.Duration
}

// NewResumeCommand returns the resume command.
func NewResumeCommand(rootCmd *RootCommand, app *kingpin.Application) *ResumeCommand {
	c := &ResumeCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("resume", "Resume a halted generation from its checkpoint.")
	c.Cmd.Flag("project", "Project name.").Short('p').Required().StringVar(&c.project)
	c.Cmd.Flag("plan", "Path to the YAML plan file.").Required().StringVar(&c.planPath)
	c.Cmd.Flag("workers", "Number of scheduler workers.").Default("4").IntVar(&c.workers)
	c.Cmd.Flag("cache-ttl", "How long generated content stays reusable.").Default("24h").DurationVar(&c.cacheTTL)
	c.Cmd.Flag("simulate-latency", "Simulated latency per generated unit.").Default("0").DurationVar(&c.latency)

	return c
}

func (c ResumeCommand) Name() string { return c.Cmd.FullCommand() }

func (c ResumeCommand) Run(ctx context.Context) error {
	return runGeneration(ctx, c.rootCmd, generationOptions{
		project:  c.project,
		planPath: c.planPath,
		workers:  c.workers,
		cacheTTL: c.cacheTTL,
		latency:  c.latency,
		resume:   true,
	})
}
