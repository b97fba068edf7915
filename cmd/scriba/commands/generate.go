package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/alecthomas/kingpin/v2"

	"github.com/scribahq/scriba/internal/app/generate"
	"github.com/scribahq/scriba/internal/generation/fake"
	"github.com/scribahq/scriba/internal/model"
	"github.com/scribahq/scriba/internal/scheduler"
	planio "github.com/scribahq/scriba/internal/storage/io"
)

type GenerateCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	project  string
	planPath string
	workers  int
	cacheTTL time.Duration
	latency  time.Duration
}

// NewGenerateCommand returns the generate command.
func NewGenerateCommand(rootCmd *RootCommand, app *kingpin.Application) *GenerateCommand {
	c := &GenerateCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("generate", "Generate a book draft from a plan file.")
	c.Cmd.Flag("project", "Project name.").Short('p').Required().StringVar(&c.project)
	c.Cmd.Flag("plan", "Path to the YAML plan file.").Required().StringVar(&c.planPath)
	c.Cmd.Flag("workers", "Number of scheduler workers.").Default("4").IntVar(&c.workers)
	c.Cmd.Flag("cache-ttl", "How long generated content stays reusable.").Default("24h").DurationVar(&c.cacheTTL)
	c.Cmd.Flag("simulate-latency", "Simulated latency per generated unit.").Default("0").DurationVar(&c.latency)

	return c
}

func (c GenerateCommand) Name() string { return c.Cmd.FullCommand() }

func (c GenerateCommand) Run(ctx context.Context) error {
	return runGeneration(ctx, c.rootCmd, generationOptions{
		project:  c.project,
		planPath: c.planPath,
		workers:  c.workers,
		cacheTTL: c.cacheTTL,
		latency:  c.latency,
		resume:   false,
	})
}

// generationOptions are the knobs shared by the generate and resume commands.
type generationOptions struct {
	project  string
	planPath string
	workers  int
	cacheTTL time.Duration
	latency  time.Duration
	resume   bool
}

// runGeneration loads the plan, submits the workflow and streams its
// notifications to stdout until the task reaches a terminal state. When ctx
// is cancelled (SIGINT) it requests cooperative cancellation and keeps
// draining the stream until the task winds down.
func runGeneration(ctx context.Context, rootCmd *RootCommand, opts generationOptions) error {
	logger := rootCmd.Logger
	out := rootCmd.Stdout

	// Load the plan file.
	dir, file := filepath.Split(opts.planPath)
	if dir == "" {
		dir = "."
	}
	plans := planio.NewPlanYAMLRepository(os.DirFS(dir))
	plan, err := plans.GetPlan(ctx, file)
	if err != nil {
		return fmt.Errorf("could not load plan: %w", err)
	}

	// Initialize storage (SQLite).
	stack, err := rootCmd.openStorage(ctx)
	if err != nil {
		return err
	}
	defer stack.Close()

	// Initialize the generator and the scheduler.
	gen, err := fake.NewGenerator(fake.GeneratorConfig{
		Latency: opts.latency,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("could not create generator: %w", err)
	}

	sched, err := scheduler.New(scheduler.Config{
		Workers: opts.workers,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("could not create scheduler: %w", err)
	}
	defer func() {
		// Bounded shutdown, independent of the already-cancelled ctx.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = sched.Close(shutdownCtx)
	}()

	// Create generate service.
	svc, err := generate.NewService(generate.ServiceConfig{
		Repository: stack.Repo,
		Generator:  gen,
		Scheduler:  sched,
		CacheTTL:   opts.cacheTTL,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	// Submit the workflow.
	started, err := svc.Run(ctx, generate.Request{
		ProjectName: opts.project,
		Plan:        plan,
		Resume:      opts.resume,
	})
	if err != nil {
		return fmt.Errorf("could not start generation: %w", err)
	}

	verb := "Generating"
	if opts.resume {
		verb = "Resuming"
	}
	fmt.Fprintf(out, "%s %q (project %s, task %s)\n", verb, plan.Title, started.Project.ID, started.TaskID)

	// Relay SIGINT as a cooperative cancel. On a normal finish the task is
	// already terminal and this is a no-op.
	go func() {
		<-ctx.Done()
		svc.Cancel(context.WithoutCancel(ctx), started.Project.ID, started.TaskID)
	}()

	events, ok := sched.Events(started.TaskID)
	if !ok {
		return fmt.Errorf("task %s: %w", started.TaskID, model.ErrNotFound)
	}

	for n := range events {
		switch n.Kind {
		case model.NotificationProgress:
			fmt.Fprintf(out, "%6.1f%%  %s\n", n.Percent, n.Message)
		case model.NotificationLog:
			fmt.Fprintf(out, "        [%s] %s\n", n.Level, n.Message)
		case model.NotificationStatus:
			logger.Debugf("Task %s is %s", n.TaskID, n.Status)
		case model.NotificationResult:
			// Collected below through the task table.
		}
	}

	result, err := sched.Result(started.TaskID)
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}

	report, ok := result.(*generate.RunReport)
	if !ok {
		return fmt.Errorf("unexpected result type %T", result)
	}

	fmt.Fprintf(out, "Done: %q finished %d of %d units (%d usage units in %s)\n",
		report.Title, report.UnitsDone, report.TotalUnits, report.UsageUnits, report.Duration.Round(time.Millisecond))

	return nil
}
