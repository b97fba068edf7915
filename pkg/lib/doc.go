// Package lib provides a Go SDK for running scriba book generation
// workflows programmatically.
//
// This package allows applications to draft books, follow generation
// progress, and manage projects without shelling out to the scriba CLI
// binary. It is useful for scripting, automation, and building tools on
// top of scriba.
//
// # Quick Start
//
// Create a client, start a generation run, and wait for its report:
//
//	client, err := lib.New(ctx, lib.Config{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	run, err := client.Generate(ctx, lib.GenerateOpts{
//	    ProjectName: "my-novel",
//	    Plan: lib.Plan{
//	        Title: "The Silent Harbor",
//	        Style: "noir",
//	        Chapters: []lib.PlanChapter{
//	            {Title: "Arrival", Sections: 3},
//	            {Title: "The Fog", Sections: 4},
//	        },
//	    },
//	})
//
//	report, err := client.Wait(ctx, run.TaskID, 0)
//	fmt.Printf("drafted %d/%d units\n", report.UnitsDone, report.TotalUnits)
//
// # Generators
//
// Content comes from a generator implementation (see the generation
// sub-package for the interface):
//
//   - The built-in fake generator (the default when [Config].Generator is
//     nil) emits deterministic placeholder content. No external services
//     needed; useful for testing and for exercising the engine itself.
//   - Embedders wire their AI provider by implementing the interface and
//     setting [Config].Generator.
//
// # Following a Run
//
// Generation runs in the background. [Client.Events] returns the run's
// ordered notification stream; the channel closes right after the single
// terminal result event:
//
//	events, ok := client.Events(run.TaskID)
//	for ev := range events {
//	    switch ev.Kind {
//	    case lib.EventProgress:
//	        fmt.Printf("%5.1f%% %s\n", ev.Percent, ev.Message)
//	    case lib.EventResult:
//	        fmt.Println("finished:", ev.Status)
//	    }
//	}
//
// Events of one run arrive in emission order. When a consumer lags,
// non-terminal events are dropped rather than blocking the engine; the
// terminal result event is never dropped.
//
// # Checkpoints and Resume
//
// The workflow checkpoints its position after every drafted section.
// When a run is cancelled or crashes, [Client.Resume] continues from the
// stored checkpoint, skipping completed steps and sections:
//
//	run, _ := client.Generate(ctx, opts)
//	client.Cancel(ctx, run.Project.ID, run.TaskID)
//
//	run, _ = client.Resume(ctx, opts)   // picks up where it stopped
//
// [Client.Generate] always starts over, discarding any checkpoint.
//
// # Project Management
//
// List, inspect, and remove projects:
//
//	projects, _ := client.ListProjects(ctx, nil)
//	report, _ := client.Status(ctx, "my-novel")
//	client.RemoveProject(ctx, "my-novel", nil)
//
// # Health Checks
//
// Run health checks against the database and connection pool:
//
//	report, _ := client.Doctor(ctx)
//	for _, r := range report.Checks {
//	    fmt.Printf("%s: %s (%s)\n", r.ID, r.Message, r.Status)
//	}
//
// # Error Handling
//
// All methods return errors that can be inspected with [errors.Is]:
//
//   - [ErrNotFound]: Resource does not exist.
//   - [ErrAlreadyExists]: Resource with the same name already exists.
//   - [ErrNotValid]: Invalid input or operation (e.g. removing a generating project).
//   - [ErrNotReady]: Task result requested before the task finished.
//   - [ErrTimeout]: Wait exceeded its deadline.
//   - [ErrClosed]: Client was closed while the operation ran.
//
// # Testing
//
// Use a temporary database path and the default fake generator to write
// tests without real infrastructure:
//
//	client, _ := lib.New(ctx, lib.Config{
//	    DBPath: filepath.Join(t.TempDir(), "test.db"),
//	})
//	defer client.Close()
//
// # Thread Safety
//
// A [Client] is safe for concurrent use from multiple goroutines. The
// underlying storage uses SQLite with WAL mode behind a verified
// connection pool, and runs execute on a bounded worker pool.
package lib
