package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/scribahq/scriba/test/integration/testutils"
)

// Config holds integration test configuration loaded from environment variables.
type Config struct {
	Binary string
}

func (c *Config) defaults() error {
	if c.Binary == "" {
		c.Binary = "scriba"
	}

	// If relative, the caller should pass an absolute path via the env var,
	// because go test changes the CWD to the test package directory.
	if !filepath.IsAbs(c.Binary) {
		return fmt.Errorf("SCRIBA_INTEGRATION_BINARY must be an absolute path, got %q", c.Binary)
	}
	if _, err := os.Stat(c.Binary); err != nil {
		return fmt.Errorf("scriba binary not found at %q: %w", c.Binary, err)
	}

	return nil
}

// NewConfig loads integration test configuration from environment variables.
// If the config is invalid or the activation env var is not set, the test is skipped.
func NewConfig(t *testing.T) Config {
	t.Helper()

	const (
		envActivation = "SCRIBA_INTEGRATION"
		envBinary     = "SCRIBA_INTEGRATION_BINARY"
	)

	if os.Getenv(envActivation) != "true" {
		t.Skipf("Skipping integration test: %s is not set to 'true'", envActivation)
	}

	c := Config{
		Binary: os.Getenv(envBinary),
	}

	if err := c.defaults(); err != nil {
		t.Skipf("Skipping due to invalid config: %s", err)
	}

	return c
}

// RunScribaCmd runs a scriba command with the given arguments and a specific
// db path. It suppresses logging output for cleaner test output.
func RunScribaCmd(ctx context.Context, config Config, dbPath, cmdArgs string) (stdout, stderr []byte, err error) {
	args := fmt.Sprintf("--no-log --db-path %s %s", dbPath, cmdArgs)
	return testutils.RunScriba(ctx, nil, config.Binary, args, true)
}

// RunGenerate drafts a book from the given plan file.
func RunGenerate(ctx context.Context, config Config, dbPath, project, planPath string) (stdout, stderr []byte, err error) {
	args := fmt.Sprintf("generate --project %s --plan %s", project, planPath)
	return RunScribaCmd(ctx, config, dbPath, args)
}

// RunResume continues a halted generation from its checkpoint.
func RunResume(ctx context.Context, config Config, dbPath, project, planPath string) (stdout, stderr []byte, err error) {
	args := fmt.Sprintf("resume --project %s --plan %s", project, planPath)
	return RunScribaCmd(ctx, config, dbPath, args)
}

// RunList lists projects in JSON format.
func RunList(ctx context.Context, config Config, dbPath string) (stdout, stderr []byte, err error) {
	return RunScribaCmd(ctx, config, dbPath, "list --format json")
}

// RunStatus gets a project's status in JSON format.
func RunStatus(ctx context.Context, config Config, dbPath, nameOrID string) (stdout, stderr []byte, err error) {
	return RunScribaCmd(ctx, config, dbPath, fmt.Sprintf("status %s --format json", nameOrID))
}

// RunRm removes a project (with force).
func RunRm(ctx context.Context, config Config, dbPath, nameOrID string) (stdout, stderr []byte, err error) {
	return RunScribaCmd(ctx, config, dbPath, fmt.Sprintf("rm --force %s", nameOrID))
}

// RunDoctor runs the health checks.
func RunDoctor(ctx context.Context, config Config, dbPath string) (stdout, stderr []byte, err error) {
	return RunScribaCmd(ctx, config, dbPath, "doctor")
}

// WritePlan writes a plan YAML file into dir and returns its path.
func WritePlan(t *testing.T, dir, content string) string {
	t.Helper()

	path := filepath.Join(dir, "plan.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("could not write plan file: %s", err)
	}
	return path
}
