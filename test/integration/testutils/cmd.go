package testutils

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"
)

// RunScriba executes a scriba command with the given arguments string.
// The string is split on whitespace runs; use RunScribaArgs when an
// argument must preserve inner spaces (e.g., plan titles).
func RunScriba(ctx context.Context, env []string, binary, cmdArgs string, nolog bool) (stdout, stderr []byte, err error) {
	return RunScribaArgs(ctx, env, binary, strings.Fields(cmdArgs), nolog)
}

// RunScribaArgs executes a scriba command with pre-split arguments.
func RunScribaArgs(ctx context.Context, env []string, binary string, args []string, nolog bool) (stdout, stderr []byte, err error) {
	var outData, errData bytes.Buffer
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stdout = &outData
	cmd.Stderr = &errData

	// os.Environ() first, custom env on top: with duplicate keys the
	// last one wins.
	runEnv := append(os.Environ(), env...)
	if nolog {
		runEnv = append(runEnv, "SCRIBA_NO_LOG=true")
	}
	cmd.Env = runEnv

	err = cmd.Run()

	return outData.Bytes(), errData.Bytes(), err
}
