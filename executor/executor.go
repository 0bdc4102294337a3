// Package executor provides the command execution layer used to drive
// external tools (docker, docker compose, ufw, shred). All callers go through
// the Runner interface so tests can inject mock implementations instead of
// touching the host system.
package executor

import (
	"context"
	"time"
)

// Result contains the output and metadata of a single command execution.
type Result struct {
	// Output is the combined stdout and stderr of the command
	Output string

	// ExitCode is the process exit code (0 on success)
	ExitCode int

	// Duration of the execution
	Duration time.Duration
}

// Runner executes external commands.
type Runner interface {
	// Run executes name with args and returns the combined output.
	// A non-zero exit status is returned as an error alongside the Result.
	Run(ctx context.Context, name string, args ...string) (*Result, error)

	// LookPath reports whether the named binary is available on PATH.
	LookPath(name string) bool
}
