package executor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/nq-deploy/deployctl/common"
)

// CommandRunner executes commands on the host via os/exec.
type CommandRunner struct{}

// NewCommandRunner creates a new host command runner.
func NewCommandRunner() *CommandRunner {
	return &CommandRunner{}
}

// Run executes the command and captures its combined output. The context
// controls cancellation; an interrupted command returns the context error.
func (r *CommandRunner) Run(ctx context.Context, name string, args ...string) (*Result, error) {
	start := time.Now()
	cmd := exec.CommandContext(ctx, name, args...)

	common.Logger.WithField("command", name).Debug("executing ", name, " ", args)

	output, err := cmd.CombinedOutput()
	result := &Result{
		Output:   string(output),
		Duration: time.Since(start),
	}

	if err != nil {
		result.ExitCode = -1
		if exitErr, ok := err.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
		}
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		return result, fmt.Errorf("command %s failed: %w", name, err)
	}

	result.ExitCode = 0
	return result, nil
}

// LookPath reports whether name resolves to an executable on PATH.
func (r *CommandRunner) LookPath(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

// Interactive builds a command wired to the caller's terminal, for programs
// that need the operator's keyboard (editors, prompts).
func Interactive(ctx context.Context, name string, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd
}
