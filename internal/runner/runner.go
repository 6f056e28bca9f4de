// Package runner spawns build commands and reports their exit codes.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// Command is one build invocation.
type Command struct {
	Program string
	Args    []string
	Dir     string
}

func (c Command) String() string {
	parts := append([]string{c.Program}, c.Args...)
	return fmt.Sprintf("%s (in %s)", strings.Join(parts, " "), c.Dir)
}

// Runner runs a command to completion.
//
// A zero exit code with a nil error means success. A command that ran and
// failed returns its exit code and a nil error. A command that could not be
// started, or ended without an exit code, returns a non-zero code together
// with the error.
type Runner interface {
	Run(ctx context.Context, cmd Command) (int, error)
}

// ExitCodeUnknown is reported when no real exit code exists.
const ExitCodeUnknown = 1

// ExecRunner runs commands as child processes.
type ExecRunner struct {
	// Stdout and Stderr receive the child's output; nil means the
	// process's own.
	Stdout io.Writer
	Stderr io.Writer
	// Env is appended to the inherited environment.
	Env []string
}

func (r *ExecRunner) Run(ctx context.Context, c Command) (int, error) {
	cmd := exec.CommandContext(ctx, c.Program, c.Args...)
	cmd.Dir = c.Dir
	cmd.Stdin = os.Stdin
	cmd.Stdout = r.Stdout
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	cmd.Stderr = r.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	if len(r.Env) > 0 {
		cmd.Env = append(os.Environ(), r.Env...)
	}

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code > 0 {
			return code, nil
		}
		return ExitCodeUnknown, fmt.Errorf("%s terminated: %w", c.Program, err)
	}
	return ExitCodeUnknown, fmt.Errorf("starting %s: %w", c.Program, err)
}

// Func adapts a function to the Runner interface.
type Func func(ctx context.Context, cmd Command) (int, error)

func (f Func) Run(ctx context.Context, cmd Command) (int, error) {
	return f(ctx, cmd)
}
