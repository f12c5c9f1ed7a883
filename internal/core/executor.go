package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// DefaultStepTimeout bounds a single command run by ShellExecutor.
const DefaultStepTimeout = 5 * time.Minute

// ShellExecutor is the local CommandRunner. Shell lines run through
// "<Shell> -c", argument vectors are executed directly.
type ShellExecutor struct {
	Shell   string        // defaults to "sh"
	Dir     string        // working directory, empty inherits the process cwd
	Timeout time.Duration // zero means DefaultStepTimeout, negative disables it
}

// NewExecutor creates a ShellExecutor with default settings.
func NewExecutor() *ShellExecutor {
	return &ShellExecutor{Shell: "sh", Timeout: DefaultStepTimeout}
}

// RunCommand executes cmd with exactly env as its environment.
func (e *ShellExecutor) RunCommand(ctx context.Context, cmd Command, env map[string]string) (*CommandOutput, error) {
	if cmd.IsZero() {
		return nil, fmt.Errorf("empty command")
	}

	timeout := e.Timeout
	if timeout == 0 {
		timeout = DefaultStepTimeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var c *exec.Cmd
	if len(cmd.Argv) > 0 {
		c = exec.CommandContext(ctx, cmd.Argv[0], cmd.Argv[1:]...)
	} else {
		shell := e.Shell
		if shell == "" {
			shell = "sh"
		}
		c = exec.CommandContext(ctx, shell, "-c", cmd.Run)
	}
	c.Dir = e.Dir
	c.Env = EnvList(env)
	c.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	err := c.Run()
	out := &CommandOutput{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err == nil {
		return out, nil
	}

	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return out, fmt.Errorf("command timed out after %s: %w", timeout, ctx.Err())
	case ctx.Err() != nil:
		return out, fmt.Errorf("command cancelled: %w", ctx.Err())
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		out.ExitCode = exitErr.ExitCode()
		return out, nil
	}
	return out, fmt.Errorf("run %q: %w", cmd.String(), err)
}
