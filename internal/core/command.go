package core

import (
	"context"
	"strings"
)

// Command is what a step asks the runner to execute.
// Exactly one of Run (a shell line) or Argv (an argument vector) is set.
type Command struct {
	Run  string   `yaml:"run,omitempty" json:"run,omitempty"`
	Argv []string `yaml:"argv,omitempty" json:"argv,omitempty"`
}

// String returns a printable form of the command.
func (c Command) String() string {
	if len(c.Argv) > 0 {
		return strings.Join(c.Argv, " ")
	}
	return c.Run
}

// IsZero reports whether the command has nothing to run.
func (c Command) IsZero() bool {
	return c.Run == "" && len(c.Argv) == 0
}

// CommandOutput is what a runner captured from a finished command.
type CommandOutput struct {
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exit_code"`
}

// Success reports whether the command exited with status zero.
func (o *CommandOutput) Success() bool {
	return o != nil && o.ExitCode == 0
}

// CommandRunner executes a single command with the given environment.
//
// A non-zero exit is reported through CommandOutput.ExitCode. A returned error
// means the command could not be run at all (not found, spawn failure, transport).
type CommandRunner interface {
	RunCommand(ctx context.Context, cmd Command, env map[string]string) (*CommandOutput, error)
}

// RunnerFunc adapts a plain function to CommandRunner.
type RunnerFunc func(ctx context.Context, cmd Command, env map[string]string) (*CommandOutput, error)

// RunCommand calls f.
func (f RunnerFunc) RunCommand(ctx context.Context, cmd Command, env map[string]string) (*CommandOutput, error) {
	return f(ctx, cmd, env)
}
