package config

import (
	"blockci/internal/agent"
	"blockci/internal/core"
)

// CommandRunner returns the runner steps should use: the remote agent when
// Agent.URL is set, otherwise the local shell executor.
func (c *Config) CommandRunner() (core.CommandRunner, error) {
	if c.Agent.URL != "" {
		client := agent.NewClient(c.Agent.URL)
		client.Token = c.Agent.Token
		return client, nil
	}
	return c.LocalExecutor()
}

// LocalExecutor returns the shell executor described by Executor.
func (c *Config) LocalExecutor() (*core.ShellExecutor, error) {
	timeout, err := c.StepTimeout()
	if err != nil {
		return nil, err
	}
	e := core.NewExecutor()
	if c.Executor.Shell != "" {
		e.Shell = c.Executor.Shell
	}
	if timeout != 0 {
		e.Timeout = timeout
	}
	return e, nil
}
