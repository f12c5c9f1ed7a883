package core

import (
	"os"
	"sync"
)

// Condition decides at run time whether a stage executes.
// It is evaluated right before the stage would run, on every run.
type Condition func() (bool, error)

// Step is a single command inside a stage.
type Step struct {
	Name            string
	Command         Command
	ContinueOnError bool // keep running the stage if this step fails
}

// Stage is a named group of steps, optionally gated by a condition.
// Stages run sequentially ( stage1 --> stage2 --> stage3)
type Stage struct {
	Name      string
	Steps     []Step
	Condition Condition // nil means always run
}

// Pipeline owns an ordered list of stages and the environment they run with.
type Pipeline struct {
	name      string
	stages    []Stage
	env       map[string]string
	overrides map[string]string
	runner    CommandRunner
	ambient   func() []string
	logf      func(format string, args ...any)

	mu   sync.Mutex
	last *RunResult
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithEnvironment sets the base environment merged into every step.
func WithEnvironment(env map[string]string) Option {
	return func(p *Pipeline) {
		p.env = copyEnv(env)
	}
}

// WithEnvOverrides sets pipeline-level values applied over the base environment.
func WithEnvOverrides(env map[string]string) Option {
	return func(p *Pipeline) {
		p.overrides = copyEnv(env)
	}
}

// WithAmbientEnv replaces os.Environ as the source of the process environment.
func WithAmbientEnv(fn func() []string) Option {
	return func(p *Pipeline) {
		if fn != nil {
			p.ambient = fn
		}
	}
}

// WithLogger sets a printf-style progress logger.
func WithLogger(logf func(format string, args ...any)) Option {
	return func(p *Pipeline) {
		if logf != nil {
			p.logf = logf
		}
	}
}

// NewPipeline creates a pipeline. Stages are copied, so later changes to the
// caller's slice do not affect runs.
func NewPipeline(name string, runner CommandRunner, stages []Stage, opts ...Option) (*Pipeline, error) {
	if runner == nil {
		return nil, ErrNoRunner
	}

	p := &Pipeline{
		name:    name,
		stages:  copyStages(stages),
		env:     map[string]string{},
		runner:  runner,
		ambient: os.Environ,
		logf:    func(string, ...any) {},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Name returns the pipeline name.
func (p *Pipeline) Name() string {
	return p.name
}

// Stages returns a copy of the pipeline's stages in execution order.
func (p *Pipeline) Stages() []Stage {
	return copyStages(p.stages)
}

// Environment returns a copy of the base environment.
func (p *Pipeline) Environment() map[string]string {
	return copyEnv(p.env)
}

// LastResult returns the result of the most recent completed run, or nil.
func (p *Pipeline) LastResult() *RunResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

func copyStages(stages []Stage) []Stage {
	out := make([]Stage, len(stages))
	for i, s := range stages {
		steps := make([]Step, len(s.Steps))
		for j, st := range s.Steps {
			if st.Command.Argv != nil {
				st.Command.Argv = append([]string(nil), st.Command.Argv...)
			}
			steps[j] = st
		}
		out[i] = Stage{
			Name:      s.Name,
			Steps:     steps,
			Condition: s.Condition,
		}
	}
	return out
}

func copyEnv(env map[string]string) map[string]string {
	out := make(map[string]string, len(env))
	for k, v := range env {
		out[k] = v
	}
	return out
}
