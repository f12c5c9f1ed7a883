package core

import (
	"context"
	"fmt"
	"time"
)

// Run executes all stages sequentially and stops after the first failing stage.
//
// Step and stage failures are reported in the returned RunResult. The only error
// Run returns is a *ConditionError, in which case there is no result.
func (p *Pipeline) Run(ctx context.Context) (*RunResult, error) {
	result := &RunResult{
		Pipeline:  p.name,
		Stages:    make([]StageResult, 0, len(p.stages)),
		StartedAt: time.Now(),
	}
	env := p.effectiveEnv()

	p.logf("Starting pipeline: %s", p.name)

	success := true
	for _, stage := range p.stages {
		if stage.Condition != nil {
			ok, err := evalCondition(stage.Condition)
			if err != nil {
				return nil, &ConditionError{Stage: stage.Name, Err: err}
			}
			if !ok {
				p.logf("Skipping stage: %s", stage.Name)
				result.Stages = append(result.Stages, StageResult{
					Name:    stage.Name,
					Skipped: true,
					Success: true,
					Steps:   []StepResult{},
				})
				continue
			}
		}

		p.logf("==> Stage: %s", stage.Name)
		stageResult := p.runStage(ctx, stage, env)
		result.Stages = append(result.Stages, stageResult)

		if !stageResult.Success {
			p.logf("Pipeline failed at stage: %s", stage.Name)
			success = false
			break // stop pipeline on failure
		}
	}

	result.Success = success
	result.Duration = time.Since(result.StartedAt)
	if success {
		p.logf("Pipeline completed successfully")
	}

	p.mu.Lock()
	p.last = result
	p.mu.Unlock()

	return result, nil
}

// runStage executes the stage's steps in order.
func (p *Pipeline) runStage(ctx context.Context, stage Stage, env map[string]string) StageResult {
	start := time.Now()
	sr := StageResult{
		Name:    stage.Name,
		Success: true,
		Steps:   make([]StepResult, 0, len(stage.Steps)),
	}

	for _, step := range stage.Steps {
		p.logf("Running step: %s", step.Name)
		res := p.runStep(ctx, step, env)
		sr.Steps = append(sr.Steps, res)
		if res.Success {
			continue
		}

		p.logf("Step failed: %s: %s", step.Name, res.Error)
		sr.Success = false
		if !step.ContinueOnError {
			break
		}
	}

	sr.Duration = time.Since(start)
	return sr
}

func (p *Pipeline) runStep(ctx context.Context, step Step, env map[string]string) StepResult {
	res := StepResult{
		Name:            step.Name,
		Command:         step.Command.String(),
		ContinueOnError: step.ContinueOnError,
	}

	start := time.Now()
	out, err := p.runner.RunCommand(ctx, step.Command, copyEnv(env))
	res.Duration = time.Since(start)

	if out != nil {
		res.Stdout = out.Stdout
		res.Stderr = out.Stderr
		res.ExitCode = out.ExitCode
	}

	switch {
	case err != nil:
		res.Error = err.Error()
		if res.ExitCode == 0 {
			res.ExitCode = -1
		}
	case out == nil:
		res.Error = "runner returned no output"
		res.ExitCode = -1
	case out.ExitCode != 0:
		res.Error = fmt.Sprintf("exit status %d", out.ExitCode)
	default:
		res.Success = true
	}
	return res
}

// evalCondition turns a panicking condition into an error.
func evalCondition(cond Condition) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("condition panicked: %v", r)
		}
	}()
	return cond()
}

// lookupEnv reads a variable from the environment a run would use.
func (p *Pipeline) lookupEnv(key string) (string, bool) {
	v, ok := p.effectiveEnv()[key]
	return v, ok
}
