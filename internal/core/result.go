package core

import "time"

// StepResult is the outcome of one attempted step.
type StepResult struct {
	Name            string        `json:"name"`
	Command         string        `json:"command"`
	Success         bool          `json:"success"`
	ContinueOnError bool          `json:"continue_on_error,omitempty"`
	Stdout          string        `json:"stdout,omitempty"`
	Stderr          string        `json:"stderr,omitempty"`
	ExitCode        int           `json:"exit_code"`
	Error           string        `json:"error,omitempty"`
	Duration        time.Duration `json:"duration"`
}

// StageResult is the outcome of one visited stage.
// A skipped stage has no steps and counts as successful.
type StageResult struct {
	Name     string        `json:"name"`
	Skipped  bool          `json:"skipped"`
	Success  bool          `json:"success"`
	Steps    []StepResult  `json:"steps"`
	Duration time.Duration `json:"duration"`
}

// Failed returns the steps of the stage that did not succeed.
func (sr StageResult) Failed() []StepResult {
	var failed []StepResult
	for _, st := range sr.Steps {
		if !st.Success {
			failed = append(failed, st)
		}
	}
	return failed
}

// RunResult is the full result tree of a single Run.
// Stages after an aborting failure are absent; skipped stages are present.
type RunResult struct {
	Pipeline  string        `json:"pipeline"`
	Success   bool          `json:"success"`
	Stages    []StageResult `json:"stages"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// Step looks up a step result by name.
func (r *RunResult) Step(name string) (StepResult, bool) {
	for _, stage := range r.Stages {
		for _, st := range stage.Steps {
			if st.Name == name {
				return st, true
			}
		}
	}
	return StepResult{}, false
}

// Stage looks up a stage result by name.
func (r *RunResult) Stage(name string) (StageResult, bool) {
	for _, stage := range r.Stages {
		if stage.Name == name {
			return stage, true
		}
	}
	return StageResult{}, false
}

// StepStatuses maps every attempted step name to its success.
func (r *RunResult) StepStatuses() map[string]bool {
	statuses := make(map[string]bool)
	for _, stage := range r.Stages {
		for _, st := range stage.Steps {
			statuses[st.Name] = st.Success
		}
	}
	return statuses
}

// FailedStage returns the stage that aborted the run, if any.
func (r *RunResult) FailedStage() (StageResult, bool) {
	for _, stage := range r.Stages {
		if !stage.Skipped && !stage.Success {
			return stage, true
		}
	}
	return StageResult{}, false
}
