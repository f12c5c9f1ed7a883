package core

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Definition is a pipeline as written in pipeline.yaml.
type Definition struct {
	Name        string            `yaml:"name" json:"name"`
	Environment map[string]string `yaml:"environment,omitempty" json:"environment,omitempty"`
	Stages      []StageDef        `yaml:"stages" json:"stages"`
}

// StageDef is a stage as written in pipeline.yaml.
type StageDef struct {
	Name  string    `yaml:"name" json:"name"`
	When  *When     `yaml:"when,omitempty" json:"when,omitempty"`
	Steps []StepDef `yaml:"steps,omitempty" json:"steps,omitempty"`
}

// StepDef is a step as written in pipeline.yaml.
type StepDef struct {
	Name            string   `yaml:"name" json:"name"`
	Run             string   `yaml:"run,omitempty" json:"run,omitempty"`
	Argv            []string `yaml:"argv,omitempty" json:"argv,omitempty"`
	ContinueOnError bool     `yaml:"continue_on_error,omitempty" json:"continue_on_error,omitempty"`
}

// ParsePipeline checks YAML content against the pipeline schema and decodes it.
func ParsePipeline(data []byte) (*Definition, error) {
	if err := ValidateSchema(data); err != nil {
		return nil, err
	}

	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("decode pipeline: %w", err)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// LoadPipeline reads pipeline.yaml and returns its definition.
func LoadPipeline(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	def, err := ParsePipeline(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}

// Validate checks the rules the schema cannot express.
func (d *Definition) Validate() error {
	if d.Name == "" {
		return invalidf("pipeline name is required")
	}

	stages := make(map[string]struct{})
	steps := make(map[string]string)
	for _, stage := range d.Stages {
		if stage.Name == "" {
			return invalidf("stage name is required")
		}
		if _, ok := stages[stage.Name]; ok {
			return invalidf("duplicate stage name: %s", stage.Name)
		}
		stages[stage.Name] = struct{}{}

		if stage.When != nil {
			if err := stage.When.Validate(); err != nil {
				return invalidf("stage %s: %v", stage.Name, err)
			}
		}

		for _, step := range stage.Steps {
			if step.Name == "" {
				return invalidf("stage %s has a step without a name", stage.Name)
			}
			if other, ok := steps[step.Name]; ok {
				return invalidf("duplicate step name %s (stages %s and %s)", step.Name, other, stage.Name)
			}
			steps[step.Name] = stage.Name

			if (step.Run == "") == (len(step.Argv) == 0) {
				return invalidf("step %s must set exactly one of run or argv", step.Name)
			}
		}
	}
	return nil
}

// Build turns the definition into a runnable Pipeline.
func (d *Definition) Build(runner CommandRunner, opts ...Option) (*Pipeline, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	stages := make([]Stage, 0, len(d.Stages))
	for _, sd := range d.Stages {
		stage := Stage{Name: sd.Name, Steps: make([]Step, 0, len(sd.Steps))}
		for _, st := range sd.Steps {
			stage.Steps = append(stage.Steps, Step{
				Name:            st.Name,
				Command:         Command{Run: st.Run, Argv: append([]string(nil), st.Argv...)},
				ContinueOnError: st.ContinueOnError,
			})
		}
		stages = append(stages, stage)
	}

	opts = append([]Option{WithEnvironment(d.Environment)}, opts...)
	p, err := NewPipeline(d.Name, runner, stages, opts...)
	if err != nil {
		return nil, err
	}

	// conditions read the environment of the pipeline they belong to
	for i, sd := range d.Stages {
		if sd.When == nil {
			continue
		}
		cond, err := sd.When.Condition(p.lookupEnv)
		if err != nil {
			return nil, invalidf("stage %s: %v", sd.Name, err)
		}
		p.stages[i].Condition = cond
	}
	return p, nil
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidDefinition, fmt.Sprintf(format, args...))
}
