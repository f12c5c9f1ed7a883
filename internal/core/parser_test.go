package core

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

const samplePipeline = `name: build-and-test
environment:
  NODE_ENV: "test"
  CI: "true"
stages:
  - name: Install
    steps:
      - name: install
        run: npm ci
  - name: Lint
    steps:
      - name: eslint
        run: npm run lint
        continue_on_error: true
      - name: prettier
        argv: ["npm", "run", "format:check"]
        continue_on_error: true
  - name: Empty
  - name: Deploy
    when:
      env: BRANCH
      equals: main
    steps:
      - name: deploy
        run: npm run deploy
`

func TestLoadPipeline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	if err := os.WriteFile(path, []byte(samplePipeline), 0644); err != nil {
		t.Fatalf("write temp: %v", err)
	}

	def, err := LoadPipeline(path)
	if err != nil {
		t.Fatalf("load pipeline: %v", err)
	}
	if def.Name != "build-and-test" {
		t.Fatalf("unexpected header %+v", def)
	}
	if len(def.Stages) != 4 {
		t.Fatalf("expected 4 stages, got %d", len(def.Stages))
	}
	prettier := def.Stages[1].Steps[1]
	if !prettier.ContinueOnError || !reflect.DeepEqual(prettier.Argv, []string{"npm", "run", "format:check"}) {
		t.Fatalf("unexpected step %+v", prettier)
	}
	if def.Environment["CI"] != "true" {
		t.Fatalf("environment = %v", def.Environment)
	}
}

func TestBuildEvaluatesWhenAgainstRunEnvironment(t *testing.T) {
	def, err := ParsePipeline([]byte(samplePipeline))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	var calls []string
	runner := RunnerFunc(func(_ context.Context, cmd Command, _ map[string]string) (*CommandOutput, error) {
		calls = append(calls, cmd.String())
		return &CommandOutput{}, nil
	})

	branch := "feature"
	p, err := def.Build(runner, WithAmbientEnv(func() []string { return []string{"BRANCH=" + branch} }))
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	res, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	deploy, _ := res.Stage("Deploy")
	if !deploy.Skipped {
		t.Fatalf("Deploy should be skipped on %s", branch)
	}

	branch = "main"
	calls = nil
	res, err = p.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	deploy, _ = res.Stage("Deploy")
	if deploy.Skipped || !res.Success {
		t.Fatalf("Deploy should run on main: %+v", deploy)
	}
	want := []string{"npm ci", "npm run lint", "npm run format:check", "npm run deploy"}
	if !reflect.DeepEqual(calls, want) {
		t.Fatalf("calls = %v", calls)
	}
}

func TestWhenConditions(t *testing.T) {
	env := map[string]string{"BRANCH": "release/1.2", "EMPTY": ""}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
	str := func(s string) *string { return &s }
	yes, no := true, false

	tests := []struct {
		name string
		when When
		want bool
	}{
		{"equals match", When{Env: "BRANCH", Equals: str("release/1.2")}, true},
		{"equals miss", When{Env: "BRANCH", Equals: str("main")}, false},
		{"equals unset", When{Env: "NOPE", Equals: str("")}, false},
		{"not equals", When{Env: "BRANCH", NotEquals: str("main")}, true},
		{"not equals unset", When{Env: "NOPE", NotEquals: str("")}, false},
		{"matches", When{Env: "BRANCH", Matches: `^release/`}, true},
		{"matches unset", When{Env: "NOPE", Matches: `.*`}, false},
		{"exists", When{Env: "EMPTY", Exists: &yes}, true},
		{"not exists", When{Env: "NOPE", Exists: &no}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cond, err := tt.when.Condition(lookup)
			if err != nil {
				t.Fatalf("condition: %v", err)
			}
			got, err := cond()
			if err != nil {
				t.Fatalf("evaluate: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParsePipelineRejectsInvalidDefinitions(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"empty document", ``, "invalid pipeline definition"},
		{"missing name", "stages: []\n", "name"},
		{"unknown key", "name: p\nstages: []\nretries: 3\n", "retries"},
		{"agent key", "name: p\nagent: build-host\nstages: []\n", "agent"},
		{"non string env", "name: p\nenvironment:\n  CI: true\nstages: []\n", "CI"},
		{"run and argv", "name: p\nstages:\n  - name: s\n    steps:\n      - name: x\n        run: a\n        argv: [a]\n", "exactly one of run or argv"},
		{"no command", "name: p\nstages:\n  - name: s\n    steps:\n      - name: x\n", "exactly one of run or argv"},
		{"duplicate stage", "name: p\nstages:\n  - name: s\n  - name: s\n", "duplicate stage name"},
		{"duplicate step", "name: p\nstages:\n  - name: s\n    steps:\n      - {name: x, run: a}\n  - name: t\n    steps:\n      - {name: x, run: b}\n", "duplicate step name"},
		{"when without test", "name: p\nstages:\n  - name: s\n    when: {env: BRANCH}\n", "exactly one of"},
		{"when bad regex", "name: p\nstages:\n  - name: s\n    when: {env: BRANCH, matches: \"(\"}\n", "when.matches"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePipeline([]byte(tt.content))
			if err == nil {
				t.Fatalf("expected error")
			}
			if !errors.Is(err, ErrInvalidDefinition) {
				t.Fatalf("expected ErrInvalidDefinition, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestParsePipelineRejectsMalformedYAML(t *testing.T) {
	if _, err := ParsePipeline([]byte("name: [unterminated\n")); err == nil {
		t.Fatalf("expected error")
	}
}
