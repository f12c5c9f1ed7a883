package core

import (
	"errors"
	"fmt"
	"regexp"
)

// When is the declarative form of a stage condition. It tests one
// environment variable of the run.
//
//	when: { env: BRANCH, equals: main }
type When struct {
	Env       string  `yaml:"env" json:"env"`
	Equals    *string `yaml:"equals,omitempty" json:"equals,omitempty"`
	NotEquals *string `yaml:"not_equals,omitempty" json:"not_equals,omitempty"`
	Matches   string  `yaml:"matches,omitempty" json:"matches,omitempty"`
	Exists    *bool   `yaml:"exists,omitempty" json:"exists,omitempty"`
}

// Validate checks that exactly one test is set and that patterns compile.
func (w *When) Validate() error {
	if w.Env == "" {
		return errors.New("when requires env")
	}

	n := 0
	if w.Equals != nil {
		n++
	}
	if w.NotEquals != nil {
		n++
	}
	if w.Matches != "" {
		n++
		if _, err := regexp.Compile(w.Matches); err != nil {
			return fmt.Errorf("when.matches: %w", err)
		}
	}
	if w.Exists != nil {
		n++
	}
	if n != 1 {
		return fmt.Errorf("when on %s must set exactly one of equals, not_equals, matches, exists", w.Env)
	}
	return nil
}

// Condition builds the closure evaluated before the stage runs.
// lookup is consulted on every evaluation.
func (w *When) Condition(lookup func(string) (string, bool)) (Condition, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}

	key := w.Env
	switch {
	case w.Equals != nil:
		want := *w.Equals
		return func() (bool, error) {
			v, ok := lookup(key)
			return ok && v == want, nil
		}, nil
	case w.NotEquals != nil:
		unwanted := *w.NotEquals
		return func() (bool, error) {
			v, _ := lookup(key)
			return v != unwanted, nil
		}, nil
	case w.Matches != "":
		re := regexp.MustCompile(w.Matches)
		return func() (bool, error) {
			v, ok := lookup(key)
			return ok && re.MatchString(v), nil
		}, nil
	default:
		want := *w.Exists
		return func() (bool, error) {
			_, ok := lookup(key)
			return ok == want, nil
		}, nil
	}
}
