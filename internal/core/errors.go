package core

import (
	"errors"
	"fmt"
)

var (
	ErrNoRunner          = errors.New("pipeline requires a command runner")
	ErrInvalidDefinition = errors.New("invalid pipeline definition")
)

// ConditionError is returned by Run when a stage condition fails to evaluate.
// It aborts the whole run and carries no partial result.
type ConditionError struct {
	Stage string
	Err   error
}

func (ce *ConditionError) Error() string {
	return fmt.Sprintf("condition for stage '%s' failed: %v", ce.Stage, ce.Err)
}

func (ce *ConditionError) Unwrap() error {
	return ce.Err
}
