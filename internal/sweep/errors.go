package sweep

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrInvalidNumber = errors.New("not a valid number")
	ErrOutOfBounds   = errors.New("number out of bounds")
	ErrInvalidStep   = errors.New("step must be greater than zero")
	ErrInvalidRange  = errors.New("maximum value must not be lower than base value")
	ErrNoParams      = errors.New("no parameters to enumerate")
	ErrNoValues      = errors.New("parameter has no candidate values")
	ErrInvalidRoute  = errors.New("invalid route")
	ErrSweepRunning  = errors.New("a sweep is already running")

	ErrTooManyScenarios = fmt.Errorf("more than %d scenarios", MaxScenarios)
)

// InputError reports a user-entered field that could not be used.
// It matches both ErrInvalidInput and the underlying cause with errors.Is.
type InputError struct {
	Field string
	Value string
	Err   error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("%s: %q: %v", e.Field, e.Value, e.Err)
}

func (e *InputError) Unwrap() []error {
	return []error{ErrInvalidInput, e.Err}
}
