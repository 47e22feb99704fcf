// Package armadaerrors contains generic errors returned by optimisers, tensors and the comparison harness.
// Callers should look for the error types defined in this file with errors.As, since errors are usually
// wrapped with a stack trace by the time they reach the caller.
//
// If multiple errors occur in some function (e.g., if several harness cases fail), that
// function should return an error of type multierror.Error from package
// github.com/hashicorp/go-multierror that encapsulates those individual errors.
package armadaerrors

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrInvalidArgument is a generic error to be returned on invalid argument.
// Message is optional and is omitted from the error message if not provided.
type ErrInvalidArgument struct {
	Name    string      // Name of the field referred to, e.g., "learningRate"
	Value   interface{} // The invalid value that was provided
	Message string      // An optional message to include with the error message, e.g., explaining why the value is invalid
}

func (err *ErrInvalidArgument) Error() string {
	if err.Message == "" {
		return fmt.Sprintf("value %v is invalid for field %q", err.Value, err.Name)
	} else {
		return fmt.Sprintf("value %v is invalid for field %q; %s", err.Value, err.Name, err.Message)
	}
}

// ErrShape is returned when a tensor does not have the shape an operation requires.
// Expected may be nil, in which case only the rank requirement in Message is reported.
type ErrShape struct {
	Name     string // Name of the tensor, e.g., "weight" or "state"
	Expected []int
	Actual   []int
	Message  string
}

func (err *ErrShape) Error() (s string) {
	if err.Expected != nil {
		s = fmt.Sprintf("tensor %q has shape %v but shape %v is required", err.Name, err.Actual, err.Expected)
	} else {
		s = fmt.Sprintf("tensor %q has invalid shape %v", err.Name, err.Actual)
	}
	if err.Message != "" {
		s = s + fmt.Sprintf("; %s", err.Message)
	}
	return
}

// ErrUnsupported signals a configuration an optimiser deliberately does not implement,
// e.g., non-zero weight decay. It is not recoverable by retrying.
type ErrUnsupported struct {
	Feature string      // The unsupported feature, e.g., "weightDecay"
	Value   interface{} // The value that requested it
	Message string
}

func (err *ErrUnsupported) Error() (s string) {
	if err.Value != nil {
		s = fmt.Sprintf("%s=%v is not supported", err.Feature, err.Value)
	} else {
		s = fmt.Sprintf("%s is not supported", err.Feature)
	}
	if err.Message != "" {
		s = s + fmt.Sprintf("; %s", err.Message)
	}
	return
}

// ExitCodeFromError maps error types to process exit codes used by the command-line tools.
// Uses errors.As to look through the chain of errors, as opposed to just considering the topmost error in the chain.
func ExitCodeFromError(err error) int {
	if err == nil {
		return 0
	}
	{
		var e *ErrInvalidArgument
		if errors.As(err, &e) {
			return 2
		}
	}
	{
		var e *ErrShape
		if errors.As(err, &e) {
			return 2
		}
	}
	{
		var e *ErrUnsupported
		if errors.As(err, &e) {
			return 3
		}
	}
	return 1
}
