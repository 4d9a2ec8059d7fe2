// Package comptime executes generated host code at compile time: comptime blocks of the
// preprocessor and the module introspection needed by "import *".
package comptime

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrDisabled = errors.New("comptime evaluation is disabled")
)

// A Runner executes generated host code.
type Runner interface {
	// Run executes code that defines the function entry, calls it and returns the text of its result.
	Run(ctx context.Context, code string, entry string) (Result, error)

	// ModuleCallables returns the names of the callable members of a host module.
	ModuleCallables(ctx context.Context, module string) ([]string, error)
}

type Result struct {
	Value    string //str() of the returned value
	HasValue bool   //false if the function returned None
	Output   string //what the code printed
}

// ExceptionError is returned when the executed code raised an exception.
type ExceptionError struct {
	Traceback string
}

func (e *ExceptionError) Error() string {
	return strings.TrimRight(e.Traceback, "\n")
}

// DisabledRunner refuses to execute anything.
type DisabledRunner struct{}

func (DisabledRunner) Run(ctx context.Context, code string, entry string) (Result, error) {
	return Result{}, ErrDisabled
}

func (DisabledRunner) ModuleCallables(ctx context.Context, module string) ([]string, error) {
	return nil, ErrDisabled
}
