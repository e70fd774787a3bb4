// Package pathwalk implements bounded symbolic exploration of a single
// function. Inputs are treated as symbolic values, every feasible
// control-flow path is enumerated under an explicit budget, and an external
// constraint solver decides per-path reachability and produces concrete
// triggering inputs.
package pathwalk

import (
	"errors"
	"fmt"
)

var (
	ErrSolverTimeout       = errors.New("Solver timeout")
	ErrSolverCanceled      = errors.New("Solver canceled")
	ErrSolverResourceLimit = errors.New("Solver resource limit")
	ErrSolverUnknown       = errors.New("Solver unknown error")
)

// BuildError is returned when a function body cannot be lowered to IR.
// It is the only fatal error class; no paths are produced alongside it.
type BuildError struct {
	Func   string
	Reason string
}

// Error returns the string representation of the error.
func (e *BuildError) Error() string {
	if e.Func == "" {
		return fmt.Sprintf("pathwalk: build: %s", e.Reason)
	}
	return fmt.Sprintf("pathwalk: build %s: %s", e.Func, e.Reason)
}

// UnsupportedConstruct records a single expression or statement that could
// not be translated. It is recovered locally as an opaque value and is never
// fatal to a path.
type UnsupportedConstruct struct {
	Construct string
}

// Error returns the string representation of the error.
func (e *UnsupportedConstruct) Error() string {
	return fmt.Sprintf("pathwalk: unsupported construct: %s", e.Construct)
}

// assert panics if condition is false.
func assert(condition bool, format string, args ...interface{}) {
	if !condition {
		panic(fmt.Sprintf("assert: "+format, args...))
	}
}
