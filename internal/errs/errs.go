// Package errs defines the error kinds the engine can surface: bad
// construction parameters, a malformed decoded program, and out-of-bounds
// memory access.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an Error.
type Kind int

const (
	// BadConfig marks an invalid latency, station count, or cache geometry
	// supplied at engine construction.
	BadConfig Kind = iota
	// BadProgram marks an unknown opcode variant, an out-of-range register
	// index, or a reference to a missing label.
	BadProgram
	// OutOfBounds marks a memory or cache access outside the configured
	// backing store.
	OutOfBounds
)

func (k Kind) String() string {
	switch k {
	case BadConfig:
		return "bad config"
	case BadProgram:
		return "bad program"
	case OutOfBounds:
		return "out of bounds"
	default:
		return "unknown"
	}
}

// Error carries a kind, the operation that failed, contextual details, and
// an optional wrapped cause.
type Error struct {
	Kind      Kind
	Operation string
	Details   string
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s: %v", e.Kind, e.Operation, e.Details, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Operation, e.Details)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether err is an *Error of the given kind.
func Is(err error, k Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == k
	}
	return false
}

// New builds a new *Error.
func New(kind Kind, operation, details string, cause error) *Error {
	return &Error{Kind: kind, Operation: operation, Details: details, Err: cause}
}

// BadConfigf builds a BadConfig error with a formatted detail string.
func BadConfigf(operation, format string, args ...any) *Error {
	return New(BadConfig, operation, fmt.Sprintf(format, args...), nil)
}

// BadProgramf builds a BadProgram error with a formatted detail string.
func BadProgramf(operation, format string, args ...any) *Error {
	return New(BadProgram, operation, fmt.Sprintf(format, args...), nil)
}

// OutOfBoundsf builds an OutOfBounds error with a formatted detail string.
func OutOfBoundsf(operation, format string, args ...any) *Error {
	return New(OutOfBounds, operation, fmt.Sprintf(format, args...), nil)
}
