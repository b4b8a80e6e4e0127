package catalog

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedConstructorShape is returned when a constructor takes
	// more than one parameter or has an unusable result list.
	ErrUnsupportedConstructorShape = errors.New("unsupported constructor shape")
	// ErrContextMismatch is returned when the registration context cannot be
	// passed to a one-parameter constructor.
	ErrContextMismatch = errors.New("registration context does not match constructor parameter")
	// ErrConstructorPanic is returned when a constructor panics.
	ErrConstructorPanic = errors.New("constructor panicked")
	// ErrNilInstance is returned when a constructor returns neither an instance nor an error.
	ErrNilInstance = errors.New("constructor returned nil instance")
)

// ScanError reports that a namespace could not be enumerated at all.
// It aborts the whole registration pass.
type ScanError struct {
	Namespace string
	Err       error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("scan namespace %q: %v", e.Namespace, e.Err)
}

func (e *ScanError) Unwrap() error {
	return e.Err
}

// LoadError reports that a single identifier could not be resolved to a type.
type LoadError struct {
	Identifier string
	Err        error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Identifier, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// ConstructError reports that building an instance of a type failed.
type ConstructError struct {
	Identifier string
	Err        error
}

func (e *ConstructError) Error() string {
	return fmt.Sprintf("construct %s: %v", e.Identifier, e.Err)
}

func (e *ConstructError) Unwrap() error {
	return e.Err
}
