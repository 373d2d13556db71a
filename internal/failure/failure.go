// Package failure defines the error kinds shared by provisioning and invocation.
//
// Callers classify errors with errors.Is against the sentinels below; the
// concrete errors returned by other packages wrap one of them.
package failure

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrResourceNotFound means the bundled tool archive is missing. Fatal at activation.
	ErrResourceNotFound = errors.New("bundled resource not found")

	// ErrIO covers filesystem failures during extraction, directory reset or temp-file handling.
	ErrIO = errors.New("i/o failure")

	// ErrInvalidBundle means the archive extracted but lacks the expected entry files.
	ErrInvalidBundle = errors.New("invalid tool bundle")

	// ErrLaunch means an executable could not be found or started.
	ErrLaunch = errors.New("process launch failed")

	// ErrTimeout means a step's process did not finish within its bound.
	ErrTimeout = errors.New("process timed out")

	// ErrValidation means a per-invocation parameter was rejected.
	ErrValidation = errors.New("invalid parameter")

	// ErrNotActivated means an invocation arrived before the tool was provisioned.
	ErrNotActivated = errors.New("tool not provisioned")
)

// IO wraps err as an ErrIO failure with an operation description.
func IO(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrIO, err)
}

// FieldError is a single rejected field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError collects every rejected field of one request.
type ValidationError struct {
	Fields []FieldError
}

// Add records a rejected field.
func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// OrNil returns nil when no field was rejected.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, fmt.Sprintf("%s: %s", f.Field, f.Message))
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Unwrap lets errors.Is match ErrValidation.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
