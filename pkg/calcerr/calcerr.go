// Package calcerr defines the error taxonomy shared by the tracker-angle pipeline.
// Callers match the kinds with errors.Is against the sentinels, or errors.As
// against the concrete types when they need the offending field.
package calcerr

import (
	"errors"
	"fmt"
)

var (
	// ErrParse marks malformed caller input such as timestamp strings
	ErrParse = errors.New("parse error")
	// ErrConfiguration marks an unknown time zone or an invalid site/geometry
	ErrConfiguration = errors.New("configuration error")
	// ErrComputation marks an internal invariant violation
	ErrComputation = errors.New("computation error")
)

// ParseError is returned when a start/end timestamp cannot be parsed
type ParseError struct {
	Field string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid %s %q: %v", e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("invalid %s %q", e.Field, e.Value)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrParse) match any *ParseError
func (e *ParseError) Is(target error) bool { return target == ErrParse }

// ConfigurationError is returned for unknown time zones and geometrically
// invalid sites or tracker parameters
type ConfigurationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	msg := fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// ComputationError is returned when the pipeline breaks one of its own
// invariants. It is always fatal for the request.
type ComputationError struct {
	Stage  string
	Reason string
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Stage, e.Reason)
}

func (e *ComputationError) Is(target error) bool { return target == ErrComputation }

// Parse builds a *ParseError
func Parse(field, value string, err error) error {
	return &ParseError{Field: field, Value: value, Err: err}
}

// Config builds a *ConfigurationError
func Config(field, reason string) error {
	return &ConfigurationError{Field: field, Reason: reason}
}

// ConfigWrap builds a *ConfigurationError carrying an underlying cause
func ConfigWrap(field, reason string, err error) error {
	return &ConfigurationError{Field: field, Reason: reason, Err: err}
}

// Computation builds a *ComputationError
func Computation(stage, format string, args ...any) error {
	return &ComputationError{Stage: stage, Reason: fmt.Sprintf(format, args...)}
}
