package models

import (
	"errors"
	"fmt"
)

// ValidationError blocks a submission before any upstream call is made.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NetworkError wraps any failed call to the upstream incident API. Status is
// zero for transport failures.
type NetworkError struct {
	Op     string
	Status int
	Err    error
}

func (e *NetworkError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: upstream returned status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// LookupError reports a filter that references metadata missing from the
// dictionary, typically because the metadata was deleted after the filter
// was saved.
type LookupError struct {
	Dimension string
	ID        string
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("unknown %s id %q", e.Dimension, e.ID)
}

// DeserializationError reports a stored filter string that cannot be parsed.
type DeserializationError struct {
	Input string
	Err   error
}

func (e *DeserializationError) Error() string {
	return fmt.Sprintf("malformed filter string %q: %v", e.Input, e.Err)
}

func (e *DeserializationError) Unwrap() error { return e.Err }

// ErrorKind names the error class for API payloads and metrics labels.
func ErrorKind(err error) string {
	var (
		ve *ValidationError
		ne *NetworkError
		le *LookupError
		de *DeserializationError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ve):
		return "validation_error"
	case errors.As(err, &ne):
		return "network_error"
	case errors.As(err, &le):
		return "lookup_error"
	case errors.As(err, &de):
		return "deserialization_error"
	default:
		return "internal_error"
	}
}
