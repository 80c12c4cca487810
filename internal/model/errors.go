package model

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

var (
	// ErrUnauthorized is returned for a missing or mismatched machine credential.
	// Callers must not reveal which of the two happened.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound is returned when a referenced machine, command, alert or
	// screenshot does not exist.
	ErrNotFound = errors.New("not found")

	// ErrRateLimited is returned when a source exceeded its request window.
	ErrRateLimited = errors.New("rate limited")

	// ErrInvalidTransition is returned when a command result arrives for a
	// command that is not executing.
	ErrInvalidTransition = errors.New("invalid command transition")
)

// ValidationError lists the offending fields of a rejected payload.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := slices.Sorted(maps.Keys(e.Fields))
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add records a problem for field. The first problem per field wins.
func (e *ValidationError) Add(field, problem string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = problem
	}
}

// OrNil returns e when it holds at least one field, nil otherwise.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, problem string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: problem}}
}

// TransientError marks a storage or outbound I/O failure that may succeed on retry.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err as a TransientError unless it is nil or already a
// domain error that must pass through unchanged.
func Transient(op string, err error) error {
	if err == nil {
		return nil
	}
	var ve *ValidationError
	var te *TransientError
	switch {
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrNotFound),
		errors.Is(err, ErrRateLimited), errors.Is(err, ErrInvalidTransition),
		errors.As(err, &ve), errors.As(err, &te):
		return err
	}
	return &TransientError{Op: op, Err: err}
}
