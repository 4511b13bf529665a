// Package apperrors defines the error kinds shared across the engine.
// Callers match them with errors.Is; every layer wraps them with context.
package apperrors

import "errors"

var (
	// ErrNotFound is returned when a referenced term or relationship is absent.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned for duplicate edges, including races lost
	// against the store's uniqueness constraint.
	ErrConflict = errors.New("conflict")

	// ErrInvalidArgument is returned for self-loops, cycle-forming edges
	// and malformed requests.
	ErrInvalidArgument = errors.New("invalid argument")
)
