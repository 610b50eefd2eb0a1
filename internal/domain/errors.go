// Package domain defines the core business entities and errors.
package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// It is usually wrapped with a more specific message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidID is returned when an identifier cannot be parsed.
	ErrInvalidID = errors.New("invalid id")

	// ErrInvalidTaskKind is returned for a task kind outside the closed set.
	ErrInvalidTaskKind = errors.New("invalid task kind")

	// ErrInvalidInput is returned when a task definition does not match the
	// schema of its kind.
	ErrInvalidInput = errors.New("invalid task input")

	// ErrInvalidTaskStatus is returned when a status string is not recognised.
	ErrInvalidTaskStatus = errors.New("invalid task status")

	// ErrNodeNotFound is returned when an expansion targets a node id that is
	// absent from the supplied node set.
	ErrNodeNotFound = errors.New("target node not found")

	// Task lifecycle guards.
	ErrTaskFinished       = errors.New("task already finished")
	ErrTaskActive         = errors.New("task is still pending or running")
	ErrTaskNotStoppable   = errors.New("task cannot be stopped")
	ErrTaskNotRestartable = errors.New("task cannot be restarted")
)
