package task

import "errors"

var (
	// ErrInvalidWorker is returned when registering a worker without a name or Execute func.
	ErrInvalidWorker = errors.New("invalid worker")

	// ErrWorkerExists is returned when registering a name that is already taken.
	ErrWorkerExists = errors.New("worker already registered")

	// ErrWorkerNotFound is returned when no worker is registered under a task's name.
	ErrWorkerNotFound = errors.New("worker not found")

	// ErrInvalidOptions is returned when task metadata does not satisfy the worker's options schema.
	ErrInvalidOptions = errors.New("invalid task options")

	// ErrInvalidTask is returned when a task fails basic validation before being stored.
	ErrInvalidTask = errors.New("invalid task")

	// ErrCreateRejected is returned when a worker's Validate hook refuses task creation.
	ErrCreateRejected = errors.New("task creation rejected by worker")

	// ErrWorkerPanic wraps a panic recovered from a worker's Execute func.
	ErrWorkerPanic = errors.New("worker panicked")
)
