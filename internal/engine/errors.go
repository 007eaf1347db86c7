package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrShuttingDown is returned by Submit once shutdown has been initiated.
	ErrShuttingDown = errors.New("server shutting down")

	// ErrJobNotFound is returned for identifiers that were never submitted.
	ErrJobNotFound = errors.New("job not found")

	// ErrJobExists is returned when a job identifier is registered twice.
	ErrJobExists = errors.New("job already exists")

	// ErrInvalidTransition is returned when a job status transition is not allowed.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// ExecutionError reports a job whose query could not be answered or whose
// result could not be persisted.
type ExecutionError struct {
	JobID string
	Err   error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("job %s: %v", e.JobID, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}
