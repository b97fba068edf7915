package model

import "errors"

var (
	// ErrNotFound is returned when a resource is not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when a resource already exists.
	ErrAlreadyExists = errors.New("already exists")
	// ErrNotValid is returned when a resource is not valid.
	ErrNotValid = errors.New("not valid")
	// ErrNotReady is returned when a task result is requested before the task finished.
	ErrNotReady = errors.New("not ready")
	// ErrTimeout is returned when a wait exceeds its deadline.
	ErrTimeout = errors.New("timed out")
	// ErrSchedulerClosed is returned when submitting to a closed scheduler.
	ErrSchedulerClosed = errors.New("scheduler closed")
	// ErrPoolClosed is returned when acquiring from a closed connection pool.
	ErrPoolClosed = errors.New("pool closed")
	// ErrUnavailable is returned when no pooled connection frees up in time.
	ErrUnavailable = errors.New("no connection available")
	// ErrStepFailed is returned when a workflow step fails and halts the sequence.
	ErrStepFailed = errors.New("step failed")
)
