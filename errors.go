package rookery

import "errors"

var (
	// ErrNotFound is returned when no resource exists at a path
	ErrNotFound = errors.New("not found")
	// ErrInvalidPath is returned when a path is malformed or attempts traversal
	ErrInvalidPath = errors.New("invalid path")
	// ErrInvalidInput is returned when request input other than the path is invalid
	ErrInvalidInput = errors.New("invalid input")
	// ErrMethodNotAllowed is returned when an operation does not apply to the resource type
	ErrMethodNotAllowed = errors.New("method not allowed")
	// ErrNotADirectory is returned when a directory operation targets a file
	ErrNotADirectory = errors.New("not a directory")
	// ErrLockTimeout is returned when a lock set could not be granted in time
	ErrLockTimeout = errors.New("lock wait timed out")
	// ErrInternal is returned when an internal error occurs
	ErrInternal = errors.New("internal error")
)
