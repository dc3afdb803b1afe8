package health

import "errors"

var (
	// ErrCheckTimeout indicates a health check timed out.
	ErrCheckTimeout = errors.New("health: check timeout")

	// ErrCheckerNotFound indicates a checker was not found.
	ErrCheckerNotFound = errors.New("health: checker not found")

	// ErrProbeMismatch indicates a persistence probe read back something
	// other than what it wrote.
	ErrProbeMismatch = errors.New("health: probe read back a different value")
)
