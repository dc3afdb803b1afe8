package resilience

import (
	"errors"

	"github.com/jonwraymond/docstore/request"
)

// Sentinel errors for resilience operations.
var (
	// ErrCircuitOpen is returned when the circuit breaker is open.
	ErrCircuitOpen = errors.New("resilience: circuit breaker is open")

	// ErrRateLimitExceeded is returned when the rate limit is exceeded.
	ErrRateLimitExceeded = errors.New("resilience: rate limit exceeded")

	// ErrBulkheadFull is returned when the bulkhead is at capacity.
	ErrBulkheadFull = errors.New("resilience: bulkhead at capacity")

	// ErrTimeout is returned when a transport call times out.
	ErrTimeout = errors.New("resilience: operation timed out")
)

// reject builds the error returned for a call the guard did not let through.
func reject(req *request.Request, cause error) error {
	return &request.StructuredError{Request: req, Err: cause}
}

// IsRejection reports whether err was produced by a guard rather than by
// the transport.
func IsRejection(err error) bool {
	return errors.Is(err, ErrCircuitOpen) ||
		errors.Is(err, ErrRateLimitExceeded) ||
		errors.Is(err, ErrBulkheadFull) ||
		errors.Is(err, ErrTimeout)
}
