package handler

import "errors"

var (
	// ErrMissingEnvelope indicates the cache-hit path found no envelope.
	ErrMissingEnvelope = errors.New("handler: cache hit without a cached envelope")

	// ErrMissingRecord indicates a mutation that does not target a record.
	ErrMissingRecord = errors.New("handler: mutation has no target record")

	// ErrNilRequest indicates Handle was called without a request.
	ErrNilRequest = errors.New("handler: request is nil")

	// ErrCachedFailure is wrapped by errors served from a cached error
	// envelope.
	ErrCachedFailure = errors.New("handler: cached request failed")
)
