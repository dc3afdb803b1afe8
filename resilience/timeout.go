package resilience

import (
	"context"
	"time"

	"github.com/jonwraymond/docstore/request"
)

// TimeoutConfig configures the timeout wrapper.
type TimeoutConfig struct {
	// Timeout is the maximum duration of one transport call.
	// Default: 30 seconds
	Timeout time.Duration
}

// Timeout bounds transport calls.
type Timeout struct {
	config TimeoutConfig
}

// NewTimeout creates a new timeout wrapper.
func NewTimeout(config TimeoutConfig) *Timeout {
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	return &Timeout{config: config}
}

type callResult struct {
	doc *request.StructuredDocument
	err error
}

// Wrap returns next bounded by the timeout. A call that runs out of time
// fails with ErrTimeout; a call whose parent context is cancelled fails with
// the parent's error.
func (t *Timeout) Wrap(next request.NextFunc) request.NextFunc {
	return func(parent context.Context, req *request.Request) (*request.StructuredDocument, error) {
		ctx, cancel := context.WithTimeout(parent, t.config.Timeout)
		defer cancel()

		done := make(chan callResult, 1)
		go func() {
			doc, err := next(ctx, req)
			done <- callResult{doc: doc, err: err}
		}()

		select {
		case r := <-done:
			return r.doc, r.err
		case <-ctx.Done():
			if err := parent.Err(); err != nil {
				return nil, err
			}
			return nil, reject(req, ErrTimeout)
		}
	}
}

// Config returns the timeout configuration.
func (t *Timeout) Config() TimeoutConfig {
	return t.config
}
