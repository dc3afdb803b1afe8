package resilience

import (
	"context"
	"time"

	"github.com/jonwraymond/docstore/observe"
	"github.com/jonwraymond/docstore/request"
)

// Guard composes resilience patterns around a transport.
type Guard struct {
	rateLimiter    *RateLimiter
	bulkhead       *Bulkhead
	circuitBreaker *CircuitBreaker
	timeout        *Timeout
	logger         observe.Logger
}

// Option configures a Guard.
type Option func(*Guard)

// NewGuard creates a new guard.
func NewGuard(opts ...Option) *Guard {
	g := &Guard{logger: observe.NopLogger()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// WithCircuitBreaker adds a circuit breaker to the guard.
func WithCircuitBreaker(cb *CircuitBreaker) Option {
	return func(g *Guard) {
		g.circuitBreaker = cb
	}
}

// WithRateLimiter adds rate limiting to the guard.
func WithRateLimiter(rl *RateLimiter) Option {
	return func(g *Guard) {
		g.rateLimiter = rl
	}
}

// WithBulkhead adds bulkhead isolation to the guard.
func WithBulkhead(b *Bulkhead) Option {
	return func(g *Guard) {
		g.bulkhead = b
	}
}

// WithTimeout bounds each transport call.
func WithTimeout(timeout time.Duration) Option {
	return func(g *Guard) {
		g.timeout = NewTimeout(TimeoutConfig{Timeout: timeout})
	}
}

// WithLogger logs rejected calls at warn level.
func WithLogger(l observe.Logger) Option {
	return func(g *Guard) {
		if l != nil {
			g.logger = l
		}
	}
}

// Wrap returns next guarded by every configured pattern.
//
// The order, outermost first, is:
// 1. Rate Limiter - limits call rate
// 2. Bulkhead - limits concurrency
// 3. Circuit Breaker - stops calls to a failing backend
// 4. Timeout - limits call duration
func (g *Guard) Wrap(next request.NextFunc) request.NextFunc {
	call := next
	if g.timeout != nil {
		call = g.timeout.Wrap(call)
	}
	if g.circuitBreaker != nil {
		call = g.circuitBreaker.Wrap(call)
	}
	if g.bulkhead != nil {
		call = g.bulkhead.Wrap(call)
	}
	if g.rateLimiter != nil {
		call = g.rateLimiter.Wrap(call)
	}

	return func(ctx context.Context, req *request.Request) (*request.StructuredDocument, error) {
		doc, err := call(ctx, req)
		if err != nil && IsRejection(err) {
			g.logger.WithRequest(observe.MetaFor(req, "")).Warn(ctx, "transport call rejected", observe.F("error", err))
		}
		return doc, err
	}
}
