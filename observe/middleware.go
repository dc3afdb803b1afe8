package observe

import (
	"context"
	"time"

	"github.com/jonwraymond/docstore/request"
)

// Middleware instruments a transport with tracing, metrics and logging.
//
// Contract:
//   - Concurrency: Wrap returns a NextFunc safe for concurrent use.
//   - Context: the span context is propagated to the wrapped function.
//   - Errors: errors are recorded and returned unchanged, by identity.
//   - Ownership: requests and documents pass through unmodified.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a Middleware. Nil components fall back to no-ops.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	if tracer == nil {
		tracer = NopTracer()
	}
	if metrics == nil {
		metrics = NopMetrics()
	}
	if logger == nil {
		logger = NopLogger()
	}
	return &Middleware{tracer: tracer, metrics: metrics, logger: logger}
}

// MiddlewareFromObserver builds a Middleware on an Observer's providers.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}
	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}
	return NewMiddleware(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}

// Wrap instruments next.
func (m *Middleware) Wrap(next request.NextFunc) request.NextFunc {
	return func(ctx context.Context, req *request.Request) (*request.StructuredDocument, error) {
		meta := MetaFor(req, "")
		ctx, span := m.tracer.StartSpan(ctx, meta)

		start := time.Now()
		doc, err := next(ctx, req)
		duration := time.Since(start)

		m.tracer.EndSpan(span, err)
		m.metrics.RecordRequest(ctx, meta, duration, err)

		fields := []Field{F("duration_ms", float64(duration.Milliseconds()))}
		if doc != nil && doc.Response != nil {
			fields = append(fields, F("status", doc.Response.Status))
		}
		log := m.logger.WithRequest(meta)
		if err != nil {
			log.Warn(ctx, "transport request failed", append(fields, F("error", err))...)
		} else {
			log.Debug(ctx, "transport request completed", fields...)
		}

		return doc, err
	}
}
