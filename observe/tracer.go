package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/jonwraymond/docstore/request"
)

// RequestMeta describes a request for telemetry purposes.
type RequestMeta struct {
	Op       string // Operation, e.g. findRecord
	Kind     string // query|mutation
	Type     string // Resource type, when known
	ID       string // Record id or lid, when the request targets one record
	Document string // Document identifier, empty for uncacheable requests
}

// MetaFor derives telemetry metadata from a request.
func MetaFor(req *request.Request, document string) RequestMeta {
	if req == nil {
		return RequestMeta{Op: "unknown", Document: document}
	}
	meta := RequestMeta{
		Op:       string(req.Op),
		Kind:     req.Kind().String(),
		Type:     req.Data.Type,
		Document: document,
	}
	if meta.Op == "" {
		meta.Op = "request"
	}
	if ref, ok := req.Record(); ok {
		meta.Type = ref.Type
		meta.ID = ref.ID
		if meta.ID == "" {
			meta.ID = ref.LID
		}
	}
	return meta
}

// SpanName returns the span name for the request: request.<op>.
func (m RequestMeta) SpanName() string {
	return "request." + m.Op
}

func (m RequestMeta) attributes() []attribute.KeyValue {
	attrs := []attribute.KeyValue{attribute.String("request.op", m.Op)}
	if m.Kind != "" {
		attrs = append(attrs, attribute.String("request.kind", m.Kind))
	}
	if m.Type != "" {
		attrs = append(attrs, attribute.String("request.type", m.Type))
	}
	return attrs
}

// Tracer wraps OpenTelemetry tracing with request span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	StartSpan(ctx context.Context, meta RequestMeta) (context.Context, trace.Span)
	EndSpan(span trace.Span, err error)
}

type otelTracer struct {
	tracer trace.Tracer
}

// NewTracer wraps an OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	return &otelTracer{tracer: t}
}

// StartSpan starts a span carrying the request attributes.
func (t *otelTracer) StartSpan(ctx context.Context, meta RequestMeta) (context.Context, trace.Span) {
	attrs := append(meta.attributes(), attribute.Bool("request.error", false))
	if meta.ID != "" {
		attrs = append(attrs, attribute.String("request.id", meta.ID))
	}
	if meta.Document != "" {
		attrs = append(attrs, attribute.String("request.document", meta.Document))
	}

	return t.tracer.Start(ctx, meta.SpanName(),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// EndSpan ends the span, recording err when present.
func (t *otelTracer) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("request.error", true))
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

type nopTracer struct {
	noop trace.Tracer
}

// NopTracer returns a tracer whose spans record nothing.
func NopTracer() Tracer {
	return &nopTracer{noop: tracenoop.NewTracerProvider().Tracer("noop")}
}

func (t *nopTracer) StartSpan(ctx context.Context, meta RequestMeta) (context.Context, trace.Span) {
	return t.noop.Start(ctx, meta.SpanName())
}

func (t *nopTracer) EndSpan(span trace.Span, _ error) {
	span.End()
}
