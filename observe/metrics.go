package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric names.
const (
	MetricRequestTotal    = "request.total"
	MetricRequestErrors   = "request.errors"
	MetricRequestDuration = "request.duration_ms"
	MetricCacheLookups    = "cache.lookups"
)

// Metrics records request and cache metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must return quickly.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordRequest records one settled request with its duration and outcome.
	RecordRequest(ctx context.Context, meta RequestMeta, duration time.Duration, err error)

	// RecordCacheLookup records whether a request was served from the cache.
	RecordCacheLookup(ctx context.Context, meta RequestMeta, hit bool)
}

type otelMetrics struct {
	totalCount   metric.Int64Counter
	errorCount   metric.Int64Counter
	durationHist metric.Float64Histogram
	lookups      metric.Int64Counter
}

// NewMetrics creates instruments on meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	totalCount, err := meter.Int64Counter(
		MetricRequestTotal,
		metric.WithDescription("Total number of settled requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(
		MetricRequestErrors,
		metric.WithDescription("Total number of requests that settled with an error"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		MetricRequestDuration,
		metric.WithDescription("Request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	lookups, err := meter.Int64Counter(
		MetricCacheLookups,
		metric.WithDescription("Cache routing decisions, split by cache.hit"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		totalCount:   totalCount,
		errorCount:   errorCount,
		durationHist: durationHist,
		lookups:      lookups,
	}, nil
}

func (m *otelMetrics) RecordRequest(ctx context.Context, meta RequestMeta, duration time.Duration, err error) {
	opt := metric.WithAttributes(meta.attributes()...)

	m.totalCount.Add(ctx, 1, opt)
	if err != nil {
		m.errorCount.Add(ctx, 1, opt)
	}
	m.durationHist.Record(ctx, float64(duration.Microseconds())/1000, opt)
}

func (m *otelMetrics) RecordCacheLookup(ctx context.Context, meta RequestMeta, hit bool) {
	attrs := append(meta.attributes(), attribute.Bool("cache.hit", hit))
	m.lookups.Add(ctx, 1, metric.WithAttributes(attrs...))
}

type nopMetrics struct{}

// NopMetrics returns metrics that record nothing.
func NopMetrics() Metrics { return nopMetrics{} }

func (nopMetrics) RecordRequest(context.Context, RequestMeta, time.Duration, error) {}
func (nopMetrics) RecordCacheLookup(context.Context, RequestMeta, bool)             {}
