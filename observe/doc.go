// Package observe provides logging, tracing and metrics for request handling.
//
// It is a pure instrumentation library: the handler package reports cache
// lookups and request outcomes through it, and Middleware instruments a
// transport. Exporter setup lives in the exporters subpackage.
package observe
