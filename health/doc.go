// Package health reports whether the collaborators behind a docstore are
// usable: persistence backends, the transport guard, and anything else a
// caller registers.
//
// A Checker reports a Status of Healthy, Degraded or Unhealthy. An
// Aggregator runs registered checkers and folds their results:
//
//	agg := health.NewAggregator()
//	agg.Register("persist", health.NewPersistChecker("redis", redisStore))
//	agg.Register("transport", health.NewCircuitChecker("api", breaker))
//
//	results := agg.CheckAll(ctx)
//	overall := agg.OverallStatus(results)
//
// RegisterHandlers exposes the aggregate as /readyz and /health.
package health
