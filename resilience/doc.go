// Package resilience guards a transport against overload and failing
// backends.
//
// Each pattern wraps a request.NextFunc and can be used on its own or
// composed through a Guard:
//
//   - Circuit Breaker: stops calling a backend after repeated server
//     failures. Client errors (4xx) and aborted requests never count.
//
//   - Rate Limiter: bounds the rate of transport calls with a token bucket.
//
//   - Bulkhead: bounds the number of concurrent transport calls.
//
//   - Timeout: bounds the duration of one transport call.
//
// A rejected call fails with a *request.StructuredError that wraps one of
// the sentinel errors and carries no response, so the cache handler treats
// it like any other transport failure.
//
// # Usage
//
//	guard := resilience.NewGuard(
//	    resilience.WithCircuitBreaker(resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
//	        MaxFailures:  5,
//	        ResetTimeout: time.Minute,
//	    })),
//	    resilience.WithBulkhead(resilience.NewBulkhead(resilience.BulkheadConfig{MaxConcurrent: 8})),
//	    resilience.WithTimeout(5*time.Second),
//	)
//
//	m := handler.NewManager(s, transport, handler.WithTransportWrapper(guard.Wrap))
//
// Retrying failed calls is left to the transport.
package resilience
