package health

import (
	"bytes"
	"context"
	"time"

	"github.com/jonwraymond/docstore/persist"
	"github.com/jonwraymond/docstore/resilience"
)

// ProbeKey is the key PersistChecker writes when the store cannot ping.
const ProbeKey = "health:probe"

type pinger interface {
	Ping(ctx context.Context) error
}

// PersistChecker checks a persistence backend. Backends that can ping are
// pinged; others get a write, read and delete of ProbeKey.
type PersistChecker struct {
	name  string
	store persist.Store
}

// NewPersistChecker creates a checker for store.
func NewPersistChecker(name string, store persist.Store) *PersistChecker {
	return &PersistChecker{name: name, store: store}
}

// Name returns the name of this checker.
func (c *PersistChecker) Name() string {
	return c.name
}

// Check probes the store.
func (c *PersistChecker) Check(ctx context.Context) Result {
	if c.store == nil {
		return Unhealthy("no store configured", persist.ErrNilStore)
	}
	if p, ok := c.store.(pinger); ok {
		if err := p.Ping(ctx); err != nil {
			return Unhealthy("ping failed", err)
		}
		return Healthy("reachable")
	}

	value := []byte(time.Now().UTC().Format(time.RFC3339Nano))
	if err := c.store.Set(ctx, &persist.Entry{Key: ProbeKey, Value: value, CreatedAt: time.Now()}); err != nil {
		return Unhealthy("probe write failed", err)
	}
	defer func() { _ = c.store.Delete(context.WithoutCancel(ctx), ProbeKey) }()

	got, err := c.store.Get(ctx, ProbeKey)
	if err != nil {
		return Unhealthy("probe read failed", err)
	}
	if got == nil || !bytes.Equal(got.Value, value) {
		return Unhealthy("probe read failed", ErrProbeMismatch)
	}
	return Healthy("read-write ok")
}

// CircuitChecker reports a circuit breaker: closed is healthy, half-open
// is degraded, open is unhealthy.
type CircuitChecker struct {
	name    string
	breaker *resilience.CircuitBreaker
}

// NewCircuitChecker creates a checker for breaker.
func NewCircuitChecker(name string, breaker *resilience.CircuitBreaker) *CircuitChecker {
	return &CircuitChecker{name: name, breaker: breaker}
}

// Name returns the name of this checker.
func (c *CircuitChecker) Name() string {
	return c.name
}

// Check reads the breaker state.
func (c *CircuitChecker) Check(context.Context) Result {
	m := c.breaker.Metrics()
	details := map[string]any{
		"state":      m.State.String(),
		"failures":   m.Failures,
		"recoveries": m.Recoveries,
	}

	var r Result
	switch m.State {
	case resilience.StateOpen:
		r = Unhealthy("circuit open", resilience.ErrCircuitOpen)
	case resilience.StateHalfOpen:
		r = Degraded("circuit probing")
	default:
		r = Healthy("circuit closed")
	}
	return r.WithDetails(details)
}

// BulkheadChecker reports degraded when every bulkhead slot is taken.
type BulkheadChecker struct {
	name     string
	bulkhead *resilience.Bulkhead
}

// NewBulkheadChecker creates a checker for b.
func NewBulkheadChecker(name string, b *resilience.Bulkhead) *BulkheadChecker {
	return &BulkheadChecker{name: name, bulkhead: b}
}

// Name returns the name of this checker.
func (c *BulkheadChecker) Name() string {
	return c.name
}

// Check reads the bulkhead occupancy.
func (c *BulkheadChecker) Check(context.Context) Result {
	m := c.bulkhead.Metrics()
	details := map[string]any{
		"active":    m.Active,
		"available": m.Available,
		"rejected":  m.Rejected,
	}
	if m.Available == 0 {
		return Degraded("at capacity").WithDetails(details)
	}
	return Healthy("accepting calls").WithDetails(details)
}
