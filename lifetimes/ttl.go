package lifetimes

import (
	"sync"
	"time"

	"github.com/jonwraymond/docstore/cache"
	"github.com/jonwraymond/docstore/identifier"
	"github.com/jonwraymond/docstore/request"
	"github.com/jonwraymond/docstore/store"
)

// Config configures a TTL policy.
type Config struct {
	// DefaultTTL is the lifetime of a cached envelope.
	// If zero, every cached envelope is stale.
	DefaultTTL time.Duration

	// MaxTTL is the maximum allowed TTL. Per-type TTLs are clamped to this.
	// If zero, no maximum is enforced.
	MaxTTL time.Duration

	// TypeTTL overrides DefaultTTL for requests targeting a resource type.
	TypeTTL map[string]time.Duration

	// KeepErrors serves cached error envelopes until they expire instead of
	// refetching them on the next request.
	KeepErrors bool
}

// DefaultConfig returns the default policy configuration.
// DefaultTTL: 5 minutes, MaxTTL: 1 hour.
func DefaultConfig() Config {
	return Config{
		DefaultTTL: 5 * time.Minute,
		MaxTTL:     1 * time.Hour,
	}
}

// NoCacheConfig returns a configuration under which every cached envelope is
// stale.
func NoCacheConfig() Config {
	return Config{}
}

// EffectiveTTL returns the TTL to use, applying defaults and clamping.
func (c Config) EffectiveTTL(override time.Duration) time.Duration {
	ttl := override
	if ttl <= 0 {
		ttl = c.DefaultTTL
	}
	if c.MaxTTL > 0 && ttl > c.MaxTTL {
		ttl = c.MaxTTL
	}
	return ttl
}

// TTL is a time-based lifetime policy.
type TTL struct {
	cfg Config
	now func() time.Time

	mu       sync.Mutex
	inflight map[string]int
	finished map[string]time.Time
}

// TTLOption configures a TTL policy.
type TTLOption func(*TTL)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) TTLOption {
	return func(p *TTL) {
		if now != nil {
			p.now = now
		}
	}
}

// NewTTL creates a TTL policy.
func NewTTL(cfg Config, opts ...TTLOption) *TTL {
	p := &TTL{
		cfg:      cfg,
		now:      time.Now,
		inflight: make(map[string]int),
		finished: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ShouldBeStale reports whether env must be refetched for req.
func (p *TTL) ShouldBeStale(req *request.Request, env *cache.Envelope) bool {
	if env == nil {
		return true
	}
	if req != nil && (req.CacheOptions.Reload || req.CacheOptions.BackgroundReload) {
		return true
	}
	if env.IsError() && !p.cfg.KeepErrors {
		return true
	}
	ttl := p.ttlFor(req)
	if ttl <= 0 {
		return true
	}
	return env.Age(p.now()) >= ttl
}

func (p *TTL) ttlFor(req *request.Request) time.Duration {
	if req == nil {
		return p.cfg.EffectiveTTL(0)
	}
	t := req.Data.Type
	if ref, ok := req.Record(); ok {
		t = ref.Type
	}
	return p.cfg.EffectiveTTL(p.cfg.TypeTTL[t])
}

// WillRequest marks id as having a request in flight.
func (p *TTL) WillRequest(_ *request.Request, id *identifier.DocumentIdentifier, _ *store.Store) {
	if id == nil {
		return
	}
	p.mu.Lock()
	p.inflight[id.LID]++
	p.mu.Unlock()
}

// DidRequest clears the in-flight mark for id.
func (p *TTL) DidRequest(_ *request.Request, _ *request.Response, id *identifier.DocumentIdentifier, _ *store.Store) {
	if id == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if n := p.inflight[id.LID]; n > 1 {
		p.inflight[id.LID] = n - 1
	} else {
		delete(p.inflight, id.LID)
	}
	p.finished[id.LID] = p.now()
}

// InFlight reports whether id has a request in flight.
func (p *TTL) InFlight(id *identifier.DocumentIdentifier) bool {
	if id == nil {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inflight[id.LID] > 0
}

// LastRequest returns when the last request for id finished.
func (p *TTL) LastRequest(id *identifier.DocumentIdentifier) (time.Time, bool) {
	if id == nil {
		return time.Time{}, false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	t, ok := p.finished[id.LID]
	return t, ok
}

var _ store.Lifetimes = (*TTL)(nil)
