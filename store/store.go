package store

import (
	"sync"

	"github.com/jonwraymond/docstore/cache"
	"github.com/jonwraymond/docstore/identifier"
	"github.com/jonwraymond/docstore/request"
)

// Lifetimes decides when cached envelopes go stale and is told when requests
// start and finish.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - ShouldBeStale must not mutate the envelope. Its answer is authoritative.
// - WillRequest and DidRequest are notifications. id may be nil for
//   mutations; resp is nil when the transport failed without a response.
// - DidRequest runs after the response has been applied to the cache, so it
//   may read s.Cache.
type Lifetimes interface {
	ShouldBeStale(req *request.Request, env *cache.Envelope) bool
	WillRequest(req *request.Request, id *identifier.DocumentIdentifier, s *Store)
	DidRequest(req *request.Request, resp *request.Response, id *identifier.DocumentIdentifier, s *Store)
}

// Store is the cache plus its identifier resolver and lifetime policy.
type Store struct {
	Cache       cache.Cache
	Identifiers identifier.Resolver
	Lifetimes   Lifetimes

	mu sync.RWMutex
}

// Option configures a Store.
type Option func(*Store)

// WithLifetimes sets the lifetime policy.
func WithLifetimes(l Lifetimes) Option {
	return func(s *Store) {
		s.Lifetimes = l
	}
}

// WithIdentifiers sets the document identifier resolver.
func WithIdentifiers(r identifier.Resolver) Option {
	return func(s *Store) {
		if r != nil {
			s.Identifiers = r
		}
	}
}

// New creates a Store over c. Without WithIdentifiers the resolver is taken
// from c when it exposes one, else a default resolver is created.
func New(c cache.Cache, opts ...Option) *Store {
	s := &Store{Cache: c}
	if rp, ok := c.(interface{ Resolver() identifier.Resolver }); ok {
		s.Identifiers = rp.Resolver()
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.Identifiers == nil {
		s.Identifiers = identifier.NewResolver(nil)
	}
	return s
}

// NewMemory creates a Store backed by a fresh MemoryCache that shares the
// Store's resolver.
func NewMemory(cacheOpts []cache.Option, opts ...Option) *Store {
	return New(cache.NewMemoryCache(nil, cacheOpts...), opts...)
}

// HasLifetimes reports whether a lifetime policy is configured.
func (s *Store) HasLifetimes() bool {
	return s.Lifetimes != nil
}

// Join runs fn with exclusive access to the cache. The lock is released on
// every exit path, including a panic in fn.
func (s *Store) Join(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
}

// Read runs fn with shared access to the cache.
func (s *Store) Read(fn func()) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn()
}
