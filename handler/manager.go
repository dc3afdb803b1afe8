package handler

import (
	"context"

	"github.com/jonwraymond/docstore/request"
	"github.com/jonwraymond/docstore/store"
)

// Wrapper decorates a transport, e.g. observe.Middleware.Wrap or
// resilience.Guard.Wrap.
type Wrapper func(request.NextFunc) request.NextFunc

// Response is what a Manager returns for one request.
type Response struct {
	Request *request.Request

	// Response is the response metadata, from the transport or the cache.
	Response *request.Response

	// Document is the hydrated document of a cache-handled request.
	Document *Document

	// Raw is the transport document of a request that skipped the cache.
	Raw *request.StructuredDocument
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithHandler replaces the default CacheHandler.
func WithHandler(h *CacheHandler) ManagerOption {
	return func(m *Manager) {
		if h != nil {
			m.handler = h
		}
	}
}

// WithTransportWrapper decorates the transport. Wrappers apply in order, so
// the last one added is the outermost.
func WithTransportWrapper(w Wrapper) ManagerOption {
	return func(m *Manager) {
		if w != nil {
			m.next = w(m.next)
		}
	}
}

// Manager is the entry point for issuing requests: it owns a store, a cache
// handler and the transport behind them.
type Manager struct {
	store   *store.Store
	handler *CacheHandler
	next    request.NextFunc
}

// NewManager creates a Manager. s may be nil, in which case every request
// goes straight to the transport.
func NewManager(s *store.Store, transport request.NextFunc, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:   s,
		handler: New(),
		next:    transport,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Store returns the manager's store.
func (m *Manager) Store() *store.Store {
	return m.store
}

// Request handles req and returns its response.
func (m *Manager) Request(ctx context.Context, req *request.Request) (*Response, error) {
	rc := NewContext(req, m.store)
	res, err := m.handler.Handle(ctx, rc, m.next)
	if err != nil {
		return nil, err
	}

	out := &Response{
		Request:  req,
		Response: rc.Response(),
		Document: res.Document,
		Raw:      res.Raw,
	}
	if out.Response == nil && res.Raw != nil {
		out.Response = res.Raw.Response
	}
	return out, nil
}
