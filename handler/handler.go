package handler

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/docstore/cache"
	"github.com/jonwraymond/docstore/identifier"
	"github.com/jonwraymond/docstore/observe"
	"github.com/jonwraymond/docstore/request"
)

// Result is the outcome of a handled request.
type Result struct {
	// Document is the hydrated response. It is nil when the response had no
	// content, such as a mutation answered with 204.
	Document *Document

	// Raw is the transport document of a request that bypassed the cache.
	Raw *request.StructuredDocument
}

// Option configures a CacheHandler.
type Option func(*CacheHandler)

// WithLogger sets the logger for routing and reconciliation events.
func WithLogger(l observe.Logger) Option {
	return func(h *CacheHandler) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithMetrics records cache lookups and settled requests.
func WithMetrics(m observe.Metrics) Option {
	return func(h *CacheHandler) {
		if m != nil {
			h.metrics = m
		}
	}
}

// WithDeduplication shares one transport call between concurrent fetches of
// the same document. Each caller still reconciles and hydrates on its own.
// The shared call is detached from cancellation; a caller whose context is
// done stops waiting for it and settles as aborted.
func WithDeduplication() Option {
	return func(h *CacheHandler) {
		h.flights = &singleflight.Group{}
	}
}

// CacheHandler runs requests through the cache.
//
// Contract:
//   - Concurrency: safe for concurrent use. Cache writes for one response are
//     applied inside Store.Join; cache reads run inside Store.Read.
//   - Context: cancellation is the abort signal. A request whose context is
//     done when the transport returns gets the transport error unchanged and
//     leaves the cache and lifetime policy untouched.
//   - Errors: see the package documentation.
type CacheHandler struct {
	logger  observe.Logger
	metrics observe.Metrics
	flights *singleflight.Group
}

// New creates a CacheHandler.
func New(opts ...Option) *CacheHandler {
	h := &CacheHandler{
		logger:  observe.NopLogger(),
		metrics: observe.NopMetrics(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handle runs rc.Request through the cache, calling next when it must fetch.
func (h *CacheHandler) Handle(ctx context.Context, rc *Context, next request.NextFunc) (*Result, error) {
	if rc == nil || rc.Request == nil {
		return nil, ErrNilRequest
	}
	req := rc.Request

	if rc.Store == nil || req.CacheOptions.SkipCache {
		doc, err := next(ctx, req)
		if err != nil {
			return nil, err
		}
		return &Result{Raw: doc}, nil
	}

	start := time.Now()
	res, id, err := h.route(ctx, rc, next)

	meta := observe.MetaFor(req, id.String())
	h.metrics.RecordRequest(ctx, meta, time.Since(start), err)
	return res, err
}

func (h *CacheHandler) route(ctx context.Context, rc *Context, next request.NextFunc) (*Result, *identifier.DocumentIdentifier, error) {
	req := rc.Request
	s := rc.Store

	id := s.Identifiers.GetOrCreateDocumentIdentifier(req)
	var env *cache.Envelope
	if id != nil {
		s.Read(func() { env = s.Cache.PeekRequest(id) })
	}
	fetch := id == nil || shouldFetch(s, req, env)

	meta := observe.MetaFor(req, id.String())
	log := h.logger.WithRequest(meta)
	if id != nil {
		h.metrics.RecordCacheLookup(ctx, meta, !fetch)
	}

	if !fetch {
		log.Debug(ctx, "serving from cache")
		res, err := h.serveCached(rc, env)
		return res, id, err
	}

	log.Debug(ctx, "fetching", observe.F("cached", env != nil))
	res, err := h.fetch(ctx, rc, id, next, log)
	return res, id, err
}

func (h *CacheHandler) serveCached(rc *Context, env *cache.Envelope) (*Result, error) {
	if env == nil {
		return nil, ErrMissingEnvelope
	}
	rc.SetResponse(env.Response)

	if env.IsError() {
		return nil, &request.StructuredError{
			Request:  rc.Request,
			Response: env.Response,
			Content:  env.Error,
			Err:      ErrCachedFailure,
		}
	}

	s := rc.Store
	var doc *Document
	s.Read(func() { doc = Hydrate(s.Cache, env.Content) })
	return &Result{Document: doc}, nil
}

func (h *CacheHandler) fetch(
	ctx context.Context,
	rc *Context,
	id *identifier.DocumentIdentifier,
	next request.NextFunc,
	log observe.Logger,
) (*Result, error) {
	req := rc.Request
	s := rc.Store

	switch req.Kind() {
	case request.KindMutation:
		ref, ok := req.Record()
		if !ok {
			return nil, ErrMissingRecord
		}
		s.Join(func() { s.Cache.WillCommit(ref, req) })
	case request.KindQuery:
	}

	if s.HasLifetimes() {
		s.Lifetimes.WillRequest(req, id, s)
	}

	doc, err := h.call(ctx, req, id, next)
	if err != nil {
		return nil, h.settleError(ctx, rc, id, err, log)
	}

	if doc == nil {
		doc = &request.StructuredDocument{Request: req}
	} else if doc.Request == nil {
		d := *doc
		d.Request = req
		doc = &d
	}

	var rd *cache.ResourceDocument
	s.Join(func() { rd = reconcileSuccess(s.Cache, req, doc) })
	rc.SetResponse(doc.Response)

	if s.HasLifetimes() {
		s.Lifetimes.DidRequest(req, doc.Response, id, s)
	}

	var out *Document
	s.Read(func() { out = Hydrate(s.Cache, rd) })
	return &Result{Document: out}, nil
}

// call invokes next, sharing the call with concurrent fetches of the same
// document when deduplication is on.
func (h *CacheHandler) call(
	ctx context.Context,
	req *request.Request,
	id *identifier.DocumentIdentifier,
	next request.NextFunc,
) (*request.StructuredDocument, error) {
	if h.flights == nil || id == nil || req.Kind() == request.KindMutation {
		return next(ctx, req)
	}

	shared := context.WithoutCancel(ctx)
	ch := h.flights.DoChan(id.LID, func() (any, error) {
		return next(shared, req)
	})

	var r singleflight.Result
	select {
	case r = <-ch:
	case <-ctx.Done():
		select {
		case r = <-ch:
		default:
			return nil, ctx.Err()
		}
	}
	doc, _ := r.Val.(*request.StructuredDocument)
	return doc, r.Err
}

func (h *CacheHandler) settleError(
	ctx context.Context,
	rc *Context,
	id *identifier.DocumentIdentifier,
	err error,
	log observe.Logger,
) error {
	if ctx.Err() != nil {
		log.Debug(ctx, "request aborted", observe.F("error", err))
		return err
	}

	req := rc.Request
	s := rc.Store

	se := request.AsStructuredError(err, req)
	if se.Request == nil {
		se = se.Clone()
		se.Request = req
	}

	var ed *cache.ErrorDocument
	s.Join(func() { ed = reconcileError(s.Cache, req, se) })
	rc.SetResponse(se.Response)

	if id != nil && s.HasLifetimes() {
		s.Lifetimes.DidRequest(req, se.Response, id, s)
	}

	log.Warn(ctx, "request failed", observe.F("status", se.Status()), observe.F("error", err))

	switch req.Kind() {
	case request.KindMutation:
		return err
	default:
		out := se.Clone()
		out.Content = ed
		return out
	}
}
